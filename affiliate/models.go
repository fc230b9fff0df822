// Package affiliate defines referral links, clicks and conversions.
package affiliate

import (
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// DefaultCommissionRate is applied when a link is created without an
// explicit rate.
const DefaultCommissionRate = 0.10

// Link is an affiliate referral link owned by one user. The code is
// globally unique; the commission rate applies to conversions at the
// moment they are recorded, never retroactively.
type Link struct {
	types.Entity
	ID             id.LinkID `json:"id"`
	UserID         string    `json:"user_id"`
	Code           string    `json:"code"`
	Description    string    `json:"description"`
	CommissionRate float64   `json:"commission_rate"`
}

// Click is an append-only referral visit record.
type Click struct {
	ID        id.ClickID        `json:"id"`
	LinkID    id.LinkID         `json:"link_id"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ConversionStatus is the settlement state of a conversion.
type ConversionStatus string

const (
	ConversionPending   ConversionStatus = "pending"
	ConversionCompleted ConversionStatus = "completed"
	ConversionFailed    ConversionStatus = "failed"
)

// Terminal reports whether the status admits no further transition.
func (s ConversionStatus) Terminal() bool {
	return s == ConversionCompleted || s == ConversionFailed
}

// Conversion is a referral-driven transaction. CommissionRate and
// CommissionAmount are snapshots taken when the conversion is recorded;
// later changes to the link's rate do not alter them. Only completed
// conversions count toward payable balance.
type Conversion struct {
	types.Entity
	ID               id.ConversionID  `json:"id"`
	LinkID           id.LinkID        `json:"link_id"`
	ReferredUserID   string           `json:"referred_user_id"`
	Amount           types.Money      `json:"amount"`
	CommissionRate   float64          `json:"commission_rate"`
	CommissionAmount types.Money      `json:"commission_amount"`
	Status           ConversionStatus `json:"status"`
	SettledAt        *time.Time       `json:"settled_at,omitempty"`
}

// Stats aggregates attribution activity for one link.
type Stats struct {
	LinkID           id.LinkID   `json:"link_id"`
	Clicks           int64       `json:"clicks"`
	Conversions      int64       `json:"conversions"`
	EarnedCommission types.Money `json:"earned_commission"`
}

// ListOpts filters link and conversion listings.
type ListOpts struct {
	Status ConversionStatus
	Limit  int
	Offset int
}
