// Package subscription defines billing subscriptions and period resolution.
package subscription

import (
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/meter"
	"github.com/xraph/tally/plan"
	"github.com/xraph/tally/types"
)

// Status is the subscription lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusPastDue  Status = "past_due"
)

// Subscription connects a user to a plan tier for a billing period.
// A user has at most one active subscription; cancellation supersedes the
// record rather than deleting it.
type Subscription struct {
	types.Entity
	ID                 id.SubscriptionID `json:"id"`
	UserID             string            `json:"user_id"`
	Tier               plan.Tier         `json:"tier"`
	Status             Status            `json:"status"`
	CurrentPeriodStart time.Time         `json:"current_period_start"`
	CurrentPeriodEnd   time.Time         `json:"current_period_end"`
	CanceledAt         *time.Time        `json:"canceled_at,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// Window resolves the active accounting window for quota aggregation from
// the subscription's billing-period bounds.
func (s *Subscription) Window() meter.Window {
	return meter.Window{Start: s.CurrentPeriodStart, End: s.CurrentPeriodEnd}
}

// Advance moves the billing period forward by one month from its current
// end. Rollover is externally triggered; the engine never advances periods
// on its own.
func (s *Subscription) Advance() {
	s.CurrentPeriodStart = s.CurrentPeriodEnd
	s.CurrentPeriodEnd = s.CurrentPeriodEnd.AddDate(0, 1, 0)
}

// ListOpts filters subscription listings.
type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
