package payout

import (
	"context"
	"time"

	"github.com/xraph/tally/id"
)

// Store persists payout requests.
type Store interface {
	// CreatePayout persists a new payout request.
	CreatePayout(ctx context.Context, p *Payout) error

	// GetPayout retrieves a payout by ID.
	GetPayout(ctx context.Context, payoutID id.PayoutID) (*Payout, error)

	// ListPayouts returns payouts matching the options, newest first.
	ListPayouts(ctx context.Context, opts ListOpts) ([]*Payout, error)

	// SetPayoutStatus moves a payout to a new status, recording
	// processedAt when the status is terminal. Implementations must
	// reject transitions that CanTransition disallows by returning an
	// error wrapping ErrPayoutFinalized for terminal payouts.
	SetPayoutStatus(ctx context.Context, payoutID id.PayoutID, status Status, processedAt *time.Time) error

	// SumReservedPayouts returns the total amount in smallest currency
	// units held by the user's non-failed payouts.
	SumReservedPayouts(ctx context.Context, userID string) (int64, error)
}
