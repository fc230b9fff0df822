package meter

import "context"

// Store is the narrow persistence contract for usage events.
type Store interface {
	// AppendUsage atomically checks the aggregate for (event.UserID,
	// event.Type) within window against ceiling and appends the event.
	// A ceiling of -1 disables the check. When the append would push the
	// aggregate past the ceiling, the event is not written and the store
	// returns an error wrapping ErrQuotaExceeded. The check and the write
	// must be a single atomic unit.
	AppendUsage(ctx context.Context, event *UsageEvent, window Window, ceiling int64) error

	// AggregateUsage sums event amounts for (userID, typ) within window.
	AggregateUsage(ctx context.Context, userID string, typ UsageType, window Window) (int64, error)

	// SummarizeUsage aggregates all historical events by type (lifetime).
	SummarizeUsage(ctx context.Context, userID string) ([]Summary, error)

	// QueryUsage returns raw events for a user, newest first.
	QueryUsage(ctx context.Context, userID string, opts QueryOpts) ([]*UsageEvent, error)
}
