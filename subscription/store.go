package subscription

import (
	"context"
	"time"

	"github.com/xraph/tally/id"
)

// Store is the narrow persistence contract for subscriptions.
type Store interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)
	GetActive(ctx context.Context, userID string) (*Subscription, error)
	List(ctx context.Context, userID string, opts ListOpts) ([]*Subscription, error)
	Update(ctx context.Context, s *Subscription) error
	Cancel(ctx context.Context, subID id.SubscriptionID, canceledAt time.Time) error
}
