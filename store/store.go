package store

import (
	"context"
	"time"

	"github.com/xraph/tally/affiliate"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/meter"
	"github.com/xraph/tally/payout"
	"github.com/xraph/tally/subscription"
)

// Store is the unified storage interface for all Tally entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Subscription methods
	CreateSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)
	GetActiveSubscription(ctx context.Context, userID string) (*subscription.Subscription, error)
	ListSubscriptions(ctx context.Context, userID string, opts subscription.ListOpts) ([]*subscription.Subscription, error)
	UpdateSubscription(ctx context.Context, s *subscription.Subscription) error
	CancelSubscription(ctx context.Context, subID id.SubscriptionID, canceledAt time.Time) error

	// Meter methods
	AppendUsage(ctx context.Context, event *meter.UsageEvent, window meter.Window, ceiling int64) error
	AggregateUsage(ctx context.Context, userID string, typ meter.UsageType, window meter.Window) (int64, error)
	SummarizeUsage(ctx context.Context, userID string) ([]meter.Summary, error)
	QueryUsage(ctx context.Context, userID string, opts meter.QueryOpts) ([]*meter.UsageEvent, error)

	// Affiliate methods
	CreateLink(ctx context.Context, l *affiliate.Link) error
	GetLink(ctx context.Context, linkID id.LinkID) (*affiliate.Link, error)
	GetLinkByCode(ctx context.Context, code string) (*affiliate.Link, error)
	ListLinks(ctx context.Context, userID string, opts affiliate.ListOpts) ([]*affiliate.Link, error)
	UpdateLink(ctx context.Context, l *affiliate.Link) error
	CreateClick(ctx context.Context, c *affiliate.Click) error
	CountClicks(ctx context.Context, linkID id.LinkID) (int64, error)
	CreateConversion(ctx context.Context, c *affiliate.Conversion) error
	GetConversion(ctx context.Context, convID id.ConversionID) (*affiliate.Conversion, error)
	ListConversions(ctx context.Context, linkID id.LinkID, opts affiliate.ListOpts) ([]*affiliate.Conversion, error)
	SettleConversion(ctx context.Context, convID id.ConversionID, status affiliate.ConversionStatus, settledAt time.Time) error
	SumSettledCommission(ctx context.Context, userID string) (int64, error)

	// Payout methods
	CreatePayout(ctx context.Context, p *payout.Payout) error
	GetPayout(ctx context.Context, payoutID id.PayoutID) (*payout.Payout, error)
	ListPayouts(ctx context.Context, opts payout.ListOpts) ([]*payout.Payout, error)
	SetPayoutStatus(ctx context.Context, payoutID id.PayoutID, status payout.Status, processedAt *time.Time) error
	SumReservedPayouts(ctx context.Context, userID string) (int64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
