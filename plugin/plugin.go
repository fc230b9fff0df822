// Package plugin provides an extensible plugin system for Tally.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated is called when a new subscription is created.
type OnSubscriptionCreated interface {
	Plugin
	OnSubscriptionCreated(ctx context.Context, sub interface{}) error
}

// OnTierChanged is called when a subscription moves to a different tier.
type OnTierChanged interface {
	Plugin
	OnTierChanged(ctx context.Context, sub interface{}, oldTier, newTier string) error
}

// OnSubscriptionCanceled is called when a subscription is canceled.
type OnSubscriptionCanceled interface {
	Plugin
	OnSubscriptionCanceled(ctx context.Context, sub interface{}) error
}

// OnSubscriptionRenewed is called when a subscription rolls into a new
// billing period.
type OnSubscriptionRenewed interface {
	Plugin
	OnSubscriptionRenewed(ctx context.Context, sub interface{}) error
}

// ──────────────────────────────────────────────────
// Usage/Metering hooks
// ──────────────────────────────────────────────────

// OnUsageRecorded is called after a usage event is accepted.
type OnUsageRecorded interface {
	Plugin
	OnUsageRecorded(ctx context.Context, event interface{}) error
}

// OnQuotaExceeded is called when a usage event is rejected by quota.
type OnQuotaExceeded interface {
	Plugin
	OnQuotaExceeded(ctx context.Context, userID, usageType string, used, limit int64) error
}

// ──────────────────────────────────────────────────
// Affiliate hooks
// ──────────────────────────────────────────────────

// OnLinkCreated is called when a new affiliate link is created.
type OnLinkCreated interface {
	Plugin
	OnLinkCreated(ctx context.Context, link interface{}) error
}

// OnClickRecorded is called when a click is attributed to a link.
type OnClickRecorded interface {
	Plugin
	OnClickRecorded(ctx context.Context, click interface{}) error
}

// OnConversionRecorded is called when a referred purchase is recorded.
type OnConversionRecorded interface {
	Plugin
	OnConversionRecorded(ctx context.Context, conv interface{}) error
}

// OnConversionSettled is called when a conversion reaches a terminal
// status.
type OnConversionSettled interface {
	Plugin
	OnConversionSettled(ctx context.Context, conv interface{}) error
}

// ──────────────────────────────────────────────────
// Payout hooks
// ──────────────────────────────────────────────────

// OnPayoutRequested is called when a payout request is accepted.
type OnPayoutRequested interface {
	Plugin
	OnPayoutRequested(ctx context.Context, p interface{}) error
}

// OnPayoutDecided is called when a payout reaches a terminal status.
type OnPayoutDecided interface {
	Plugin
	OnPayoutDecided(ctx context.Context, p interface{}) error
}

// ──────────────────────────────────────────────────
// Referral validators
// ──────────────────────────────────────────────────

// ConversionValidator provides custom validation before a conversion is
// recorded. Returning an error rejects the conversion.
type ConversionValidator interface {
	Plugin
	ValidateConversion(ctx context.Context, link interface{}, conv interface{}) error
}
