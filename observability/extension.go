// Package observability provides a metrics extension for Tally that records
// lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/tally/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCreated  = (*MetricsExtension)(nil)
	_ plugin.OnTierChanged          = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCanceled = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionRenewed  = (*MetricsExtension)(nil)
	_ plugin.OnUsageRecorded        = (*MetricsExtension)(nil)
	_ plugin.OnQuotaExceeded        = (*MetricsExtension)(nil)
	_ plugin.OnLinkCreated          = (*MetricsExtension)(nil)
	_ plugin.OnClickRecorded        = (*MetricsExtension)(nil)
	_ plugin.OnConversionRecorded   = (*MetricsExtension)(nil)
	_ plugin.OnConversionSettled    = (*MetricsExtension)(nil)
	_ plugin.OnPayoutRequested      = (*MetricsExtension)(nil)
	_ plugin.OnPayoutDecided        = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Tally plugin to automatically track quota and
// affiliate metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Subscription metrics
	SubscriptionCreated  Counter
	TierChanged          Counter
	SubscriptionCanceled Counter
	SubscriptionRenewed  Counter

	// Usage metrics
	UsageEventsRecorded Counter
	QuotaRejections     Counter

	// Affiliate metrics
	LinksCreated        Counter
	ClicksRecorded      Counter
	ConversionsRecorded Counter
	ConversionsSettled  Counter

	// Payout metrics
	PayoutsRequested Counter
	PayoutsDecided   Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Subscription metrics
		SubscriptionCreated:  factory.Counter("tally.subscription.created"),
		TierChanged:          factory.Counter("tally.subscription.tier_changed"),
		SubscriptionCanceled: factory.Counter("tally.subscription.canceled"),
		SubscriptionRenewed:  factory.Counter("tally.subscription.renewed"),

		// Usage metrics
		UsageEventsRecorded: factory.Counter("tally.usage.events.recorded"),
		QuotaRejections:     factory.Counter("tally.usage.quota.rejected"),

		// Affiliate metrics
		LinksCreated:        factory.Counter("tally.affiliate.links.created"),
		ClicksRecorded:      factory.Counter("tally.affiliate.clicks.recorded"),
		ConversionsRecorded: factory.Counter("tally.affiliate.conversions.recorded"),
		ConversionsSettled:  factory.Counter("tally.affiliate.conversions.settled"),

		// Payout metrics
		PayoutsRequested: factory.Counter("tally.payout.requested"),
		PayoutsDecided:   factory.Counter("tally.payout.decided"),

		// Error metrics
		StoreErrors:  factory.Counter("tally.store.errors"),
		PluginErrors: factory.Counter("tally.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (m *MetricsExtension) OnSubscriptionCreated(_ context.Context, _ interface{}) error {
	m.SubscriptionCreated.Inc()
	return nil
}

// OnTierChanged implements plugin.OnTierChanged.
func (m *MetricsExtension) OnTierChanged(_ context.Context, _ interface{}, _, _ string) error {
	m.TierChanged.Inc()
	return nil
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (m *MetricsExtension) OnSubscriptionCanceled(_ context.Context, _ interface{}) error {
	m.SubscriptionCanceled.Inc()
	return nil
}

// OnSubscriptionRenewed implements plugin.OnSubscriptionRenewed.
func (m *MetricsExtension) OnSubscriptionRenewed(_ context.Context, _ interface{}) error {
	m.SubscriptionRenewed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Usage lifecycle hooks
// ──────────────────────────────────────────────────

// OnUsageRecorded implements plugin.OnUsageRecorded.
func (m *MetricsExtension) OnUsageRecorded(_ context.Context, _ interface{}) error {
	m.UsageEventsRecorded.Inc()
	return nil
}

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (m *MetricsExtension) OnQuotaExceeded(_ context.Context, _, _ string, _, _ int64) error {
	m.QuotaRejections.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Affiliate lifecycle hooks
// ──────────────────────────────────────────────────

// OnLinkCreated implements plugin.OnLinkCreated.
func (m *MetricsExtension) OnLinkCreated(_ context.Context, _ interface{}) error {
	m.LinksCreated.Inc()
	return nil
}

// OnClickRecorded implements plugin.OnClickRecorded.
func (m *MetricsExtension) OnClickRecorded(_ context.Context, _ interface{}) error {
	m.ClicksRecorded.Inc()
	return nil
}

// OnConversionRecorded implements plugin.OnConversionRecorded.
func (m *MetricsExtension) OnConversionRecorded(_ context.Context, _ interface{}) error {
	m.ConversionsRecorded.Inc()
	return nil
}

// OnConversionSettled implements plugin.OnConversionSettled.
func (m *MetricsExtension) OnConversionSettled(_ context.Context, _ interface{}) error {
	m.ConversionsSettled.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Payout lifecycle hooks
// ──────────────────────────────────────────────────

// OnPayoutRequested implements plugin.OnPayoutRequested.
func (m *MetricsExtension) OnPayoutRequested(_ context.Context, _ interface{}) error {
	m.PayoutsRequested.Inc()
	return nil
}

// OnPayoutDecided implements plugin.OnPayoutDecided.
func (m *MetricsExtension) OnPayoutDecided(_ context.Context, _ interface{}) error {
	m.PayoutsDecided.Inc()
	return nil
}
