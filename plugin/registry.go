package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onSubscriptionCreated  []OnSubscriptionCreated
	onTierChanged          []OnTierChanged
	onSubscriptionCanceled []OnSubscriptionCanceled
	onSubscriptionRenewed  []OnSubscriptionRenewed
	onUsageRecorded        []OnUsageRecorded
	onQuotaExceeded        []OnQuotaExceeded
	onLinkCreated          []OnLinkCreated
	onClickRecorded        []OnClickRecorded
	onConversionRecorded   []OnConversionRecorded
	onConversionSettled    []OnConversionSettled
	onPayoutRequested      []OnPayoutRequested
	onPayoutDecided        []OnPayoutDecided
	conversionValidators   []ConversionValidator
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnSubscriptionCreated); ok {
		r.onSubscriptionCreated = append(r.onSubscriptionCreated, v)
	}
	if v, ok := p.(OnTierChanged); ok {
		r.onTierChanged = append(r.onTierChanged, v)
	}
	if v, ok := p.(OnSubscriptionCanceled); ok {
		r.onSubscriptionCanceled = append(r.onSubscriptionCanceled, v)
	}
	if v, ok := p.(OnSubscriptionRenewed); ok {
		r.onSubscriptionRenewed = append(r.onSubscriptionRenewed, v)
	}
	if v, ok := p.(OnUsageRecorded); ok {
		r.onUsageRecorded = append(r.onUsageRecorded, v)
	}
	if v, ok := p.(OnQuotaExceeded); ok {
		r.onQuotaExceeded = append(r.onQuotaExceeded, v)
	}
	if v, ok := p.(OnLinkCreated); ok {
		r.onLinkCreated = append(r.onLinkCreated, v)
	}
	if v, ok := p.(OnClickRecorded); ok {
		r.onClickRecorded = append(r.onClickRecorded, v)
	}
	if v, ok := p.(OnConversionRecorded); ok {
		r.onConversionRecorded = append(r.onConversionRecorded, v)
	}
	if v, ok := p.(OnConversionSettled); ok {
		r.onConversionSettled = append(r.onConversionSettled, v)
	}
	if v, ok := p.(OnPayoutRequested); ok {
		r.onPayoutRequested = append(r.onPayoutRequested, v)
	}
	if v, ok := p.(OnPayoutDecided); ok {
		r.onPayoutDecided = append(r.onPayoutDecided, v)
	}
	if v, ok := p.(ConversionValidator); ok {
		r.conversionValidators = append(r.conversionValidators, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnSubscriptionCreated)(nil)).Elem(), "OnSubscriptionCreated")
	checkInterface(reflect.TypeOf((*OnUsageRecorded)(nil)).Elem(), "OnUsageRecorded")
	checkInterface(reflect.TypeOf((*OnQuotaExceeded)(nil)).Elem(), "OnQuotaExceeded")
	checkInterface(reflect.TypeOf((*OnLinkCreated)(nil)).Elem(), "OnLinkCreated")
	checkInterface(reflect.TypeOf((*OnConversionRecorded)(nil)).Elem(), "OnConversionRecorded")
	checkInterface(reflect.TypeOf((*OnPayoutRequested)(nil)).Elem(), "OnPayoutRequested")
	checkInterface(reflect.TypeOf((*OnPayoutDecided)(nil)).Elem(), "OnPayoutDecided")
	checkInterface(reflect.TypeOf((*ConversionValidator)(nil)).Elem(), "ConversionValidator")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionCreated emits a subscription created event.
func (r *Registry) EmitSubscriptionCreated(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCreated(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTierChanged emits a tier change event.
func (r *Registry) EmitTierChanged(ctx context.Context, sub interface{}, oldTier, newTier string) {
	r.mu.RLock()
	plugins := r.onTierChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTierChanged(ctx, sub, oldTier, newTier)
		}); err != nil {
			r.logger.Warn("plugin OnTierChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionCanceled emits a subscription canceled event.
func (r *Registry) EmitSubscriptionCanceled(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionCanceled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCanceled(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCanceled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionRenewed emits a subscription renewed event.
func (r *Registry) EmitSubscriptionRenewed(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionRenewed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionRenewed(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionRenewed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUsageRecorded emits a usage recorded event.
func (r *Registry) EmitUsageRecorded(ctx context.Context, event interface{}) {
	r.mu.RLock()
	plugins := r.onUsageRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUsageRecorded(ctx, event)
		}); err != nil {
			r.logger.Warn("plugin OnUsageRecorded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitQuotaExceeded emits a quota exceeded event.
func (r *Registry) EmitQuotaExceeded(ctx context.Context, userID, usageType string, used, limit int64) {
	r.mu.RLock()
	plugins := r.onQuotaExceeded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnQuotaExceeded(ctx, userID, usageType, used, limit)
		}); err != nil {
			r.logger.Warn("plugin OnQuotaExceeded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLinkCreated emits a link created event.
func (r *Registry) EmitLinkCreated(ctx context.Context, link interface{}) {
	r.mu.RLock()
	plugins := r.onLinkCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLinkCreated(ctx, link)
		}); err != nil {
			r.logger.Warn("plugin OnLinkCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitClickRecorded emits a click recorded event.
func (r *Registry) EmitClickRecorded(ctx context.Context, click interface{}) {
	r.mu.RLock()
	plugins := r.onClickRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnClickRecorded(ctx, click)
		}); err != nil {
			r.logger.Warn("plugin OnClickRecorded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitConversionRecorded emits a conversion recorded event.
func (r *Registry) EmitConversionRecorded(ctx context.Context, conv interface{}) {
	r.mu.RLock()
	plugins := r.onConversionRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnConversionRecorded(ctx, conv)
		}); err != nil {
			r.logger.Warn("plugin OnConversionRecorded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitConversionSettled emits a conversion settled event.
func (r *Registry) EmitConversionSettled(ctx context.Context, conv interface{}) {
	r.mu.RLock()
	plugins := r.onConversionSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnConversionSettled(ctx, conv)
		}); err != nil {
			r.logger.Warn("plugin OnConversionSettled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPayoutRequested emits a payout requested event.
func (r *Registry) EmitPayoutRequested(ctx context.Context, payout interface{}) {
	r.mu.RLock()
	plugins := r.onPayoutRequested
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPayoutRequested(ctx, payout)
		}); err != nil {
			r.logger.Warn("plugin OnPayoutRequested failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPayoutDecided emits a payout decided event.
func (r *Registry) EmitPayoutDecided(ctx context.Context, payout interface{}) {
	r.mu.RLock()
	plugins := r.onPayoutDecided
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPayoutDecided(ctx, payout)
		}); err != nil {
			r.logger.Warn("plugin OnPayoutDecided failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// ValidateConversion runs all registered conversion validators. The
// first validation error aborts the conversion.
func (r *Registry) ValidateConversion(ctx context.Context, link, conv interface{}) error {
	r.mu.RLock()
	validators := r.conversionValidators
	r.mu.RUnlock()

	for _, v := range validators {
		if err := v.ValidateConversion(ctx, link, conv); err != nil {
			return fmt.Errorf("plugin %s rejected conversion: %w", v.Name(), err)
		}
	}
	return nil
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the billing pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
