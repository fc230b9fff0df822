package tally

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/tally/affiliate"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/meter"
	"github.com/xraph/tally/payout"
	"github.com/xraph/tally/plan"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/subscription"
	"github.com/xraph/tally/types"
)

// DefaultMinPayout is the payout floor applied unless overridden.
var DefaultMinPayout = types.USD(5000)

// DefaultCurrency is the ledger currency applied unless overridden.
const DefaultCurrency = "usd"

// codeRetries bounds regeneration attempts when a generated referral
// code collides with an existing one.
const codeRetries = 5

// Tally is the main quota and commission engine.
type Tally struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// Configuration
	catalog   plan.Catalog
	minPayout types.Money
	currency  string

	// subLocks serializes subscription creation per user;
	// usageLocks serializes quota checks per (user, usage type);
	// payoutLocks serializes balance reads against payout writes per user.
	subLocks    stripedMutex
	usageLocks  stripedMutex
	payoutLocks stripedMutex
}

// New creates a new Tally instance.
func New(s store.Store, opts ...Option) *Tally {
	t := &Tally{
		store:     s,
		plugins:   plugin.NewRegistry(),
		logger:    slog.Default(),
		catalog:   plan.DefaultCatalog(),
		minPayout: DefaultMinPayout,
		currency:  DefaultCurrency,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Option configures a Tally instance.
type Option func(*Tally)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tally) {
		t.logger = logger
		t.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(t *Tally) {
		_ = t.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCatalog replaces the built-in quota catalog.
func WithCatalog(c plan.Catalog) Option {
	return func(t *Tally) {
		t.catalog = c
	}
}

// WithMinPayout sets the payout floor.
func WithMinPayout(m types.Money) Option {
	return func(t *Tally) {
		t.minPayout = m
	}
}

// WithCurrency sets the ledger currency for commission and payouts.
func WithCurrency(currency string) Option {
	return func(t *Tally) {
		t.currency = strings.ToLower(currency)
	}
}

// Start migrates the store and initializes plugins.
func (t *Tally) Start(ctx context.Context) error {
	if err := t.catalog.Validate(); err != nil {
		return err
	}

	if err := t.store.Migrate(ctx); err != nil {
		return err
	}

	t.plugins.EmitInit(ctx, t)

	t.logger.Info("tally started",
		"min_payout", t.minPayout.String(),
		"currency", t.currency,
		"plugins", t.plugins.Count(),
	)

	return nil
}

// Stop shuts down the engine.
func (t *Tally) Stop() error {
	t.plugins.EmitShutdown(context.Background())
	return t.store.Close()
}

// Plugins exposes the plugin registry.
func (t *Tally) Plugins() *plugin.Registry {
	return t.plugins
}

// ──────────────────────────────────────────────────
// Subscription Management
// ──────────────────────────────────────────────────

// CreateSubscription starts a monthly subscription for a user. A user
// holds at most one active subscription.
func (t *Tally) CreateSubscription(ctx context.Context, userID string, tier plan.Tier) (*subscription.Subscription, error) {
	if userID == "" {
		return nil, ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	if !tier.Valid() {
		return nil, ErrUnknownTier
	}

	// The existence check and the insert must not interleave with another
	// create for the same user, or both would pass the check. The stores'
	// unique active-subscription constraint backstops other writers.
	mu := t.subLocks.lock(userID)
	defer mu.Unlock()

	if _, err := t.store.GetActiveSubscription(ctx, userID); err == nil {
		return nil, ErrSubscriptionExists
	} else if !errors.Is(err, ErrNoActiveSubscription) {
		return nil, err
	}

	now := time.Now().UTC()
	sub := &subscription.Subscription{
		Entity:             types.NewEntity(),
		ID:                 id.NewSubscriptionID(),
		UserID:             userID,
		Tier:               tier,
		Status:             subscription.StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
	}

	if err := t.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	t.plugins.EmitSubscriptionCreated(ctx, sub)
	return sub, nil
}

// GetSubscription retrieves a subscription by ID.
func (t *Tally) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return t.store.GetSubscription(ctx, subID)
}

// GetActiveSubscription retrieves the active subscription for a user.
func (t *Tally) GetActiveSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	return t.store.GetActiveSubscription(ctx, userID)
}

// ChangeTier moves a subscription to a different tier. The new ceilings
// apply to the current billing period immediately; usage already recorded
// is kept as is.
func (t *Tally) ChangeTier(ctx context.Context, subID id.SubscriptionID, newTier plan.Tier) (*subscription.Subscription, error) {
	if !newTier.Valid() {
		return nil, ErrUnknownTier
	}

	sub, err := t.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}
	if sub.Status != subscription.StatusActive {
		return nil, ErrSubscriptionCanceled
	}
	if sub.Tier == newTier {
		return sub, nil
	}

	oldTier := sub.Tier
	sub.Tier = newTier
	sub.Touch()

	if err := t.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	t.plugins.EmitTierChanged(ctx, sub, string(oldTier), string(newTier))
	return sub, nil
}

// RenewSubscription rolls the subscription into its next monthly period.
// Quota aggregation follows the period, so usage counters effectively
// reset. Rollover is caller-triggered; the engine runs no timers.
func (t *Tally) RenewSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	sub, err := t.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}
	if sub.Status != subscription.StatusActive {
		return nil, ErrSubscriptionCanceled
	}

	sub.Advance()
	sub.Touch()

	if err := t.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	t.plugins.EmitSubscriptionRenewed(ctx, sub)
	return sub, nil
}

// CancelSubscription cancels a subscription, immediately or at the end
// of the current period.
func (t *Tally) CancelSubscription(ctx context.Context, subID id.SubscriptionID, immediately bool) error {
	sub, err := t.store.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}

	cancelAt := sub.CurrentPeriodEnd
	if immediately {
		cancelAt = time.Now().UTC()
	}

	if err := t.store.CancelSubscription(ctx, subID, cancelAt); err != nil {
		return err
	}

	t.plugins.EmitSubscriptionCanceled(ctx, sub)
	return nil
}

// ──────────────────────────────────────────────────
// Usage Metering
// ──────────────────────────────────────────────────

// RecordUsage appends a usage event after checking the owner's quota for
// the current billing period. The check and the append are atomic with
// respect to concurrent calls for the same user and usage type; an event
// that would push the period aggregate past the tier ceiling is rejected
// whole with a QuotaExceededError and nothing is written.
func (t *Tally) RecordUsage(ctx context.Context, userID string, typ meter.UsageType, amount int64, metadata map[string]string) (*meter.UsageEvent, error) {
	if userID == "" {
		return nil, ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	if !typ.Valid() {
		return nil, ErrInvalidUsageType
	}
	if amount < 0 {
		return nil, ErrInvalidQuantity
	}

	mu := t.usageLocks.lock(userID + "/" + string(typ))
	defer mu.Unlock()

	sub, err := t.store.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	ceiling := t.catalog.Ceiling(sub.Tier, typ)

	event := &meter.UsageEvent{
		ID:        id.NewUsageEventID(),
		UserID:    userID,
		Type:      typ,
		Amount:    amount,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}

	if err := t.store.AppendUsage(ctx, event, sub.Window(), ceiling); err != nil {
		var qe *QuotaExceededError
		if errors.As(err, &qe) {
			t.plugins.EmitQuotaExceeded(ctx, userID, string(typ), qe.Used, qe.Ceiling)
		}
		return nil, err
	}

	t.plugins.EmitUsageRecorded(ctx, event)
	return event, nil
}

// GetUsageSummary returns lifetime usage aggregates per type for a user.
func (t *Tally) GetUsageSummary(ctx context.Context, userID string) ([]meter.Summary, error) {
	return t.store.SummarizeUsage(ctx, userID)
}

// RemainingQuota returns how much of a usage type the user may still
// consume in the current billing period. Unlimited ceilings report -1.
func (t *Tally) RemainingQuota(ctx context.Context, userID string, typ meter.UsageType) (int64, error) {
	if !typ.Valid() {
		return 0, ErrInvalidUsageType
	}

	sub, err := t.store.GetActiveSubscription(ctx, userID)
	if err != nil {
		return 0, err
	}

	ceiling := t.catalog.Ceiling(sub.Tier, typ)
	if ceiling == plan.Unlimited {
		return plan.Unlimited, nil
	}

	used, err := t.store.AggregateUsage(ctx, userID, typ, sub.Window())
	if err != nil {
		return 0, err
	}

	return max(0, ceiling-used), nil
}

// ──────────────────────────────────────────────────
// Affiliate Links
// ──────────────────────────────────────────────────

// CreateLink mints a referral link with a unique code. A zero rate
// selects the default commission rate.
func (t *Tally) CreateLink(ctx context.Context, userID, description string, rate float64) (*affiliate.Link, error) {
	if userID == "" {
		return nil, ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	if rate == 0 {
		rate = affiliate.DefaultCommissionRate
	}
	if rate < 0 || rate > 1 {
		return nil, ErrInvalidCommissionRate
	}

	link := &affiliate.Link{
		Entity:         types.NewEntity(),
		ID:             id.NewLinkID(),
		UserID:         userID,
		Description:    description,
		CommissionRate: rate,
	}

	// The code column carries a unique index, so a race between two
	// generators surfaces as ErrCodeTaken and we roll a fresh code.
	for attempt := 0; attempt < codeRetries; attempt++ {
		code, err := affiliate.GenerateCode()
		if err != nil {
			return nil, err
		}
		link.Code = code

		err = t.store.CreateLink(ctx, link)
		if err == nil {
			t.plugins.EmitLinkCreated(ctx, link)
			return link, nil
		}
		if !errors.Is(err, ErrCodeTaken) {
			return nil, err
		}
	}

	return nil, ErrCodeGeneration
}

// GetLink retrieves a link by ID.
func (t *Tally) GetLink(ctx context.Context, linkID id.LinkID) (*affiliate.Link, error) {
	return t.store.GetLink(ctx, linkID)
}

// GetLinkByCode retrieves a link by referral code.
func (t *Tally) GetLinkByCode(ctx context.Context, code string) (*affiliate.Link, error) {
	return t.store.GetLinkByCode(ctx, code)
}

// ListLinks returns the user's referral links.
func (t *Tally) ListLinks(ctx context.Context, userID string, opts affiliate.ListOpts) ([]*affiliate.Link, error) {
	return t.store.ListLinks(ctx, userID, opts)
}

// RecordClick attributes a visit to a referral link. Redirect handlers
// resolve the code with GetLinkByCode first.
func (t *Tally) RecordClick(ctx context.Context, linkID id.LinkID, metadata map[string]string) (*affiliate.Click, error) {
	link, err := t.store.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}

	click := &affiliate.Click{
		ID:        id.NewClickID(),
		LinkID:    link.ID,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}

	if err := t.store.CreateClick(ctx, click); err != nil {
		return nil, err
	}

	t.plugins.EmitClickRecorded(ctx, click)
	return click, nil
}

// RecordConversion records a referred purchase against a referral link.
// The link's commission rate is snapshotted on the conversion; changing
// the link later never reprices recorded conversions. The conversion
// starts pending and earns nothing until settled as completed.
func (t *Tally) RecordConversion(ctx context.Context, linkID id.LinkID, referredUserID string, amount types.Money) (*affiliate.Conversion, error) {
	if amount.IsNegative() {
		return nil, ValidationError{Field: "amount", Message: "must not be negative"}
	}

	link, err := t.store.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if referredUserID != "" && referredUserID == link.UserID {
		return nil, ErrSelfReferral
	}

	conv := &affiliate.Conversion{
		Entity:           types.NewEntity(),
		ID:               id.NewConversionID(),
		LinkID:           link.ID,
		ReferredUserID:   referredUserID,
		Amount:           amount,
		CommissionRate:   link.CommissionRate,
		CommissionAmount: amount.ApplyRate(link.CommissionRate),
		Status:           affiliate.ConversionPending,
	}

	if err := t.plugins.ValidateConversion(ctx, link, conv); err != nil {
		return nil, err
	}

	if err := t.store.CreateConversion(ctx, conv); err != nil {
		return nil, err
	}

	t.plugins.EmitConversionRecorded(ctx, conv)
	return conv, nil
}

// SettleConversion moves a pending conversion to completed or failed.
// Completed commission becomes payable balance; failed earns nothing.
// Terminal conversions cannot be settled again.
func (t *Tally) SettleConversion(ctx context.Context, convID id.ConversionID, status affiliate.ConversionStatus) (*affiliate.Conversion, error) {
	if !status.Terminal() {
		return nil, ValidationError{Field: "status", Message: "must be completed or failed"}
	}

	if err := t.store.SettleConversion(ctx, convID, status, time.Now().UTC()); err != nil {
		return nil, err
	}

	conv, err := t.store.GetConversion(ctx, convID)
	if err != nil {
		return nil, err
	}

	t.plugins.EmitConversionSettled(ctx, conv)
	return conv, nil
}

// LinkStats aggregates clicks, conversions and earned commission for a
// link. Earned commission counts only completed conversions.
func (t *Tally) LinkStats(ctx context.Context, linkID id.LinkID) (*affiliate.Stats, error) {
	link, err := t.store.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}

	clicks, err := t.store.CountClicks(ctx, linkID)
	if err != nil {
		return nil, err
	}

	convs, err := t.store.ListConversions(ctx, linkID, affiliate.ListOpts{})
	if err != nil {
		return nil, err
	}

	stats := &affiliate.Stats{
		LinkID:           link.ID,
		Clicks:           clicks,
		Conversions:      int64(len(convs)),
		EarnedCommission: types.Zero(t.currency),
	}
	for _, c := range convs {
		if c.Status == affiliate.ConversionCompleted {
			stats.EarnedCommission = stats.EarnedCommission.Add(c.CommissionAmount)
		}
	}

	return stats, nil
}

// ──────────────────────────────────────────────────
// Balance and Payouts
// ──────────────────────────────────────────────────

// GetAvailableBalance returns completed commission minus everything held by
// the user's payouts that have not failed. Pending and processing
// payouts reserve their amount so overlapping requests cannot spend the
// same commission twice.
func (t *Tally) GetAvailableBalance(ctx context.Context, userID string) (types.Money, error) {
	earned, err := t.store.SumSettledCommission(ctx, userID)
	if err != nil {
		return types.Money{}, err
	}

	reserved, err := t.store.SumReservedPayouts(ctx, userID)
	if err != nil {
		return types.Money{}, err
	}

	return types.Money{Amount: earned - reserved, Currency: t.currency}, nil
}

// RequestPayout snapshots the entire available balance into a pending
// payout, reserving it immediately. Partial requests are not supported;
// a balance under the payout floor is rejected with
// InsufficientBalanceError. Concurrent requests for the same user are
// serialized so two cannot both pass the balance check.
func (t *Tally) RequestPayout(ctx context.Context, userID, method string, details map[string]string) (*payout.Payout, error) {
	if userID == "" {
		return nil, ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	if method == "" {
		return nil, ValidationError{Field: "method", Message: "must not be empty"}
	}

	mu := t.payoutLocks.lock(userID)
	defer mu.Unlock()

	balance, err := t.GetAvailableBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(t.minPayout) {
		return nil, &InsufficientBalanceError{Balance: balance, Minimum: t.minPayout}
	}

	p := &payout.Payout{
		Entity:  types.NewEntity(),
		ID:      id.NewPayoutID(),
		UserID:  userID,
		Amount:  balance,
		Status:  payout.StatusPending,
		Method:  method,
		Details: details,
	}

	if err := t.store.CreatePayout(ctx, p); err != nil {
		return nil, err
	}

	t.logger.Info("payout requested",
		"payout_id", p.ID.String(),
		"user_id", userID,
		"amount", balance.String(),
	)

	t.plugins.EmitPayoutRequested(ctx, p)
	return p, nil
}

// GetPayout retrieves a payout by ID.
func (t *Tally) GetPayout(ctx context.Context, payoutID id.PayoutID) (*payout.Payout, error) {
	return t.store.GetPayout(ctx, payoutID)
}

// ListPayouts returns payouts matching the options.
func (t *Tally) ListPayouts(ctx context.Context, opts payout.ListOpts) ([]*payout.Payout, error) {
	return t.store.ListPayouts(ctx, opts)
}

// MarkPayoutProcessing moves a pending payout into processing while an
// operator or payment rail handles it. The amount stays reserved.
func (t *Tally) MarkPayoutProcessing(ctx context.Context, payoutID id.PayoutID) (*payout.Payout, error) {
	return t.transitionPayout(ctx, payoutID, payout.StatusProcessing)
}

// DecidePayout finalizes a pending or processing payout. Approval
// completes it and the amount leaves the balance for good; rejection
// fails it and the amount returns to the available balance. Terminal
// payouts cannot be decided again.
func (t *Tally) DecidePayout(ctx context.Context, payoutID id.PayoutID, decision payout.Decision) (*payout.Payout, error) {
	if !decision.Valid() {
		return nil, ValidationError{Field: "decision", Message: "must be approve or reject"}
	}

	p, err := t.transitionPayout(ctx, payoutID, decision.Status())
	if err != nil {
		return nil, err
	}

	t.plugins.EmitPayoutDecided(ctx, p)
	return p, nil
}

func (t *Tally) transitionPayout(ctx context.Context, payoutID id.PayoutID, to payout.Status) (*payout.Payout, error) {
	p, err := t.store.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	mu := t.payoutLocks.lock(p.UserID)
	defer mu.Unlock()

	// Re-read under the lock so a concurrent decision cannot slip in
	// between the status check and the write.
	p, err = t.store.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	if p.Status.Terminal() {
		return nil, ErrPayoutFinalized
	}
	if !payout.CanTransition(p.Status, to) {
		return nil, ErrInvalidTransition
	}

	var processedAt *time.Time
	if to.Terminal() {
		now := time.Now().UTC()
		processedAt = &now
	}

	if err := t.store.SetPayoutStatus(ctx, payoutID, to, processedAt); err != nil {
		return nil, err
	}

	p.Status = to
	p.ProcessedAt = processedAt
	p.Touch()

	t.logger.Info("payout transitioned",
		"payout_id", p.ID.String(),
		"status", string(to),
	)

	return p, nil
}
