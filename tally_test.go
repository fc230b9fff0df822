package tally_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	tally "github.com/xraph/tally"
	"github.com/xraph/tally/affiliate"
	"github.com/xraph/tally/meter"
	"github.com/xraph/tally/payout"
	"github.com/xraph/tally/plan"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/types"
)

func newTestTally(t *testing.T, opts ...tally.Option) *tally.Tally {
	t.Helper()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]tally.Option{tally.WithLogger(quiet)}, opts...)

	eng := tally.New(memory.New(), opts...)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	return eng
}

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

func TestCreateSubscription(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	sub, err := eng.CreateSubscription(ctx, "user_1", plan.TierPro)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.Tier != plan.TierPro {
		t.Errorf("tier = %q, want %q", sub.Tier, plan.TierPro)
	}
	if !sub.CurrentPeriodEnd.After(sub.CurrentPeriodStart) {
		t.Error("period end should be after period start")
	}

	// One active subscription per user.
	if _, err := eng.CreateSubscription(ctx, "user_1", plan.TierFree); !errors.Is(err, tally.ErrSubscriptionExists) {
		t.Errorf("duplicate create err = %v, want ErrSubscriptionExists", err)
	}
}

func TestCreateSubscriptionConcurrent(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	// Ten racing creates for one user: exactly one subscription survives.
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := eng.CreateSubscription(ctx, "user_1", plan.TierPro); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
	if _, err := eng.GetActiveSubscription(ctx, "user_1"); err != nil {
		t.Fatalf("active subscription: %v", err)
	}
}

func TestCreateSubscriptionValidation(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	if _, err := eng.CreateSubscription(ctx, "", plan.TierPro); err == nil {
		t.Error("expected error for empty user id")
	}
	if _, err := eng.CreateSubscription(ctx, "user_1", plan.Tier("platinum")); !errors.Is(err, tally.ErrUnknownTier) {
		t.Errorf("unknown tier err = %v, want ErrUnknownTier", err)
	}
}

func TestChangeTier(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	sub, err := eng.CreateSubscription(ctx, "user_1", plan.TierFree)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// New ceilings apply to the current period immediately.
	if _, err := eng.RecordUsage(ctx, "user_1", meter.UsageCredits, 100, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := eng.RecordUsage(ctx, "user_1", meter.UsageCredits, 1, nil); !errors.Is(err, tally.ErrQuotaExceeded) {
		t.Fatalf("over free ceiling err = %v, want ErrQuotaExceeded", err)
	}

	upgraded, err := eng.ChangeTier(ctx, sub.ID, plan.TierPro)
	if err != nil {
		t.Fatalf("change tier: %v", err)
	}
	if upgraded.Tier != plan.TierPro {
		t.Errorf("tier = %q, want %q", upgraded.Tier, plan.TierPro)
	}
	if _, err := eng.RecordUsage(ctx, "user_1", meter.UsageCredits, 1, nil); err != nil {
		t.Errorf("record after upgrade: %v", err)
	}
}

func TestChangeTierCanceled(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	sub, err := eng.CreateSubscription(ctx, "user_1", plan.TierFree)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := eng.CancelSubscription(ctx, sub.ID, true); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := eng.ChangeTier(ctx, sub.ID, plan.TierPro); !errors.Is(err, tally.ErrSubscriptionCanceled) {
		t.Errorf("change tier err = %v, want ErrSubscriptionCanceled", err)
	}
}

func TestRenewSubscriptionResetsQuota(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	sub, err := eng.CreateSubscription(ctx, "user_1", plan.TierFree)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := eng.RecordUsage(ctx, "user_1", meter.UsageCredits, 100, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	remaining, err := eng.RemainingQuota(ctx, "user_1", meter.UsageCredits)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}

	// Rolling the period leaves old events outside the new window.
	if _, err := eng.RenewSubscription(ctx, sub.ID); err != nil {
		t.Fatalf("renew: %v", err)
	}
	remaining, err = eng.RemainingQuota(ctx, "user_1", meter.UsageCredits)
	if err != nil {
		t.Fatalf("remaining after renew: %v", err)
	}
	if remaining != 100 {
		t.Errorf("remaining after renew = %d, want 100", remaining)
	}
}

// ──────────────────────────────────────────────────
// Usage metering
// ──────────────────────────────────────────────────

func TestRecordUsageQuotaCeiling(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	if _, err := eng.CreateSubscription(ctx, "user_1", plan.TierFree); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := eng.RecordUsage(ctx, "user_1", meter.UsageCredits, 60, nil); err != nil {
		t.Fatalf("record 60: %v", err)
	}
	if _, err := eng.RecordUsage(ctx, "user_1", meter.UsageCredits, 40, nil); err != nil {
		t.Fatalf("record 40: %v", err)
	}

	// The event that would cross the ceiling is rejected whole.
	_, err := eng.RecordUsage(ctx, "user_1", meter.UsageCredits, 1, nil)
	var qe *tally.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("record over ceiling err = %v, want QuotaExceededError", err)
	}
	if qe.Ceiling != 100 || qe.Used != 100 || qe.Requested != 1 {
		t.Errorf("QuotaExceededError = %+v", qe)
	}

	// Nothing was written by the rejected event.
	remaining, err := eng.RemainingQuota(ctx, "user_1", meter.UsageCredits)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
}

func TestRecordUsageUnlimited(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	if _, err := eng.CreateSubscription(ctx, "user_1", plan.TierEnterprise); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := eng.RecordUsage(ctx, "user_1", meter.UsageCredits, 1_000_000, nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	remaining, err := eng.RemainingQuota(ctx, "user_1", meter.UsageCredits)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != plan.Unlimited {
		t.Errorf("remaining = %d, want %d", remaining, plan.Unlimited)
	}
}

func TestRecordUsageValidation(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	if _, err := eng.CreateSubscription(ctx, "user_1", plan.TierPro); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := eng.RecordUsage(ctx, "", meter.UsageCredits, 1, nil); err == nil {
		t.Error("expected error for empty user id")
	}
	if _, err := eng.RecordUsage(ctx, "user_1", meter.UsageType("bandwidth"), 1, nil); !errors.Is(err, tally.ErrInvalidUsageType) {
		t.Errorf("invalid type err = %v, want ErrInvalidUsageType", err)
	}
	if _, err := eng.RecordUsage(ctx, "user_1", meter.UsageCredits, -1, nil); !errors.Is(err, tally.ErrInvalidQuantity) {
		t.Errorf("negative amount err = %v, want ErrInvalidQuantity", err)
	}
	if _, err := eng.RecordUsage(ctx, "nobody", meter.UsageCredits, 1, nil); !errors.Is(err, tally.ErrNoActiveSubscription) {
		t.Errorf("no subscription err = %v, want ErrNoActiveSubscription", err)
	}
}

func TestRecordUsageConcurrent(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	if _, err := eng.CreateSubscription(ctx, "user_1", plan.TierFree); err != nil {
		t.Fatalf("create: %v", err)
	}

	// 20 writers of 10 credits against a ceiling of 100: exactly 10 land.
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := eng.RecordUsage(ctx, "user_1", meter.UsageCredits, 10, nil); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 10 {
		t.Errorf("accepted = %d, want 10", accepted)
	}
	remaining, err := eng.RemainingQuota(ctx, "user_1", meter.UsageCredits)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
}

func TestGetUsageSummary(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	if _, err := eng.CreateSubscription(ctx, "user_1", plan.TierPro); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.RecordUsage(ctx, "user_1", meter.UsageCredits, 5, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := eng.RecordUsage(ctx, "user_1", meter.UsageCredits, 7, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := eng.RecordUsage(ctx, "user_1", meter.UsageAPICalls, 3, nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	summaries, err := eng.GetUsageSummary(ctx, "user_1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	byType := make(map[meter.UsageType]meter.Summary, len(summaries))
	for _, s := range summaries {
		byType[s.Type] = s
	}
	if got := byType[meter.UsageCredits]; got.Total != 12 || got.Count != 2 {
		t.Errorf("credits summary = %+v, want total 12 count 2", got)
	}
	if got := byType[meter.UsageAPICalls]; got.Total != 3 || got.Count != 1 {
		t.Errorf("api_calls summary = %+v, want total 3 count 1", got)
	}
}

// ──────────────────────────────────────────────────
// Affiliate links and conversions
// ──────────────────────────────────────────────────

func TestCreateLink(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	link, err := eng.CreateLink(ctx, "affiliate_1", "blog banner", 0)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	if link.CommissionRate != affiliate.DefaultCommissionRate {
		t.Errorf("rate = %v, want default %v", link.CommissionRate, affiliate.DefaultCommissionRate)
	}
	if len(link.Code) != affiliate.CodeLength {
		t.Errorf("code %q length = %d, want %d", link.Code, len(link.Code), affiliate.CodeLength)
	}

	got, err := eng.GetLinkByCode(ctx, link.Code)
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if got.ID != link.ID {
		t.Errorf("lookup returned %v, want %v", got.ID, link.ID)
	}

	if _, err := eng.CreateLink(ctx, "affiliate_1", "", 1.5); !errors.Is(err, tally.ErrInvalidCommissionRate) {
		t.Errorf("rate 1.5 err = %v, want ErrInvalidCommissionRate", err)
	}
}

func TestRecordConversionSnapshotsRate(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	link, err := eng.CreateLink(ctx, "affiliate_1", "", 0.10)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}

	// $200.00 at 10% earns a $20.00 commission.
	conv, err := eng.RecordConversion(ctx, link.ID, "customer_1", types.USD(20000))
	if err != nil {
		t.Fatalf("record conversion: %v", err)
	}
	if conv.CommissionRate != 0.10 {
		t.Errorf("snapshot rate = %v, want 0.10", conv.CommissionRate)
	}
	if conv.CommissionAmount.Amount != 2000 {
		t.Errorf("commission = %d cents, want 2000", conv.CommissionAmount.Amount)
	}
	if conv.Status != affiliate.ConversionPending {
		t.Errorf("status = %q, want pending", conv.Status)
	}
}

func TestRecordConversionSelfReferral(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	link, err := eng.CreateLink(ctx, "affiliate_1", "", 0)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}

	if _, err := eng.RecordConversion(ctx, link.ID, "affiliate_1", types.USD(1000)); !errors.Is(err, tally.ErrSelfReferral) {
		t.Errorf("self referral err = %v, want ErrSelfReferral", err)
	}
}

func TestSettleConversion(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	link, err := eng.CreateLink(ctx, "affiliate_1", "", 0.10)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	conv, err := eng.RecordConversion(ctx, link.ID, "customer_1", types.USD(10000))
	if err != nil {
		t.Fatalf("record conversion: %v", err)
	}

	settled, err := eng.SettleConversion(ctx, conv.ID, affiliate.ConversionCompleted)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Status != affiliate.ConversionCompleted {
		t.Errorf("status = %q, want completed", settled.Status)
	}
	if settled.SettledAt == nil {
		t.Error("settled conversion should carry a settle time")
	}

	// Terminal conversions cannot be settled again.
	if _, err := eng.SettleConversion(ctx, conv.ID, affiliate.ConversionFailed); !errors.Is(err, tally.ErrConversionSettled) {
		t.Errorf("double settle err = %v, want ErrConversionSettled", err)
	}

	// Pending is not a terminal status.
	if _, err := eng.SettleConversion(ctx, conv.ID, affiliate.ConversionPending); err == nil {
		t.Error("expected error settling to pending")
	}
}

func TestLinkStats(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	link, err := eng.CreateLink(ctx, "affiliate_1", "", 0.10)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := eng.RecordClick(ctx, link.ID, nil); err != nil {
			t.Fatalf("click: %v", err)
		}
	}

	completed, err := eng.RecordConversion(ctx, link.ID, "customer_1", types.USD(10000))
	if err != nil {
		t.Fatalf("conversion: %v", err)
	}
	if _, err := eng.SettleConversion(ctx, completed.ID, affiliate.ConversionCompleted); err != nil {
		t.Fatalf("settle: %v", err)
	}
	// A pending conversion counts toward conversions but earns nothing yet.
	if _, err := eng.RecordConversion(ctx, link.ID, "customer_2", types.USD(5000)); err != nil {
		t.Fatalf("conversion: %v", err)
	}

	stats, err := eng.LinkStats(ctx, link.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Clicks != 3 {
		t.Errorf("clicks = %d, want 3", stats.Clicks)
	}
	if stats.Conversions != 2 {
		t.Errorf("conversions = %d, want 2", stats.Conversions)
	}
	if stats.EarnedCommission.Amount != 1000 {
		t.Errorf("earned = %d cents, want 1000", stats.EarnedCommission.Amount)
	}
}

// ──────────────────────────────────────────────────
// Balance and payouts
// ──────────────────────────────────────────────────

// earn records and settles a conversion so the affiliate's balance grows
// by amount * rate.
func earn(t *testing.T, eng *tally.Tally, userID string, amount types.Money) {
	t.Helper()
	ctx := context.Background()

	link, err := eng.CreateLink(ctx, userID, "", 0.10)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	conv, err := eng.RecordConversion(ctx, link.ID, "customer_x", amount)
	if err != nil {
		t.Fatalf("record conversion: %v", err)
	}
	if _, err := eng.SettleConversion(ctx, conv.ID, affiliate.ConversionCompleted); err != nil {
		t.Fatalf("settle: %v", err)
	}
}

func TestGetAvailableBalance(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	balance, err := eng.GetAvailableBalance(ctx, "affiliate_1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 0 {
		t.Errorf("empty balance = %d, want 0", balance.Amount)
	}

	// $600.00 at 10% earns $60.00.
	earn(t, eng, "affiliate_1", types.USD(60000))

	balance, err = eng.GetAvailableBalance(ctx, "affiliate_1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 6000 {
		t.Errorf("balance = %d cents, want 6000", balance.Amount)
	}
}

func TestRequestPayout(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	// A $49.99 balance sits under the $50.00 floor.
	earn(t, eng, "affiliate_1", types.USD(49990))
	_, err := eng.RequestPayout(ctx, "affiliate_1", "paypal", nil)
	var ie *tally.InsufficientBalanceError
	if !errors.As(err, &ie) {
		t.Fatalf("below floor err = %v, want InsufficientBalanceError", err)
	}
	if ie.Balance.Amount != 4999 || ie.Minimum.Amount != 5000 {
		t.Errorf("shortfall = %+v", ie)
	}

	// One more cent of earnings clears the floor; the payout snapshots
	// the entire balance.
	earn(t, eng, "affiliate_1", types.USD(10))
	p, err := eng.RequestPayout(ctx, "affiliate_1", "paypal", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if p.Status != payout.StatusPending {
		t.Errorf("status = %q, want pending", p.Status)
	}
	if p.Amount.Amount != 5000 {
		t.Errorf("payout amount = %d cents, want 5000", p.Amount.Amount)
	}

	// The pending payout reserves everything.
	balance, err := eng.GetAvailableBalance(ctx, "affiliate_1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 0 {
		t.Errorf("balance = %d cents, want 0", balance.Amount)
	}

	// A retried request after the first one reserved the balance fails.
	if _, err := eng.RequestPayout(ctx, "affiliate_1", "paypal", nil); !errors.Is(err, tally.ErrInsufficientBalance) {
		t.Errorf("retry err = %v, want ErrInsufficientBalance", err)
	}
}

func TestDecidePayout(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	earn(t, eng, "affiliate_1", types.USD(60000)) // $60.00 balance

	p, err := eng.RequestPayout(ctx, "affiliate_1", "wire", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if p.Amount.Amount != 6000 {
		t.Fatalf("payout amount = %d cents, want 6000", p.Amount.Amount)
	}

	// Rejection releases the reserved amount back to the balance.
	rejected, err := eng.DecidePayout(ctx, p.ID, payout.DecisionReject)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != payout.StatusFailed {
		t.Errorf("status = %q, want failed", rejected.Status)
	}
	balance, err := eng.GetAvailableBalance(ctx, "affiliate_1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 6000 {
		t.Errorf("balance after reject = %d cents, want 6000", balance.Amount)
	}

	// Approval spends the amount for good.
	p2, err := eng.RequestPayout(ctx, "affiliate_1", "wire", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	approved, err := eng.DecidePayout(ctx, p2.ID, payout.DecisionApprove)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != payout.StatusCompleted {
		t.Errorf("status = %q, want completed", approved.Status)
	}
	if approved.ProcessedAt == nil {
		t.Error("completed payout should carry a processed time")
	}
	balance, err = eng.GetAvailableBalance(ctx, "affiliate_1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 0 {
		t.Errorf("balance after approve = %d cents, want 0", balance.Amount)
	}

	// Terminal payouts cannot be decided again.
	if _, err := eng.DecidePayout(ctx, p2.ID, payout.DecisionReject); !errors.Is(err, tally.ErrPayoutFinalized) {
		t.Errorf("double decide err = %v, want ErrPayoutFinalized", err)
	}
}

func TestMarkPayoutProcessing(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	earn(t, eng, "affiliate_1", types.USD(60000))

	p, err := eng.RequestPayout(ctx, "affiliate_1", "wire", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	processing, err := eng.MarkPayoutProcessing(ctx, p.ID)
	if err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if processing.Status != payout.StatusProcessing {
		t.Errorf("status = %q, want processing", processing.Status)
	}

	// Processing keeps the amount reserved.
	balance, err := eng.GetAvailableBalance(ctx, "affiliate_1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 0 {
		t.Errorf("balance = %d cents, want 0", balance.Amount)
	}

	// Processing can still be decided, but not re-marked.
	if _, err := eng.MarkPayoutProcessing(ctx, p.ID); !errors.Is(err, tally.ErrInvalidTransition) {
		t.Errorf("double mark err = %v, want ErrInvalidTransition", err)
	}
	if _, err := eng.DecidePayout(ctx, p.ID, payout.DecisionApprove); err != nil {
		t.Errorf("decide processing payout: %v", err)
	}
}

func TestRequestPayoutConcurrent(t *testing.T) {
	eng := newTestTally(t)
	ctx := context.Background()

	earn(t, eng, "affiliate_1", types.USD(50000)) // exactly $50.00 balance

	// Ten racing requests for the whole balance: exactly one wins.
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := eng.RequestPayout(ctx, "affiliate_1", "paypal", nil); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 1 {
		t.Errorf("granted = %d, want 1", granted)
	}
	balance, err := eng.GetAvailableBalance(ctx, "affiliate_1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 0 {
		t.Errorf("balance = %d cents, want 0", balance.Amount)
	}
}
