package tally_test

import (
	"context"
	"log"
	"log/slog"
	"testing"

	"github.com/xraph/tally"
	"github.com/xraph/tally/affiliate"
	"github.com/xraph/tally/meter"
	"github.com/xraph/tally/payout"
	"github.com/xraph/tally/plan"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize Tally
		eng := tally.New(store,
			tally.WithLogger(slog.Default()),
			tally.WithMinPayout(types.USD(5000)),
			tally.WithCurrency("usd"),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Put a user on the free tier
		sub, err := eng.CreateSubscription(ctx, "user_123", plan.TierFree)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("Subscribed %s to %s\n", sub.UserID, sub.Tier)

		// Meter usage against the tier's monthly ceiling
		if _, err := eng.RecordUsage(ctx, "user_123", meter.UsageCredits, 10, nil); err != nil {
			t.Fatal(err)
		}

		remaining, err := eng.RemainingQuota(ctx, "user_123", meter.UsageCredits)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("Credits remaining this period: %d\n", remaining)

		// Mint a referral link and record a referred purchase
		link, err := eng.CreateLink(ctx, "affiliate_9", "newsletter", 0.10)
		if err != nil {
			t.Fatal(err)
		}

		conv, err := eng.RecordConversion(ctx, link.ID, "customer_7", types.USD(20000))
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("Commission earned on settle: %s\n", conv.CommissionAmount.String())

		// Commission becomes payable once the conversion settles
		if _, err := eng.SettleConversion(ctx, conv.ID, affiliate.ConversionCompleted); err != nil {
			t.Fatal(err)
		}

		balance, err := eng.GetAvailableBalance(ctx, "affiliate_9")
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("Available balance: %s\n", balance.String())
	})

	// Test payout flow example
	t.Run("PayoutExample", func(t *testing.T) {
		eng := tally.New(memory.New())
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		link, err := eng.CreateLink(ctx, "affiliate_9", "", 0.10)
		if err != nil {
			t.Fatal(err)
		}
		conv, err := eng.RecordConversion(ctx, link.ID, "customer_7", types.USD(60000))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := eng.SettleConversion(ctx, conv.ID, affiliate.ConversionCompleted); err != nil {
			t.Fatal(err)
		}

		// Request a payout of the whole balance; it is reserved immediately
		p, err := eng.RequestPayout(ctx, "affiliate_9", "paypal",
			map[string]string{"email": "affiliate@example.com"})
		if err != nil {
			t.Fatal(err)
		}

		// An operator approves or rejects it later
		decided, err := eng.DecidePayout(ctx, p.ID, payout.DecisionApprove)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("Payout %s is %s\n", decided.ID.String(), decided.Status)
	})

	// Test Money type examples
	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = types.USD(4900)   // $49.00
		_ = types.EUR(9900)   // €99.00
		_ = types.Zero("usd") // $0.00

		// Arithmetic
		m1 := types.USD(100)
		m2 := types.USD(200)
		_ = m1.Add(m2)         // $3.00
		_ = m1.Multiply(3)     // $3.00
		_ = m1.ApplyRate(0.10) // $0.10

		// Comparison
		if m1.LessThan(m2) {
			// m1 is less than m2
		}

		// Formatting
		_ = m1.String()      // "$1.00"
		_ = m1.FormatMajor() // "1.00"
	})
}
