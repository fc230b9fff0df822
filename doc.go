// Package tally provides a composable usage-quota and affiliate commission
// engine for Go applications.
//
// Tally is designed as a library, not a service. Import it directly into your
// Go application for maximum performance and flexibility. It provides:
//
//   - Append-only usage metering with atomic per-period quota enforcement
//   - A static tier catalog with per-resource ceilings and unlimited tiers
//   - Affiliate links with unique referral codes and click attribution
//   - Commission snapshots in integer currency units, never recomputed
//   - A payout lifecycle with balance reservation and minimum-amount floors
//   - A plugin system for reacting to every lifecycle event
//
// # Quick Start
//
// Create a tally instance with your preferred store:
//
//	import (
//	    "github.com/xraph/tally"
//	    "github.com/xraph/tally/store/postgres"
//	)
//
//	// Initialize store
//	store, err := postgres.New(databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create engine
//	t := tally.New(store)
//
//	// Start the engine (runs migrations, initializes plugins)
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Stop()
//
// # Core Concepts
//
// Subscriptions connect users to quota tiers for a monthly period:
//
//	sub, err := t.CreateSubscription(ctx, userID, plan.TierPro)
//
// Usage events are checked against the tier's ceiling for the current
// billing period and rejected whole when they would exceed it:
//
//	_, err := t.RecordUsage(ctx, userID, meter.UsageCredits, 25, nil)
//	if errors.Is(err, tally.ErrQuotaExceeded) {
//	    // Over the ceiling; nothing was written
//	}
//
// Affiliate links earn commission on referred purchases. The commission
// is snapshotted from the link's rate when the conversion is recorded:
//
//	link, _ := t.CreateLink(ctx, userID, "newsletter", 0)
//	conv, _ := t.RecordConversion(ctx, link.ID, referredID, tally.USD(20000))
//
// Completed conversions become payable balance, and payouts draw it down:
//
//	p, err := t.RequestPayout(ctx, userID, "bank_transfer", nil)
//
// # Correctness
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest
// currency unit (cents for USD, pence for GBP, etc). Quota checks and
// payout balance checks are serialized so concurrent requests can never
// overdraw a ceiling or a balance.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	sub_01h2xcejqtf2nbrexx3vqjhp41   // Subscription ID
//	link_01h2xcejqtf2nbrexx3vqjhp41  // Affiliate link ID
//	pout_01h455vb4pex5vsknk084sn02q  // Payout ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package tally
