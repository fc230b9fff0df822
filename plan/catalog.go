// Package plan defines subscription tiers and the static quota catalog.
//
// The catalog is configuration data: it is loaded once at process start and
// never mutated at runtime. Quota ceilings are integers per usage type, with
// Unlimited (-1) disabling enforcement for that type.
package plan

import (
	"fmt"

	"github.com/xraph/tally/meter"
)

// Tier is a subscription plan tier.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierBusiness   Tier = "business"
	TierEnterprise Tier = "enterprise"
)

// Unlimited disables quota enforcement for a usage type.
const Unlimited int64 = -1

// Valid reports whether the tier is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierBusiness, TierEnterprise:
		return true
	}
	return false
}

// Limits maps usage types to their per-period ceilings for one tier.
type Limits map[meter.UsageType]int64

// Catalog is the full quota table: tier → usage type → ceiling.
type Catalog map[Tier]Limits

// DefaultCatalog returns the built-in quota table. Storage ceilings are in
// bytes; credits and api_calls are counts per billing period.
func DefaultCatalog() Catalog {
	return Catalog{
		TierFree: {
			meter.UsageCredits:  100,
			meter.UsageStorage:  100 << 20, // 100 MiB
			meter.UsageAPICalls: 1000,
		},
		TierPro: {
			meter.UsageCredits:  5000,
			meter.UsageStorage:  10 << 30, // 10 GiB
			meter.UsageAPICalls: 100000,
		},
		TierBusiness: {
			meter.UsageCredits:  Unlimited,
			meter.UsageStorage:  100 << 30, // 100 GiB
			meter.UsageAPICalls: 1000000,
		},
		TierEnterprise: {
			meter.UsageCredits:  Unlimited,
			meter.UsageStorage:  Unlimited,
			meter.UsageAPICalls: Unlimited,
		},
	}
}

// Ceiling returns the quota ceiling for (tier, typ). Unknown combinations
// fall back to the free tier's ceiling, and to Unlimited when the free tier
// has no entry either. The fallback keeps quota checks conservative for
// tiers added to billing before the catalog is redeployed.
func (c Catalog) Ceiling(tier Tier, typ meter.UsageType) int64 {
	if limits, ok := c[tier]; ok {
		if ceiling, ok := limits[typ]; ok {
			return ceiling
		}
	}
	if limits, ok := c[TierFree]; ok {
		if ceiling, ok := limits[typ]; ok {
			return ceiling
		}
	}
	return Unlimited
}

// Validate checks the catalog for unknown tiers, unknown usage types and
// negative ceilings other than Unlimited.
func (c Catalog) Validate() error {
	for tier, limits := range c {
		if !tier.Valid() {
			return fmt.Errorf("plan: unknown tier %q", tier)
		}
		for typ, ceiling := range limits {
			if !typ.Valid() {
				return fmt.Errorf("plan: tier %q: unknown usage type %q", tier, typ)
			}
			if ceiling < Unlimited {
				return fmt.Errorf("plan: tier %q: invalid ceiling %d for %q", tier, ceiling, typ)
			}
		}
	}
	return nil
}
