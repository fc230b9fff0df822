package plan

import (
	"testing"

	"github.com/xraph/tally/meter"
)

func TestDefaultCatalogCeilings(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name    string
		tier    Tier
		typ     meter.UsageType
		ceiling int64
	}{
		{"FreeCredits", TierFree, meter.UsageCredits, 100},
		{"FreeStorage", TierFree, meter.UsageStorage, 104857600},
		{"FreeAPICalls", TierFree, meter.UsageAPICalls, 1000},
		{"BusinessCreditsUnlimited", TierBusiness, meter.UsageCredits, Unlimited},
		{"EnterpriseAllUnlimited", TierEnterprise, meter.UsageStorage, Unlimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Ceiling(tt.tier, tt.typ); got != tt.ceiling {
				t.Errorf("Ceiling(%s, %s): got %d, want %d", tt.tier, tt.typ, got, tt.ceiling)
			}
		})
	}
}

func TestCeilingFallsBackToFree(t *testing.T) {
	c := Catalog{
		TierFree: {meter.UsageCredits: 100},
	}

	if got := c.Ceiling(TierPro, meter.UsageCredits); got != 100 {
		t.Errorf("expected free-tier fallback of 100, got %d", got)
	}
	if got := c.Ceiling(TierPro, meter.UsageStorage); got != Unlimited {
		t.Errorf("expected Unlimited for type absent everywhere, got %d", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		catalog Catalog
		wantErr bool
	}{
		{"Default", DefaultCatalog(), false},
		{"UnknownTier", Catalog{"gold": {meter.UsageCredits: 10}}, true},
		{"UnknownType", Catalog{TierFree: {"widgets": 10}}, true},
		{"NegativeCeiling", Catalog{TierFree: {meter.UsageCredits: -2}}, true},
		{"UnlimitedOK", Catalog{TierFree: {meter.UsageCredits: Unlimited}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.catalog.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate: got err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
