package types

import "testing"

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"USD", USD(5000), 5000, "usd", "$50.00"},
		{"EUR", EUR(19900), 19900, "eur", "€199.00"},
		{"GBP", GBP(9900), 9900, "gbp", "£99.00"},
		{"Zero USD", Zero("USD"), 0, "usd", "$0.00"},
		{"Zero EUR", Zero("EUR"), 0, "eur", "€0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return USD(100).Add(USD(200)) }, USD(300)},
		{"Subtract", func() Money { return USD(500).Subtract(USD(200)) }, USD(300)},
		{"Multiply", func() Money { return USD(100).Multiply(3) }, USD(300)},
		{"Negate", func() Money { return USD(100).Negate() }, USD(-100)},
		{"Sum", func() Money { return Sum(USD(100), USD(200), USD(300)) }, USD(600)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyApplyRate(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		rate     float64
		expected Money
	}{
		{"TenPercent", USD(20000), 0.10, USD(2000)},
		{"DefaultRateOddCents", USD(9999), 0.10, USD(1000)},
		{"FullRate", USD(1234), 1.0, USD(1234)},
		{"ZeroRate", USD(1234), 0.0, USD(0)},
		{"RoundsHalfUp", USD(25), 0.10, USD(3)},
		{"Fifteen", USD(10000), 0.15, USD(1500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.money.ApplyRate(tt.rate)
			if !result.Equal(tt.expected) {
				t.Errorf("ApplyRate(%v): got %v, want %v", tt.rate, result, tt.expected)
			}
		})
	}
}

func TestMoneyComparison(t *testing.T) {
	if !USD(4999).LessThan(USD(5000)) {
		t.Error("USD(4999) should be less than USD(5000)")
	}
	if !USD(5001).GreaterThan(USD(5000)) {
		t.Error("USD(5001) should be greater than USD(5000)")
	}
	if USD(5000).LessThan(USD(5000)) {
		t.Error("equal values should not compare LessThan")
	}
	if !USD(0).IsZero() || USD(1).IsZero() {
		t.Error("IsZero misbehaving")
	}
	if !USD(-1).IsNegative() || !USD(1).IsPositive() {
		t.Error("sign predicates misbehaving")
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	_ = USD(100).Add(EUR(100))
}
