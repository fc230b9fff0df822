package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/tally/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"SubscriptionID", id.NewSubscriptionID, "sub_"},
		{"UsageEventID", id.NewUsageEventID, "uevt_"},
		{"LinkID", id.NewLinkID, "link_"},
		{"ClickID", id.NewClickID, "clk_"},
		{"ConversionID", id.NewConversionID, "conv_"},
		{"PayoutID", id.NewPayoutID, "pout_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixLink)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixLink {
		t.Errorf("expected prefix %q, got %q", id.PrefixLink, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"SubscriptionID", id.NewSubscriptionID, id.ParseSubscriptionID},
		{"UsageEventID", id.NewUsageEventID, id.ParseUsageEventID},
		{"LinkID", id.NewLinkID, id.ParseLinkID},
		{"ClickID", id.NewClickID, id.ParseClickID},
		{"ConversionID", id.NewConversionID, id.ParseConversionID},
		{"PayoutID", id.NewPayoutID, id.ParsePayoutID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseSubscriptionID rejects uevt_", id.NewUsageEventID().String(), id.ParseSubscriptionID},
		{"ParseUsageEventID rejects link_", id.NewLinkID().String(), id.ParseUsageEventID},
		{"ParseLinkID rejects clk_", id.NewClickID().String(), id.ParseLinkID},
		{"ParseClickID rejects conv_", id.NewConversionID().String(), id.ParseClickID},
		{"ParseConversionID rejects pout_", id.NewPayoutID().String(), id.ParseConversionID},
		{"ParsePayoutID rejects sub_", id.NewSubscriptionID().String(), id.ParsePayoutID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
	if _, err := id.Parse("not a typeid"); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestTextMarshaling(t *testing.T) {
	original := id.NewPayoutID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded id.ID
	if err := decoded.UnmarshalText(data); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", decoded.String(), original.String())
	}

	var nilID id.ID
	if err := nilID.UnmarshalText(nil); err != nil {
		t.Fatalf("nil unmarshal failed: %v", err)
	}
	if !nilID.IsNil() {
		t.Error("expected Nil ID from empty text")
	}
}

func TestSQLRoundTrip(t *testing.T) {
	original := id.NewUsageEventID()

	v, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(v); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", scanned.String(), original.String())
	}

	v, err = id.Nil.Value()
	if err != nil {
		t.Fatalf("Nil Value failed: %v", err)
	}
	if v != nil {
		t.Errorf("expected nil driver value for Nil ID, got %v", v)
	}
}
