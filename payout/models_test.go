package payout

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusCompleted, false},
		{StatusFailed, StatusPending, false},
		{StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusProcessing.Terminal() {
		t.Error("pending and processing must not be terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Error("completed and failed must be terminal")
	}
}

func TestStatusReserved(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusProcessing, StatusCompleted} {
		if !s.Reserved() {
			t.Errorf("%s should reserve funds", s)
		}
	}
	if StatusFailed.Reserved() {
		t.Error("failed payouts must release their funds")
	}
}

func TestDecisionStatus(t *testing.T) {
	if DecisionApprove.Status() != StatusCompleted {
		t.Error("approve should resolve to completed")
	}
	if DecisionReject.Status() != StatusFailed {
		t.Error("reject should resolve to failed")
	}
}
