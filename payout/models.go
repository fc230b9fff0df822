// Package payout manages affiliate payout requests and their lifecycle.
package payout

import (
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Status is the lifecycle state of a payout request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Reserved reports whether a payout in this status still holds funds
// against the owner's available balance. Only failed payouts release
// their amount back.
func (s Status) Reserved() bool {
	return s != StatusFailed
}

// CanTransition reports whether a payout may move from one status to
// another. Pending payouts may start processing or be decided directly;
// processing payouts may only be decided.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCompleted || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	}
	return false
}

// Decision is the outcome applied to a pending or processing payout.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Status returns the terminal status a decision resolves to.
func (d Decision) Status() Status {
	if d == DecisionApprove {
		return StatusCompleted
	}
	return StatusFailed
}

// Valid reports whether the decision is a known value.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Payout is a request to withdraw earned commission.
type Payout struct {
	types.Entity

	ID     id.PayoutID `json:"id"`
	UserID string      `json:"user_id"`
	Amount types.Money `json:"amount"`
	Status Status      `json:"status"`

	// Method names the payment rail, e.g. "bank_transfer" or "paypal".
	Method  string            `json:"method,omitempty"`
	Details map[string]string `json:"details,omitempty"`

	// ProcessedAt is set when the payout reaches a terminal status.
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// ListOpts filters payout listings.
type ListOpts struct {
	UserID string
	Status Status
	Limit  int
	Offset int
}
