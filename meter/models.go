// Package meter defines metered usage events and their aggregation contracts.
package meter

import (
	"time"

	"github.com/xraph/tally/id"
)

// UsageType identifies a metered resource.
type UsageType string

const (
	UsageCredits  UsageType = "credits"
	UsageStorage  UsageType = "storage"
	UsageAPICalls UsageType = "api_calls"
)

// Valid reports whether the usage type is one of the known kinds.
func (t UsageType) Valid() bool {
	switch t {
	case UsageCredits, UsageStorage, UsageAPICalls:
		return true
	}
	return false
}

// Types lists all known usage types.
func Types() []UsageType {
	return []UsageType{UsageCredits, UsageStorage, UsageAPICalls}
}

// UsageEvent is a single metered consumption record.
// Events are append-only: once written they are never mutated or deleted.
type UsageEvent struct {
	ID        id.UsageEventID   `json:"id"`
	UserID    string            `json:"user_id"`
	Type      UsageType         `json:"type"`
	Amount    int64             `json:"amount"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Window is the half-open accounting interval [Start, End) a quota check
// aggregates over. It is resolved from the subscription's billing period.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Summary is a per-type lifetime usage aggregate for one user.
type Summary struct {
	Type  UsageType `json:"type"`
	Total int64     `json:"total"`
	Count int64     `json:"count"`
}

// QueryOpts filters usage event queries.
type QueryOpts struct {
	Type   UsageType
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}
