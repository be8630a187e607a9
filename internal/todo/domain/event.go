package domain

import "time"

// Audit outcomes. Every cache/storage branch of an operation records
// exactly one of these.
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Event is a single audit record. It carries enough context to reconstruct
// the operation from the trail alone.
type Event struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Action   string    `json:"action"`
	Resource string    `json:"resource"`
	OwnerID  int64     `json:"owner_id"`
	ItemID   int64     `json:"item_id,omitempty"`
	Filter   string    `json:"filter,omitempty"`
	Outcome  string    `json:"outcome"`
	Error    string    `json:"error,omitempty"`
}
