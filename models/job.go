package models

import "time"

// ItemStatus is the per-item state of a long-running job
type ItemStatus string

const (
	StatusPending ItemStatus = "pending"
	StatusLoading ItemStatus = "loading"
	StatusSuccess ItemStatus = "success"
	StatusError   ItemStatus = "error"
)

// ItemState tracks one property (batch fetch) or one reservation (enrichment)
type ItemState struct {
	Key    string
	Status ItemStatus
	Error  string
}

// JobState is the ephemeral progress of a batch fetch or enrichment run.
// It is never persisted.
type JobState struct {
	ID        string
	Kind      string
	Total     int
	Current   int
	StartedAt time.Time
	Items     []ItemState
}

// Clone returns a deep copy safe to hand to observers
func (s JobState) Clone() JobState {
	out := s
	out.Items = append([]ItemState(nil), s.Items...)
	return out
}

// Count returns how many items are in the given status
func (s JobState) Count(status ItemStatus) int {
	n := 0
	for _, it := range s.Items {
		if it.Status == status {
			n++
		}
	}
	return n
}
