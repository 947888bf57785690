package utils

import (
	"strings"
	"sync"
)

// KeyTracker remembers keys (reservation ids) already seen in an import
type KeyTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewKeyTracker creates a new tracker
func NewKeyTracker() *KeyTracker {
	return &KeyTracker{seen: make(map[string]struct{})}
}

// Add returns true if the key is new, false if it was already tracked.
// Keys are compared case-insensitively with surrounding spaces ignored.
func (t *KeyTracker) Add(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.seen[k]; exists {
		return false
	}
	t.seen[k] = struct{}{}
	return true
}

// Count returns the number of tracked keys
func (t *KeyTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
