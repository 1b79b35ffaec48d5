// Package session tracks which tabs recently navigated out of webmail.
package session

import (
	"sync"
	"time"
)

// DefaultTTL is how long a webmail-origin mark stays valid. Webmail clicks
// commonly funnel through one intermediate redirect in the same tab; the
// mark extends cleaning eligibility to that follow-up navigation.
const DefaultTTL = 15 * time.Second

// Tracker keeps one time-bounded mark per tab. Expired entries are removed
// lazily when read; there is no background sweep.
type Tracker struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	marks map[string]time.Time // tab id -> expiry
}

// NewTracker creates a Tracker. ttl <= 0 selects DefaultTTL; a nil clock
// selects time.Now.
func NewTracker(ttl time.Duration, now func() time.Time) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{ttl: ttl, now: now, marks: make(map[string]time.Time)}
}

// Mark records (or refreshes) the webmail-origin mark for a tab.
func (t *Tracker) Mark(tabID string) {
	if tabID == "" {
		return
	}
	t.mu.Lock()
	t.marks[tabID] = t.now().Add(t.ttl)
	t.mu.Unlock()
}

// IsMarked reports whether the tab currently holds a valid mark. An expired
// entry is deleted as a side effect of the read; a valid one is left in
// place for the caller to consume explicitly.
func (t *Tracker) IsMarked(tabID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry, ok := t.marks[tabID]
	if !ok {
		return false
	}
	if t.now().After(expiry) {
		delete(t.marks, tabID)
		return false
	}
	return true
}

// Consume removes the tab's mark regardless of remaining lifetime.
func (t *Tracker) Consume(tabID string) {
	t.mu.Lock()
	delete(t.marks, tabID)
	t.mu.Unlock()
}

// Len reports the number of stored marks, expired or not.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.marks)
}
