package cdp

import (
	"sort"
	"sync"

	"github.com/chromedp/cdproto/target"
)

// TabRegistry maps attached target IDs to their last-known top-level URL.
// The interceptor consults it as the initiator fallback when a paused
// request carries no Referer header.
type TabRegistry struct {
	mu   sync.RWMutex
	tabs map[target.ID]*TabInfo
}

func NewTabRegistry() *TabRegistry {
	return &TabRegistry{tabs: make(map[target.ID]*TabInfo)}
}

// Register stores or replaces the entry for a target.
func (r *TabRegistry) Register(targetID target.ID, url, title string) {
	r.mu.Lock()
	r.tabs[targetID] = &TabInfo{TargetID: string(targetID), URL: url, Title: title}
	r.mu.Unlock()
}

// UpdateURL records a navigation for an already-registered target.
func (r *TabRegistry) UpdateURL(targetID target.ID, url string) {
	r.mu.Lock()
	if info, ok := r.tabs[targetID]; ok {
		info.URL = url
	}
	r.mu.Unlock()
}

// Get returns a copy of the entry for a target.
func (r *TabRegistry) Get(targetID target.ID) (TabInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.tabs[targetID]
	if !ok {
		return TabInfo{}, false
	}
	return *info, true
}

// LastURL returns the last-known URL for a target, or "" when unknown.
func (r *TabRegistry) LastURL(targetID target.ID) string {
	info, ok := r.Get(targetID)
	if !ok {
		return ""
	}
	return info.URL
}

func (r *TabRegistry) Remove(targetID target.ID) {
	r.mu.Lock()
	delete(r.tabs, targetID)
	r.mu.Unlock()
}

// List returns all entries ordered by target ID.
func (r *TabRegistry) List() []TabInfo {
	r.mu.RLock()
	out := make([]TabInfo, 0, len(r.tabs))
	for _, info := range r.tabs {
		out = append(out, *info)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out
}

func (r *TabRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}
