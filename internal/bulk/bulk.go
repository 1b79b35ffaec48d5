// Package bulk strips query strings from every open document on explicit
// user request. No unwrapping and no policy checks: the user asked for all
// of it, loudly.
package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bermudi/remove-tracking-url/internal/journal"
	"github.com/bermudi/remove-tracking-url/internal/urlkit"
)

// Tab is one open document eligible for cleaning.
type Tab struct {
	ID  string
	URL string
}

// Update is a planned navigation for one tab.
type Update struct {
	TabID string
	From  string
	To    string
}

// Result aggregates a finished run.
type Result struct {
	Tabs    int `json:"tabs"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Navigator lists open documents and points one at a new URL.
type Navigator interface {
	ListTabs(ctx context.Context) ([]Tab, error)
	Navigate(ctx context.Context, tabID, url string) error
}

// Notifier reports the outcome to the user. Failures are logged, never
// propagated.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Plan computes the updates for a set of tabs. Tabs without an identifier
// or a strippable query are left alone.
func Plan(tabs []Tab) []Update {
	updates := make([]Update, 0, len(tabs))
	for _, t := range tabs {
		if t.ID == "" || t.URL == "" {
			continue
		}
		cleaned, ok := urlkit.StripQuery(t.URL)
		if !ok {
			continue
		}
		updates = append(updates, Update{TabID: t.ID, From: t.URL, To: cleaned})
	}
	return updates
}

// Cleaner runs bulk cleans over a Navigator.
type Cleaner struct {
	nav      Navigator
	notifier Notifier        // nil disables notifications
	journal  *journal.Writer // nil disables journaling
}

func NewCleaner(nav Navigator, notifier Notifier, jw *journal.Writer) *Cleaner {
	return &Cleaner{nav: nav, notifier: notifier, journal: jw}
}

// CleanAll strips the query string from every open document. Updates run
// concurrently and independently; one failure never blocks or cancels the
// others. The aggregate outcome is reported after all updates settle.
func (c *Cleaner) CleanAll(ctx context.Context) (Result, error) {
	tabs, err := c.nav.ListTabs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("bulk: list tabs: %w", err)
	}

	updates := Plan(tabs)
	result := Result{Tabs: len(tabs)}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, up := range updates {
		wg.Add(1)
		go func(up Update) {
			defer wg.Done()
			if err := c.nav.Navigate(ctx, up.TabID, up.To); err != nil {
				slog.Warn("bulk update failed", "tab_id", up.TabID, "url", up.To, "error", err)
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			result.Updated++
			mu.Unlock()
		}(up)
	}
	wg.Wait()

	slog.Info("bulk clean finished", "tabs", result.Tabs, "updated", result.Updated, "failed", result.Failed)

	if c.journal != nil {
		if err := c.journal.Write(journal.BulkRunRecord{
			Timestamp: time.Now().UTC(),
			Tabs:      result.Tabs,
			Updated:   result.Updated,
			Failed:    result.Failed,
		}); err != nil {
			slog.Debug("journal write failed", "error", err)
		}
	}

	c.notify(ctx, result)
	return result, nil
}

func (c *Cleaner) notify(ctx context.Context, result Result) {
	if c.notifier == nil {
		return
	}
	message := fmt.Sprintf("%d tab(s) cleaned, %d failed", result.Updated, result.Failed)
	if err := c.notifier.Notify(ctx, "Tracking cleanup", message); err != nil {
		slog.Warn("bulk clean notification failed", "error", err)
	}
}
