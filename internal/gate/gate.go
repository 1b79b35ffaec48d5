// Package gate orchestrates the per-navigation decision pipeline: given a
// top-level navigation event and the per-tab session state, decide whether
// to redirect the request to a cleaned URL.
package gate

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/bermudi/remove-tracking-url/internal/policy"
	"github.com/bermudi/remove-tracking-url/internal/session"
	"github.com/bermudi/remove-tracking-url/internal/unwrap"
	"github.com/bermudi/remove-tracking-url/internal/urlkit"
)

// ResourceTypeDocument is the only resource type the gate acts on; all
// sub-resource fetches pass through untouched.
const ResourceTypeDocument = "Document"

// Event is one top-level navigation delivered by the browser host.
type Event struct {
	URL          string
	ResourceType string
	TabID        string
	Initiator    string // empty when the host supplied none
}

// Decision is the gate's verdict for a single event. The zero value means
// "no action".
type Decision struct {
	Redirect bool
	Target   string
}

// FlagStore reads the persisted feature flag. The read is the pipeline's
// only asynchronous boundary.
type FlagStore interface {
	Get(ctx context.Context) (bool, error)
}

// Stats counts pipeline outcomes.
type Stats struct {
	Evaluated     atomic.Int64
	Redirected    atomic.Int64
	SkippedPolicy atomic.Int64
	NotEligible   atomic.Int64
	FlagDisabled  atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats for the control API.
type StatsSnapshot struct {
	Evaluated     int64 `json:"evaluated"`
	Redirected    int64 `json:"redirected"`
	SkippedPolicy int64 `json:"skipped_policy"`
	NotEligible   int64 `json:"not_eligible"`
	FlagDisabled  int64 `json:"flag_disabled"`
}

// Gate evaluates navigation events.
type Gate struct {
	flags   FlagStore
	tracker *session.Tracker
	stats   Stats
}

func New(flags FlagStore, tracker *session.Tracker) *Gate {
	return &Gate{flags: flags, tracker: tracker}
}

// Evaluate runs the decision pipeline for one event. Every failure mode
// degrades to no action; the only side effects are the session-marker
// mutations, which are safe even if the navigation is later abandoned.
func (g *Gate) Evaluate(ctx context.Context, ev Event) Decision {
	if ev.ResourceType != ResourceTypeDocument || ev.URL == "" {
		return Decision{}
	}
	g.stats.Evaluated.Add(1)

	if policy.MustSkipQueryStripping(ev.URL) {
		g.stats.SkippedPolicy.Add(1)
		return Decision{}
	}

	initiatedByWebmail := policy.IsWebmail(ev.Initiator)
	markedFromPriorHop := g.tracker.IsMarked(ev.TabID)

	// A webmail-initiated navigation opens (or refreshes) the window for
	// one follow-up hop; a marked follow-up spends the grant now, whatever
	// the outcome below.
	if initiatedByWebmail {
		g.tracker.Mark(ev.TabID)
	} else if markedFromPriorHop {
		g.tracker.Consume(ev.TabID)
	}

	if !initiatedByWebmail && !markedFromPriorHop {
		g.stats.NotEligible.Add(1)
		return Decision{}
	}

	enabled, err := g.flags.Get(ctx)
	if err != nil {
		// Fail open: the flag read never blocks a navigation.
		slog.Debug("feature flag read failed, assuming enabled", "error", err)
		enabled = true
	}
	if !enabled {
		g.stats.FlagDisabled.Add(1)
		return Decision{}
	}

	if policy.MustPreserveQueryAcrossHop(ev.URL) {
		g.stats.SkippedPolicy.Add(1)
		return Decision{}
	}

	candidate := unwrap.Unwrap(ev.URL)
	cleaned, ok := urlkit.StripQuery(candidate)
	if !ok {
		return Decision{}
	}
	if cleaned == ev.URL {
		// Never redirect a URL to itself.
		return Decision{}
	}

	g.stats.Redirected.Add(1)
	return Decision{Redirect: true, Target: cleaned}
}

// StatsSnapshot returns current counter values.
func (g *Gate) StatsSnapshot() StatsSnapshot {
	return StatsSnapshot{
		Evaluated:     g.stats.Evaluated.Load(),
		Redirected:    g.stats.Redirected.Load(),
		SkippedPolicy: g.stats.SkippedPolicy.Load(),
		NotEligible:   g.stats.NotEligible.Load(),
		FlagDisabled:  g.stats.FlagDisabled.Load(),
	}
}
