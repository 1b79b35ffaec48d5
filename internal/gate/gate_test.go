package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bermudi/remove-tracking-url/internal/session"
)

type fakeFlags struct {
	enabled bool
	err     error
	reads   int
}

func (f *fakeFlags) Get(ctx context.Context) (bool, error) {
	f.reads++
	return f.enabled, f.err
}

func newTestGate(enabled bool) (*Gate, *fakeFlags, *session.Tracker) {
	flags := &fakeFlags{enabled: enabled}
	tracker := session.NewTracker(session.DefaultTTL, nil)
	return New(flags, tracker), flags, tracker
}

const webmailURL = "https://mail.google.com/mail/u/0/#inbox"

func TestWebmailInitiatedStrip(t *testing.T) {
	g, _, tracker := newTestGate(true)

	d := g.Evaluate(context.Background(), Event{
		URL:          "https://example.com/a?x=1&y=2",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
		Initiator:    webmailURL,
	})
	if !d.Redirect {
		t.Fatal("expected a redirect")
	}
	if want := "https://example.com/a"; d.Target != want {
		t.Fatalf("Target = %q, want %q", d.Target, want)
	}
	if !tracker.IsMarked("tab1") {
		t.Fatal("webmail-initiated event did not mark the tab")
	}
}

func TestSkipDomainNoAction(t *testing.T) {
	g, _, _ := newTestGate(true)

	d := g.Evaluate(context.Background(), Event{
		URL:          "https://mail.google.com/mail/u/0/?x=1",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
		Initiator:    webmailURL,
	})
	if d.Redirect {
		t.Fatalf("redirect to %q on a skip domain", d.Target)
	}
}

func TestWrapperUnwrapThenStrip(t *testing.T) {
	g, _, _ := newTestGate(true)

	d := g.Evaluate(context.Background(), Event{
		URL:          "https://redirector.example/go?u=https%3A%2F%2Fnews.example%2Farticle%3Fref%3Dabc",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
		Initiator:    webmailURL,
	})
	if !d.Redirect {
		t.Fatal("expected a redirect")
	}
	if want := "https://news.example/article"; d.Target != want {
		t.Fatalf("Target = %q, want %q", d.Target, want)
	}
}

func TestFlagDisabledNoAction(t *testing.T) {
	g, flags, _ := newTestGate(false)

	d := g.Evaluate(context.Background(), Event{
		URL:          "https://example.com/a?x=1",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
		Initiator:    webmailURL,
	})
	if d.Redirect {
		t.Fatalf("redirect to %q with flag disabled", d.Target)
	}
	if flags.reads != 1 {
		t.Fatalf("flag reads = %d, want 1", flags.reads)
	}
}

func TestFlagReadErrorFailsOpen(t *testing.T) {
	g, flags, _ := newTestGate(false)
	flags.err = errors.New("store unavailable")

	d := g.Evaluate(context.Background(), Event{
		URL:          "https://example.com/a?x=1",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
		Initiator:    webmailURL,
	})
	if !d.Redirect {
		t.Fatal("flag read error should fail open and still redirect")
	}
}

func TestFlagNotReadForIneligibleEvents(t *testing.T) {
	g, flags, _ := newTestGate(true)

	g.Evaluate(context.Background(), Event{
		URL:          "https://example.com/a?x=1",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
	})
	if flags.reads != 0 {
		t.Fatalf("flag reads = %d for ineligible event, want 0", flags.reads)
	}
}

func TestNonDocumentIgnored(t *testing.T) {
	g, _, tracker := newTestGate(true)

	d := g.Evaluate(context.Background(), Event{
		URL:          "https://example.com/a?x=1",
		ResourceType: "Image",
		TabID:        "tab1",
		Initiator:    webmailURL,
	})
	if d.Redirect {
		t.Fatal("sub-resource request was redirected")
	}
	if tracker.IsMarked("tab1") {
		t.Fatal("sub-resource request marked the tab")
	}
}

func TestFollowUpHopConsumesMark(t *testing.T) {
	g, _, tracker := newTestGate(true)
	ctx := context.Background()

	// Hop 1: webmail click lands on a preserve-list wrapper; no rewrite,
	// but the tab gets marked.
	d := g.Evaluate(ctx, Event{
		URL:          "https://x.us1.list-manage.com/track/click?u=aa&id=bb",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
		Initiator:    webmailURL,
	})
	if d.Redirect {
		t.Fatalf("redirect to %q on a preserve-list wrapper", d.Target)
	}
	if !tracker.IsMarked("tab1") {
		t.Fatal("hop 1 did not mark the tab")
	}

	// Hop 2: the wrapper redirects; the prior mark keeps the tab eligible
	// and is consumed in the process.
	d = g.Evaluate(ctx, Event{
		URL:          "https://news.example/story?utm_source=mail",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
	})
	if !d.Redirect {
		t.Fatal("marked follow-up hop was not redirected")
	}
	if want := "https://news.example/story"; d.Target != want {
		t.Fatalf("Target = %q, want %q", d.Target, want)
	}
	if tracker.IsMarked("tab1") {
		t.Fatal("mark survived the follow-up hop")
	}

	// Hop 3: the grant is spent.
	d = g.Evaluate(ctx, Event{
		URL:          "https://news.example/other?utm_source=mail",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
	})
	if d.Redirect {
		t.Fatalf("redirect to %q after the grant was spent", d.Target)
	}
}

func TestMarkConsumedEvenWhenNothingToClean(t *testing.T) {
	g, _, tracker := newTestGate(true)
	ctx := context.Background()

	tracker.Mark("tab1")
	d := g.Evaluate(ctx, Event{
		URL:          "https://news.example/clean",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
	})
	if d.Redirect {
		t.Fatalf("redirect to %q for a URL with no query", d.Target)
	}
	if tracker.IsMarked("tab1") {
		t.Fatal("mark survived a follow-up hop with nothing to clean")
	}
}

func TestLoopGuard(t *testing.T) {
	g, _, _ := newTestGate(true)

	// A URL whose cleaning is a fixed point must never redirect to itself.
	url := "https://news.example/story"
	d := g.Evaluate(context.Background(), Event{
		URL:          url,
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
		Initiator:    webmailURL,
	})
	if d.Redirect && d.Target == url {
		t.Fatal("gate redirected a URL to itself")
	}
}

func TestNonWebSchemeNoAction(t *testing.T) {
	g, _, _ := newTestGate(true)

	d := g.Evaluate(context.Background(), Event{
		URL:          "chrome://settings/?search=privacy",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
		Initiator:    webmailURL,
	})
	if d.Redirect {
		t.Fatalf("redirect to %q for a non-web scheme", d.Target)
	}
}

func TestStatsSnapshot(t *testing.T) {
	g, _, _ := newTestGate(true)
	ctx := context.Background()

	g.Evaluate(ctx, Event{
		URL:          "https://example.com/a?x=1",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
		Initiator:    webmailURL,
	})
	g.Evaluate(ctx, Event{
		URL:          "https://example.com/b?x=1",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab2",
	})

	snap := g.StatsSnapshot()
	if snap.Evaluated != 2 {
		t.Fatalf("Evaluated = %d, want 2", snap.Evaluated)
	}
	if snap.Redirected != 1 {
		t.Fatalf("Redirected = %d, want 1", snap.Redirected)
	}
	if snap.NotEligible != 1 {
		t.Fatalf("NotEligible = %d, want 1", snap.NotEligible)
	}
}

// Expired marks do not extend eligibility even when never consumed.
func TestExpiredMarkNotEligible(t *testing.T) {
	flags := &fakeFlags{enabled: true}
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker := session.NewTracker(session.DefaultTTL, func() time.Time { return clock })
	g := New(flags, tracker)

	tracker.Mark("tab1")
	clock = clock.Add(16 * time.Second)

	d := g.Evaluate(context.Background(), Event{
		URL:          "https://news.example/story?utm_source=mail",
		ResourceType: ResourceTypeDocument,
		TabID:        "tab1",
	})
	if d.Redirect {
		t.Fatalf("redirect to %q from an expired mark", d.Target)
	}
}
