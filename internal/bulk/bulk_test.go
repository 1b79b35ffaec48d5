package bulk

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestPlan(t *testing.T) {
	tabs := []Tab{
		{ID: "1", URL: "https://a.example/?s=1"},
		{ID: "2", URL: "https://b.example/"},
		{ID: "", URL: "https://c.example/?s=1"},
		{ID: "4", URL: ""},
		{ID: "5", URL: "chrome://settings/?search=x"},
	}

	updates := Plan(tabs)
	if len(updates) != 1 {
		t.Fatalf("Plan produced %d updates, want 1: %+v", len(updates), updates)
	}
	if updates[0].TabID != "1" || updates[0].To != "https://a.example/" {
		t.Fatalf("update = %+v", updates[0])
	}
}

type fakeNavigator struct {
	tabs    []Tab
	listErr error
	failIDs map[string]bool

	mu        sync.Mutex
	navigated map[string]string
}

func (f *fakeNavigator) ListTabs(ctx context.Context) ([]Tab, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tabs, nil
}

func (f *fakeNavigator) Navigate(ctx context.Context, tabID, url string) error {
	if f.failIDs[tabID] {
		return errors.New("target closed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.navigated == nil {
		f.navigated = make(map[string]string)
	}
	f.navigated[tabID] = url
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	titles   []string
	messages []string
	err      error
}

func (f *fakeNotifier) Notify(ctx context.Context, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
	f.messages = append(f.messages, message)
	return f.err
}

func TestCleanAll(t *testing.T) {
	nav := &fakeNavigator{tabs: []Tab{
		{ID: "1", URL: "https://a.example/?s=1"},
		{ID: "2", URL: "https://b.example/"},
	}}
	notifier := &fakeNotifier{}
	c := NewCleaner(nav, notifier, nil)

	result, err := c.CleanAll(context.Background())
	if err != nil {
		t.Fatalf("CleanAll() error = %v", err)
	}
	if result.Updated != 1 || result.Failed != 0 || result.Tabs != 2 {
		t.Fatalf("result = %+v, want 1 updated / 0 failed / 2 tabs", result)
	}
	if got := nav.navigated["1"]; got != "https://a.example/" {
		t.Fatalf("tab 1 navigated to %q", got)
	}
	if _, ok := nav.navigated["2"]; ok {
		t.Fatal("tab 2 was navigated but had nothing to clean")
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.messages))
	}
}

func TestCleanAllPartialFailure(t *testing.T) {
	nav := &fakeNavigator{
		tabs: []Tab{
			{ID: "1", URL: "https://a.example/?s=1"},
			{ID: "2", URL: "https://b.example/?s=2"},
			{ID: "3", URL: "https://c.example/?s=3"},
		},
		failIDs: map[string]bool{"2": true},
	}
	c := NewCleaner(nav, nil, nil)

	result, err := c.CleanAll(context.Background())
	if err != nil {
		t.Fatalf("CleanAll() error = %v", err)
	}
	if result.Updated != 2 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 2 updated / 1 failed", result)
	}
	// The failing tab must not have blocked its siblings.
	if len(nav.navigated) != 2 {
		t.Fatalf("navigated = %v", nav.navigated)
	}
}

func TestCleanAllListFailure(t *testing.T) {
	nav := &fakeNavigator{listErr: errors.New("browser gone")}
	c := NewCleaner(nav, &fakeNotifier{}, nil)

	if _, err := c.CleanAll(context.Background()); err == nil {
		t.Fatal("CleanAll() error = nil, want list error")
	}
}

func TestCleanAllNotifierFailureIsNotFatal(t *testing.T) {
	nav := &fakeNavigator{tabs: []Tab{{ID: "1", URL: "https://a.example/?s=1"}}}
	notifier := &fakeNotifier{err: errors.New("ntfy down")}
	c := NewCleaner(nav, notifier, nil)

	result, err := c.CleanAll(context.Background())
	if err != nil {
		t.Fatalf("CleanAll() error = %v", err)
	}
	if result.Updated != 1 {
		t.Fatalf("result = %+v", result)
	}
}
