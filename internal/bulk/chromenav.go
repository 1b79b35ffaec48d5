package bulk

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// ChromeNavigator implements Navigator over a remote chromedp allocator.
// Each navigation gets its own targeted context so tabs never serialize on
// one another.
type ChromeNavigator struct {
	cdpURL      string
	timeout     time.Duration
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func NewChromeNavigator(cdpURL string, timeout time.Duration) *ChromeNavigator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ChromeNavigator{cdpURL: cdpURL, timeout: timeout}
}

// Connect verifies the browser is reachable.
func (n *ChromeNavigator) Connect(_ context.Context) error {
	// The allocator must outlive the caller's context; tab contexts derive
	// from it for the lifetime of the process.
	n.allocCtx, n.allocCancel = chromedp.NewRemoteAllocator(context.Background(), n.cdpURL)

	tempCtx, tempCancel := chromedp.NewContext(n.allocCtx)
	defer tempCancel()
	if err := chromedp.Run(tempCtx); err != nil {
		return fmt.Errorf("bulk: connect to browser: %w", err)
	}
	return nil
}

func (n *ChromeNavigator) Close() error {
	if n.allocCancel != nil {
		n.allocCancel()
	}
	return nil
}

// ListTabs enumerates open page targets.
func (n *ChromeNavigator) ListTabs(ctx context.Context) ([]Tab, error) {
	tempCtx, tempCancel := chromedp.NewContext(n.allocCtx)
	defer tempCancel()
	if err := chromedp.Run(tempCtx); err != nil {
		return nil, fmt.Errorf("bulk: browser unavailable: %w", err)
	}

	targets, err := chromedp.Targets(tempCtx)
	if err != nil {
		return nil, fmt.Errorf("bulk: enumerate targets: %w", err)
	}

	tabs := make([]Tab, 0, len(targets))
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		tabs = append(tabs, Tab{ID: string(t.TargetID), URL: t.URL})
	}
	return tabs, nil
}

// Navigate points one tab at a new URL.
func (n *ChromeNavigator) Navigate(ctx context.Context, tabID, url string) error {
	tabCtx, tabCancel := chromedp.NewContext(n.allocCtx, chromedp.WithTargetID(target.ID(tabID)))
	defer tabCancel()

	runCtx, runCancel := context.WithTimeout(tabCtx, n.timeout)
	defer runCancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("bulk: navigate tab %s: %w", tabID, err)
	}
	return nil
}
