// Command cleanall connects to a running Chromium and strips the query
// string from every open tab, then exits.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bermudi/remove-tracking-url/internal/bulk"
	"github.com/bermudi/remove-tracking-url/internal/config"
	"github.com/bermudi/remove-tracking-url/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	} else {
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	nav := bulk.NewChromeNavigator(cfg.CDPURL(), time.Duration(cfg.NavigateTimeoutMS)*time.Millisecond)
	if err := nav.Connect(context.Background()); err != nil {
		slog.Error("failed to connect to browser", "cdp_url", cfg.CDPURL(), "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := nav.Close(); err != nil {
			slog.Debug("navigator close failed", "error", err)
		}
	}()

	var notifier bulk.Notifier
	if cfg.NtfyEndpoint != "" {
		notifier = notify.NewClient(cfg.NtfyEndpoint, nil)
	}
	cleaner := bulk.NewCleaner(nav, notifier, nil)

	result, err := cleaner.CleanAll(context.Background())
	if err != nil {
		slog.Error("bulk clean failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%d tab(s) inspected, %d updated, %d failed\n", result.Tabs, result.Updated, result.Failed)
	if result.Failed > 0 {
		os.Exit(1)
	}
}
