package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bermudi/remove-tracking-url/internal/api"
	"github.com/bermudi/remove-tracking-url/internal/browser"
	"github.com/bermudi/remove-tracking-url/internal/bulk"
	"github.com/bermudi/remove-tracking-url/internal/cdp"
	"github.com/bermudi/remove-tracking-url/internal/config"
	"github.com/bermudi/remove-tracking-url/internal/controller"
	"github.com/bermudi/remove-tracking-url/internal/flagstore"
	"github.com/bermudi/remove-tracking-url/internal/gate"
	"github.com/bermudi/remove-tracking-url/internal/journal"
	"github.com/bermudi/remove-tracking-url/internal/netutil"
	"github.com/bermudi/remove-tracking-url/internal/notify"
	"github.com/bermudi/remove-tracking-url/internal/session"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("untrackd config loaded",
		"cdp_url", cfg.CDPURL(),
		"bind_addr", cfg.BindAddr,
		"session_ttl_s", cfg.SessionTTLSeconds,
		"decision_timeout_ms", cfg.DecisionTimeoutMS,
		"resync_interval_ms", cfg.ResyncIntervalMS,
		"data_dir", cfg.DataDir,
		"launch_browser", cfg.LaunchBrowser,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	if cfg.LaunchBrowser {
		launcher := browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			StartURL:   cfg.BrowserStartURL,
			ProfileDir: cfg.BrowserProfileDir,
		})
		if err := launcher.Launch(context.Background()); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer launcher.Stop()
	}

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	flags, err := flagstore.New(cfg.DataDir)
	if err != nil {
		slog.Error("failed to open flag store", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	jw := journal.NewWriter(cfg.DataDir, cfg.JournalBufferSize, cfg.JournalMaxFileSizeMB)
	defer func() {
		if err := jw.Close(); err != nil {
			slog.Debug("journal close failed", "error", err)
		}
	}()

	tracker := session.NewTracker(time.Duration(cfg.SessionTTLSeconds)*time.Second, nil)
	g := gate.New(flags, tracker)

	registry := cdp.NewTabRegistry()
	interceptor := cdp.NewInterceptor(cfg.CDPURL(), g, registry, jw,
		time.Duration(cfg.DecisionTimeoutMS)*time.Millisecond,
		time.Duration(cfg.ResyncIntervalMS)*time.Millisecond)
	if err := interceptor.Connect(context.Background()); err != nil {
		slog.Error("failed to connect interceptor", "cdp_url", cfg.CDPURL(), "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := interceptor.Close(); err != nil {
			slog.Debug("interceptor close failed", "error", err)
		}
	}()

	nav := bulk.NewChromeNavigator(cfg.CDPURL(), time.Duration(cfg.NavigateTimeoutMS)*time.Millisecond)
	if err := nav.Connect(context.Background()); err != nil {
		slog.Error("failed to connect navigator", "cdp_url", cfg.CDPURL(), "error", err)
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
	cleaner := bulk.NewCleaner(nav, notifier, jw)

	svc := controller.NewService(flags, cleaner, interceptor, g)
	h := api.NewServer(svc)

	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("untrackd listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("untrackd server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("untrackd shutdown failed", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
