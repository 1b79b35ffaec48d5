// Package controller glues the engine components together behind the
// control API.
package controller

import (
	"context"

	"github.com/bermudi/remove-tracking-url/internal/bulk"
	"github.com/bermudi/remove-tracking-url/internal/cdp"
	"github.com/bermudi/remove-tracking-url/internal/flagstore"
	"github.com/bermudi/remove-tracking-url/internal/gate"
)

// Service exposes the user-facing operations: the feature flag, the bulk
// clean, and introspection over attached tabs and pipeline counters.
type Service struct {
	flags       *flagstore.Store
	cleaner     *bulk.Cleaner
	interceptor *cdp.Interceptor
	gate        *gate.Gate
}

func NewService(flags *flagstore.Store, cleaner *bulk.Cleaner, interceptor *cdp.Interceptor, g *gate.Gate) *Service {
	return &Service{flags: flags, cleaner: cleaner, interceptor: interceptor, gate: g}
}

func (s *Service) GetFlag(ctx context.Context) (bool, error) {
	enabled, err := s.flags.Get(ctx)
	if err != nil {
		return enabled, cdp.NewError(cdp.CodeFlagStore, "feature flag read failed", err)
	}
	return enabled, nil
}

func (s *Service) SetFlag(ctx context.Context, enabled bool) (bool, error) {
	if err := s.flags.Set(ctx, enabled); err != nil {
		return false, cdp.NewError(cdp.CodeFlagStore, "feature flag write failed", err)
	}
	return enabled, nil
}

func (s *Service) CleanAll(ctx context.Context) (bulk.Result, error) {
	result, err := s.cleaner.CleanAll(ctx)
	if err != nil {
		return bulk.Result{}, cdp.NewError(cdp.CodeCDPUnavailable, "bulk clean failed", err)
	}
	return result, nil
}

func (s *Service) ListTabs(_ context.Context) ([]cdp.TabInfo, error) {
	return s.interceptor.Tabs(), nil
}

func (s *Service) Stats(_ context.Context) (gate.StatsSnapshot, error) {
	return s.gate.StatsSnapshot(), nil
}
