// Package api exposes the control surface over HTTP: the feature flag,
// the one-shot bulk clean, attached tab listing, and pipeline counters.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bermudi/remove-tracking-url/internal/bulk"
	"github.com/bermudi/remove-tracking-url/internal/cdp"
	"github.com/bermudi/remove-tracking-url/internal/gate"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	GetFlag(ctx context.Context) (bool, error)
	SetFlag(ctx context.Context, enabled bool) (bool, error)
	CleanAll(ctx context.Context) (bulk.Result, error)
	ListTabs(ctx context.Context) ([]cdp.TabInfo, error)
	Stats(ctx context.Context) (gate.StatsSnapshot, error)
}

type flagOutput struct {
	Body struct {
		Enabled bool `json:"enabled"`
	}
}

func NewServer(svc Service) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Untrack Controller API", "1.0.0")
	api := humachi.New(router, cfg)

	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	huma.Register(api, huma.Operation{
		OperationID: "get-flag",
		Method:      http.MethodGet,
		Path:        "/api/v1/flag",
		Summary:     "Get the cleaning feature flag",
		Tags:        []string{"Flag"},
	}, func(ctx context.Context, input *struct{}) (*flagOutput, error) {
		enabled, err := svc.GetFlag(ctx)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &flagOutput{}
		out.Body.Enabled = enabled
		return out, nil
	})

	type setFlagInput struct {
		Body struct {
			Enabled bool `json:"enabled" doc:"Whether navigation cleaning is active"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "set-flag",
		Method:      http.MethodPut,
		Path:        "/api/v1/flag",
		Summary:     "Set the cleaning feature flag",
		Tags:        []string{"Flag"},
	}, func(ctx context.Context, input *setFlagInput) (*flagOutput, error) {
		enabled, err := svc.SetFlag(ctx, input.Body.Enabled)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &flagOutput{}
		out.Body.Enabled = enabled
		return out, nil
	})

	type cleanOutput struct {
		Body bulk.Result
	}
	huma.Register(api, huma.Operation{
		OperationID: "clean-all",
		Method:      http.MethodPost,
		Path:        "/api/v1/clean",
		Summary:     "Strip query strings from every open tab",
		Tags:        []string{"Clean"},
	}, func(ctx context.Context, input *struct{}) (*cleanOutput, error) {
		result, err := svc.CleanAll(ctx)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &cleanOutput{}
		out.Body = result
		return out, nil
	})

	type tabsOutput struct {
		Body []cdp.TabInfo
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-tabs",
		Method:      http.MethodGet,
		Path:        "/api/v1/tabs",
		Summary:     "List tabs under interception",
		Tags:        []string{"Tabs"},
	}, func(ctx context.Context, input *struct{}) (*tabsOutput, error) {
		tabs, err := svc.ListTabs(ctx)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &tabsOutput{}
		out.Body = tabs
		return out, nil
	})

	type statsOutput struct {
		Body gate.StatsSnapshot
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Navigation pipeline counters",
		Tags:        []string{"Stats"},
	}, func(ctx context.Context, input *struct{}) (*statsOutput, error) {
		stats, err := svc.Stats(ctx)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &statsOutput{}
		out.Body = stats
		return out, nil
	})

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *cdp.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case cdp.CodeValidation, cdp.CodeParseFailure:
			return huma.Error400BadRequest(coded.Message)
		case cdp.CodeTabNotFound:
			return huma.Error404NotFound(coded.Message)
		case cdp.CodeCDPUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
