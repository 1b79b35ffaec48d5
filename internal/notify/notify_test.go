package notify

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestNotifyPostsTitleAndBody(t *testing.T) {
	ctx := context.Background()

	var receivedMethod string
	var receivedPath string
	var receivedBody string
	var receivedTitle string

	client := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			receivedMethod = r.Method
			receivedPath = r.URL.Path
			receivedTitle = r.Header.Get("Title")
			rawBody, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			receivedBody = string(rawBody)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("ok")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	c := NewClient("http://example.com/notifications", client)
	if err := c.Notify(ctx, "Tracking cleanup", "2 tab(s) cleaned, 0 failed"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if got, want := receivedMethod, http.MethodPost; got != want {
		t.Fatalf("method = %q; want %q", got, want)
	}
	if got, want := receivedPath, "/notifications"; got != want {
		t.Fatalf("path = %q; want %q", got, want)
	}
	if got, want := receivedTitle, "Tracking cleanup"; got != want {
		t.Fatalf("title = %q; want %q", got, want)
	}
	if got, want := receivedBody, "2 tab(s) cleaned, 0 failed"; got != want {
		t.Fatalf("body = %q; want %q", got, want)
	}
}

func TestNotifyReturnsErrorForServerError(t *testing.T) {
	client := &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(strings.NewReader("server failure")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	c := NewClient("http://example.com/notifications", client)
	err := c.Notify(context.Background(), "t", "m")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "notification failed") {
		t.Fatalf("error = %q; want to contain %q", err, "notification failed")
	}
}

func TestNotifyDisallowsMissingEndpoint(t *testing.T) {
	c := NewClient("", nil)
	if err := c.Notify(context.Background(), "t", "m"); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}
