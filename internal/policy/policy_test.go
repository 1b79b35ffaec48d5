package policy

import "testing"

func TestIsWebmail(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"https://mail.google.com/mail/u/0/", true},
		{"https://mail.google.com/", true},
		{"https://docs.google.com/", false},
		{"https://mail.google.com.evil.example/", false},
		{"https://example.com/", false},
		{"", false},
		{"not a url", false},
	}
	for _, tc := range cases {
		if got := IsWebmail(tc.raw); got != tc.want {
			t.Fatalf("IsWebmail(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestMustSkipQueryStripping(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"https://mail.google.com/mail/u/0/?x=1", true},
		{"https://accounts.google.com/signin?continue=https://x", true},
		{"https://docs.google.com/document/d/abc?tab=1", true},
		// The first-party redirector is the carved-out exception.
		{"https://www.google.com/url?q=https://news.example/", false},
		{"https://google.com/url?q=https://news.example/", false},
		// Same host, different path: still first-party, still skipped.
		{"https://www.google.com/search?q=golang", true},
		{"https://example.com/a?x=1", false},
		// Lookalike hosts do not match the suffix rule.
		{"https://notgoogle.com/?x=1", false},
		// Parse failures fail safe.
		{"::nope::", true},
	}
	for _, tc := range cases {
		if got := MustSkipQueryStripping(tc.raw); got != tc.want {
			t.Fatalf("MustSkipQueryStripping(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestMustPreserveQueryAcrossHop(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"https://example.us1.list-manage.com/track/click?u=abc&id=def&e=ghi", true},
		{"https://campaign-archive.com/?u=abc&id=def", true},
		{"https://mandrillapp.com/track/click/30/x?p=eyJz", true},
		{"https://example.com/?u=abc", false},
		{"https://list-manage.com.evil.example/?u=abc", false},
		{"::nope::", true},
	}
	for _, tc := range cases {
		if got := MustPreserveQueryAcrossHop(tc.raw); got != tc.want {
			t.Fatalf("MustPreserveQueryAcrossHop(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
