// Package urlkit wraps the platform URL parser and implements the
// query-stripping primitive shared by the request gate and the bulk cleaner.
package urlkit

import (
	"fmt"
	"net/url"
	"strings"
)

// Parse parses a fully-qualified URL. Relative references and inputs without
// a host are rejected so downstream stages never see partial URLs.
func Parse(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("urlkit: not a fully-qualified URL: %q", raw)
	}
	return u, nil
}

// IsWeb reports whether the parsed URL uses a scheme the engine processes.
func IsWeb(u *url.URL) bool {
	return u.Scheme == "http" || u.Scheme == "https"
}

// HasWebPrefix reports whether a raw string already starts with an http or
// https scheme. Used as the acceptance check for decoded redirect candidates.
func HasWebPrefix(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// StripQuery removes the entire query component from a URL and reports
// whether that produced a different serialization. The second return is
// false when the input is malformed, not http/https, has no query, or when
// stripping would serialize identically (a bare trailing "?" counts as no
// query at all).
func StripQuery(raw string) (string, bool) {
	u, err := Parse(raw)
	if err != nil {
		return "", false
	}
	if !IsWeb(u) {
		return "", false
	}
	if u.RawQuery == "" {
		return "", false
	}

	orig := u.String()
	u.RawQuery = ""
	u.ForceQuery = false
	stripped := u.String()
	if stripped == orig {
		return "", false
	}
	return stripped, true
}
