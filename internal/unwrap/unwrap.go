// Package unwrap decodes known redirector and wrapper URL encodings to
// recover the inner destination URL.
package unwrap

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/bermudi/remove-tracking-url/internal/urlkit"
)

// maxHops bounds total resolution iterations across both decode strategies.
// Observed real-world wrapper chains are 1-2 hops deep; the cap guards
// against adversarial or circular chains.
const maxHops = 5

// redirectParams are probed in this exact order; the first parameter whose
// value decodes to a web URL wins the hop.
var redirectParams = []string{
	"url",
	"u",
	"q",
	"redirect",
	"redirect_url",
	"redirectUrl",
	"redir",
	"destination",
	"dest",
	"target",
	"continue",
	"next",
	"link",
}

// vendorHosts are redirectors that base64url-encode the destination in a
// path segment rather than a query parameter.
var vendorHosts = []string{
	"substack.com",
	"link.sbstck.com",
}

// segmentMarker is the base64 encoding of "http". Any segment carrying an
// encoded web URL necessarily starts with it, so it doubles as a cheap
// pre-filter before attempting a decode.
const segmentMarker = "aHR0c"

// Unwrap iteratively resolves wrapper URLs to the innermost destination.
// It always returns a usable string; on malformed input or when no known
// encoding matches, the current URL is returned unchanged.
func Unwrap(raw string) string {
	current := raw
	for i := 0; i < maxHops; i++ {
		u, err := urlkit.Parse(current)
		if err != nil || !urlkit.IsWeb(u) {
			return current
		}
		if next, ok := decodePathSegment(u.Hostname(), u.EscapedPath()); ok {
			current = next
			continue
		}
		if next, ok := decodeRedirectParam(u.Query()); ok {
			current = next
			continue
		}
		return current
	}
	return current
}

// decodePathSegment handles the vendor path-segment encoding: a base64url
// segment whose decoded text is itself a web URL.
func decodePathSegment(host, escapedPath string) (string, bool) {
	if !hostMatches(host, vendorHosts) {
		return "", false
	}
	for _, seg := range strings.Split(escapedPath, "/") {
		if !strings.HasPrefix(seg, segmentMarker) {
			continue
		}
		decoded, err := decodeBase64URLish(seg)
		if err != nil {
			continue
		}
		if urlkit.HasWebPrefix(decoded) {
			return decoded, true
		}
	}
	return "", false
}

// decodeRedirectParam probes the generic redirect-target parameter names in
// priority order. Values arrive percent-decoded once from the query parser;
// a second percent-decode pass covers double-encoded targets.
func decodeRedirectParam(q map[string][]string) (string, bool) {
	for _, name := range redirectParams {
		vals, ok := q[name]
		if !ok {
			continue
		}
		for _, candidate := range vals {
			if candidate == "" {
				continue
			}
			if urlkit.HasWebPrefix(candidate) {
				return candidate, true
			}
			if dec, err := url.QueryUnescape(candidate); err == nil && urlkit.HasWebPrefix(dec) {
				return dec, true
			}
			if dec, err := decodeBase64URLish(candidate); err == nil && urlkit.HasWebPrefix(dec) {
				return dec, true
			}
		}
	}
	return "", false
}

// decodeBase64URLish decodes base64url-style text that may arrive without
// padding: translate the URL-safe alphabet back to standard, right-pad to a
// multiple of four, then decode.
func decodeBase64URLish(s string) (string, error) {
	t := strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if rem := len(t) % 4; rem != 0 {
		t += strings.Repeat("=", 4-rem)
	}
	b, err := base64.StdEncoding.DecodeString(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func hostMatches(host string, list []string) bool {
	host = strings.ToLower(host)
	for _, h := range list {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
