// Package policy classifies URLs whose query strings must not be touched.
// Both predicates fail safe: when a URL cannot be parsed, the answer is the
// one that leaves the navigation alone.
package policy

import (
	"strings"

	"github.com/bermudi/remove-tracking-url/internal/urlkit"
)

// webmailHosts identify the originating webmail interface.
var webmailHosts = []string{
	"mail.google.com",
}

// firstPartySuffixes cover the webmail host and its sibling properties whose
// features depend on their own query parameters.
var firstPartySuffixes = []string{
	"google.com",
}

// safeRedirectorHosts and safeRedirectorPath carve out the one first-party
// redirector that is known safe to unwrap and clean.
var safeRedirectorHosts = []string{
	"google.com",
	"www.google.com",
}

const safeRedirectorPath = "/url"

// preserveHostSuffixes are wrappers that encode required state (list,
// subscriber, campaign identifiers) in their own query string even though
// they are themselves redirecting hops. Touching them breaks the link.
var preserveHostSuffixes = []string{
	"list-manage.com",
	"campaign-archive.com",
	"mandrillapp.com",
}

// IsWebmail reports whether the given initiator URL identifies the webmail
// interface. Absent or unparseable initiators are not webmail.
func IsWebmail(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := urlkit.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range webmailHosts {
		if host == h {
			return true
		}
	}
	return false
}

// MustSkipQueryStripping reports whether the URL's own query string is
// operationally required by its host and must be left intact.
func MustSkipQueryStripping(raw string) bool {
	u, err := urlkit.Parse(raw)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	if !matchesSuffix(host, firstPartySuffixes) {
		return false
	}
	for _, h := range safeRedirectorHosts {
		if host == h && u.Path == safeRedirectorPath {
			return false
		}
	}
	return true
}

// MustPreserveQueryAcrossHop reports whether the URL is a wrapper whose own
// query parameters are required by the next hop; when true, the event is
// skipped entirely rather than risk breaking the link.
func MustPreserveQueryAcrossHop(raw string) bool {
	u, err := urlkit.Parse(raw)
	if err != nil {
		return true
	}
	return matchesSuffix(strings.ToLower(u.Hostname()), preserveHostSuffixes)
}

func matchesSuffix(host string, suffixes []string) bool {
	for _, s := range suffixes {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}
