// Package source wraps the three external search providers behind one
// contract: Search returns normalized trends and absorbs every failure
// (missing credentials, transport errors, malformed payloads) into an
// empty result so a single provider can never fail an aggregation.
package source

import (
	"net/http"
	"time"
)

// HTTPClient is the subset of *http.Client the adapters need; tests inject
// fakes through it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// truncate caps s at n runes, appending an ellipsis marker when it cut
// anything off.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
