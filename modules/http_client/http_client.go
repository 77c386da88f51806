// Package http_client builds the pooled HTTP clients shared by the network
// actions.
package http_client

import (
	"fmt"
	"net/http"
	"time"
)

// New returns a client with a pooled transport. A zero timeout means no
// client-level timeout; callers bound requests with their context instead.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// ParseTimeout parses an optional duration argument. An empty string yields
// def.
func ParseTimeout(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %q", raw)
	}
	return d, nil
}
