// Package geoip resolves request origin via an ipapi.co-shaped JSON endpoint.
// Lookups are strictly best effort: any failure yields a nil result.
package geoip

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// lookupTimeout bounds a single lookup so login side effects stay cheap.
const lookupTimeout = 2 * time.Second

// Location is the subset of the provider response this service consumes.
type Location struct {
	Country   string  `json:"country_name"`
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Client queries GET <base>/<ip>/json.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for the provider at baseURL (e.g. https://ipapi.co).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: lookupTimeout},
	}
}

// Lookup resolves ip to a Location. Returns nil on any failure or for
// empty/unknown addresses; callers must treat nil as "no geo data".
func (c *Client) Lookup(ctx context.Context, ip string) *Location {
	ip = strings.TrimSpace(ip)
	if ip == "" || ip == "unknown" || c.baseURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+ip+"/json", nil)
	if err != nil {
		return nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	var loc Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return nil
	}
	return &loc
}
