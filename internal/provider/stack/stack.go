// Package stack assembles the quote fetcher chain shared by the binaries:
// Alpha Vantage, then the upstream rate limiter, then the TTL cache.
package stack

import (
	"net/http"
	"time"

	"stocktracker/internal/config"
	"stocktracker/internal/provider/alphavantage"
	"stocktracker/internal/provider/cache"
	"stocktracker/internal/provider/ratelimit"
)

// Build wires the chain from cfg. hc is used for upstream calls.
func Build(cfg config.Config, hc alphavantage.HTTPClient) (*cache.Provider, error) {
	opts := []alphavantage.Option{alphavantage.WithHTTPClient(hc)}
	if cfg.AlphaVantage.BaseURL != "" {
		opts = append(opts, alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL))
	}
	opts = append(opts, alphavantage.WithHeader(http.Header{"Accept": []string{"application/json"}}))
	client, err := alphavantage.NewClient(cfg.AlphaVantage.APIKey, opts...)
	if err != nil {
		return nil, err
	}

	limited := &ratelimit.Fetcher{
		P: alphavantage.NewFetcher(client),
		L: ratelimit.PerMinute(cfg.AlphaVantage.MaxRequestsPerMinute, cfg.AlphaVantage.Burst),
	}
	return &cache.Provider{
		P:             limited,
		TTL:           time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		MaxItems:      cfg.Cache.MaxItems,
		Coalesce:      cfg.Cache.Coalesce,
		FlightTimeout: time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
	}, nil
}
