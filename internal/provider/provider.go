package provider

import (
	"context"
	"errors"
	"strings"
)

// Quote is the normalized snapshot returned by all fetchers.
// Fields stay as provider-supplied strings to avoid float rounding.
type Quote struct {
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Change        string `json:"change"`
	ChangePercent string `json:"changePercent"`
	LastUpdated   string `json:"lastUpdated"`
}

var (
	// ErrRateLimitedOrInvalidSymbol means the upstream answered without a usable
	// price. Callers should treat it as retryable.
	ErrRateLimitedOrInvalidSymbol = errors.New("rate limited or invalid symbol")
	// ErrUpstreamUnavailable covers transport, status and decode failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Fetcher returns a quote for a single ticker symbol.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (Quote, error)
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
