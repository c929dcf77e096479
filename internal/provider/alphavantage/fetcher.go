package alphavantage

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stocktracker/internal/provider"
)

// Fetcher adapts Client to provider.Fetcher.
type Fetcher struct {
	client *Client
}

func NewFetcher(client *Client) *Fetcher { return &Fetcher{client: client} }

func (f *Fetcher) Name() string { return "AlphaVantage" }

func (f *Fetcher) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	gq, err := f.client.GetGlobalQuote(ctx, symbol)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("alphavantage: %w", err)
	}
	price := strings.TrimSpace(gq.Price)
	if _, err := decimal.NewFromString(price); err != nil {
		return provider.Quote{}, fmt.Errorf("alphavantage: %s: unusable price %q: %w", symbol, gq.Price, provider.ErrRateLimitedOrInvalidSymbol)
	}

	sym := gq.Symbol
	if sym == "" {
		sym = symbol
	}
	return provider.Quote{
		Symbol:        sym,
		Price:         price,
		Change:        gq.Change,
		ChangePercent: gq.ChangePercent,
		LastUpdated:   gq.LatestTradingDay,
	}, nil
}
