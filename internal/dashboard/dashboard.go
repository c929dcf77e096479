// Package dashboard loads quotes for a whole watchlist.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stocktracker/internal/provider"
)

const (
	ErrTextRateLimited = "rate limited"
	ErrTextUnavailable = "unavailable"
)

// Row is the outcome for one symbol. Exactly one of Quote and Error is set.
type Row struct {
	Symbol string          `json:"symbol"`
	Quote  *provider.Quote `json:"quote,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type Loader struct {
	F provider.Fetcher
	// Timeout bounds each symbol's fetch, including any wait for the limiter.
	// Zero means the caller's context alone applies.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Load fetches each symbol in order, one at a time, so a cold watchlist never
// bursts the upstream quota. A failed symbol does not stop the others.
func (l *Loader) Load(ctx context.Context, symbols []string) []Row {
	rows := make([]Row, 0, len(symbols))
	for _, s := range symbols {
		sym := provider.NormalizeSymbol(s)
		q, err := l.fetch(ctx, sym)
		if err != nil {
			if l.Logger != nil {
				l.Logger.WarnContext(ctx, "dashboard quote failed", "symbol", sym, "err", err)
			}
			rows = append(rows, Row{Symbol: sym, Error: errorText(err)})
			continue
		}
		rows = append(rows, Row{Symbol: sym, Quote: &q})
	}
	return rows
}

func (l *Loader) fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	return l.F.Fetch(ctx, symbol)
}

func errorText(err error) string {
	if errors.Is(err, provider.ErrRateLimitedOrInvalidSymbol) {
		return ErrTextRateLimited
	}
	return ErrTextUnavailable
}
