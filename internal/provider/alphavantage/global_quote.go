package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"stocktracker/internal/provider"
)

// GlobalQuote is the latest price snapshot for a symbol.
type GlobalQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open"`
	High             string `json:"03. high"`
	Low              string `json:"04. low"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"`
}

type globalQuoteResponse struct {
	GlobalQuote  *GlobalQuote `json:"Global Quote"`
	Note         string       `json:"Note"`
	Information  string       `json:"Information"`
	ErrorMessage string       `json:"Error Message"`
}

// GetGlobalQuote retrieves the GLOBAL_QUOTE snapshot for symbol.
//
// A response without a price means the key is throttled or the symbol is
// unknown; both come back as provider.ErrRateLimitedOrInvalidSymbol.
// Transport, status and decoding failures wrap provider.ErrUpstreamUnavailable.
func (c *Client) GetGlobalQuote(ctx context.Context, symbol string, opts ...Option) (*GlobalQuote, error) {
	var override = &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}

	query := maps.Clone(override.query)
	query.Set("function", "GLOBAL_QUOTE")
	query.Set("symbol", symbol)

	endpoint := fmt.Sprintf("%s/query?%s", override.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w: %w", redactKey(err), provider.ErrUpstreamUnavailable)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w: %w", redactKey(err), provider.ErrUpstreamUnavailable)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: %w", symbol, provider.ErrRateLimitedOrInvalidSymbol)

	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, fmt.Errorf("unexpected status code %d: %s: %w", res.StatusCode, strings.TrimSpace(string(b)), provider.ErrUpstreamUnavailable)
	}

	var body globalQuoteResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding global quote response: %w: %w", err, provider.ErrUpstreamUnavailable)
	}

	if body.GlobalQuote == nil || strings.TrimSpace(body.GlobalQuote.Price) == "" {
		reason := firstNonEmpty(body.Note, body.Information, body.ErrorMessage, "no price in response")
		return nil, fmt.Errorf("%s: %s: %w", symbol, reason, provider.ErrRateLimitedOrInvalidSymbol)
	}
	return body.GlobalQuote, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// redactKey drops the query string from a *url.Error so the apikey does not
// end up in logs.
func redactKey(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	if i := strings.IndexByte(uerr.URL, '?'); i >= 0 {
		uerr.URL = uerr.URL[:i]
	}
	return err
}
