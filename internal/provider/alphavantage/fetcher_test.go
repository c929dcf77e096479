package alphavantage_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"stocktracker/internal/provider"
	"stocktracker/internal/provider/alphavantage"
)

func TestFetcher_NormalizesQuote(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return okResponse(t, quotePayload("AAPL", " 187.4400 ")), nil
		}).
		Times(1)

	client, err := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)
	f := alphavantage.NewFetcher(client)

	q, err := f.Fetch(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, provider.Quote{
		Symbol:        "AAPL",
		Price:         "187.4400",
		Change:        "1.5000",
		ChangePercent: "0.6500%",
		LastUpdated:   "2025-01-02",
	}, q)
	require.Equal(t, "AlphaVantage", f.Name())
}

func TestFetcher_UnparseablePriceIsRateLimited(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return okResponse(t, quotePayload("AAPL", "n/a")), nil
		}).
		Times(1)

	client, err := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = alphavantage.NewFetcher(client).Fetch(t.Context(), "AAPL")
	require.ErrorIs(t, err, provider.ErrRateLimitedOrInvalidSymbol)
}

func TestFetcher_FallsBackToRequestedSymbol(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return okResponse(t, quotePayload("", "10.00")), nil
		}).
		Times(1)

	client, err := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	q, err := alphavantage.NewFetcher(client).Fetch(t.Context(), "BRK.B")
	require.NoError(t, err)
	require.Equal(t, "BRK.B", q.Symbol)
}
