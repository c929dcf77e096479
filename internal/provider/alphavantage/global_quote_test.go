package alphavantage_test

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"stocktracker/internal/provider"
	"stocktracker/internal/provider/alphavantage"
)

func TestGetGlobalQuote(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "/query", req.URL.Path)
			require.Equal(t, "test-key", req.URL.Query().Get("apikey"))
			require.Equal(t, "GLOBAL_QUOTE", req.URL.Query().Get("function"))
			require.Equal(t, "MSFT", req.URL.Query().Get("symbol"))
			return okResponse(t, quotePayload("MSFT", "421.5000")), nil
		}).
		Times(1)

	// Arrange: setup a new client
	client, err := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: call GetGlobalQuote
	quote, err := client.GetGlobalQuote(t.Context(), "MSFT")

	// Assert: the quote should be decoded from the mock response
	require.NoError(t, err)
	require.Equal(t, "MSFT", quote.Symbol)
	require.Equal(t, "421.5000", quote.Price)
	require.Equal(t, "2025-01-02", quote.LatestTradingDay)
	require.Equal(t, "0.6500%", quote.ChangePercent)
}

func TestGetGlobalQuote_WithFixture(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Load the fixture data
	fixtureData, err := os.OpenFile("fixtures/global_quote_ibm.json", os.O_RDONLY, 0600)
	require.NoError(t, err)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{StatusCode: http.StatusOK, Body: fixtureData}, nil).
		Times(1)

	client, err := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act
	quote, err := client.GetGlobalQuote(t.Context(), "IBM")

	// Assert
	require.NoError(t, err)
	require.Equal(t, alphavantage.GlobalQuote{
		Symbol:           "IBM",
		Open:             "226.9000",
		High:             "229.7500",
		Low:              "226.3700",
		Price:            "229.3500",
		Volume:           "3398573",
		LatestTradingDay: "2025-01-02",
		PreviousClose:    "226.1600",
		Change:           "3.1900",
		ChangePercent:    "1.4105%",
	}, *quote)
}

func TestGetGlobalQuote_RateLimitedFixture(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fixtureData, err := os.OpenFile("fixtures/rate_limited.json", os.O_RDONLY, 0600)
	require.NoError(t, err)

	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{StatusCode: http.StatusOK, Body: fixtureData}, nil).
		Times(1)

	client, err := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	quote, err := client.GetGlobalQuote(t.Context(), "IBM")
	require.ErrorIs(t, err, provider.ErrRateLimitedOrInvalidSymbol)
	require.Contains(t, err.Error(), "standard API rate limit")
	require.Nil(t, quote)
}

func TestGetGlobalQuote_EmptyQuoteIsInvalidSymbol(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return okResponse(t, map[string]any{"Global Quote": map[string]any{}}), nil
		}).
		Times(1)

	client, err := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	quote, err := client.GetGlobalQuote(t.Context(), "NOPE")
	require.ErrorIs(t, err, provider.ErrRateLimitedOrInvalidSymbol)
	require.Nil(t, quote)
}

func TestGetGlobalQuote_ErrCreatingRequest(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client that must not be called
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Times(0)

	client, err := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: call GetGlobalQuote with an invalid base URL
	quote, err := client.GetGlobalQuote(t.Context(), "IBM", alphavantage.WithBaseURL(string([]rune{0x7f})))
	require.ErrorIs(t, err, provider.ErrUpstreamUnavailable)
	require.Nil(t, quote)
}

func TestGetGlobalQuote_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, fmt.Errorf("connection refused")
		}).
		Times(1)

	client, err := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	quote, err := client.GetGlobalQuote(t.Context(), "IBM")
	require.ErrorIs(t, err, provider.ErrUpstreamUnavailable)
	require.Nil(t, quote)
}

func TestGetGlobalQuote_TransportErrorHidesAPIKey(t *testing.T) {
	t.Parallel()

	// Arrange: the transport fails the way net/http does, quoting the URL
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: fmt.Errorf("connection refused")}
		}).
		Times(1)

	client, err := alphavantage.NewClient("super-secret", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act
	_, err = client.GetGlobalQuote(t.Context(), "IBM")

	// Assert
	require.ErrorIs(t, err, provider.ErrUpstreamUnavailable)
	require.NotContains(t, err.Error(), "super-secret")
	require.Contains(t, err.Error(), "https://www.alphavantage.co/query")
	require.Contains(t, err.Error(), "connection refused")
}

func TestGetGlobalQuote_StatusCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"too many requests", http.StatusTooManyRequests, provider.ErrRateLimitedOrInvalidSymbol},
		{"server error", http.StatusInternalServerError, provider.ErrUpstreamUnavailable},
		{"forbidden", http.StatusForbidden, provider.ErrUpstreamUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().
				Do(gomock.Any()).
				Return(&http.Response{StatusCode: tc.status, Body: io.NopCloser(bytes.NewReader(nil))}, nil).
				Times(1)

			client, err := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
			require.NoError(t, err)

			quote, err := client.GetGlobalQuote(t.Context(), "IBM")
			require.ErrorIs(t, err, tc.want)
			require.Nil(t, quote)
		})
	}
}

func TestGetGlobalQuote_ErrDecodingResponse(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			buffer := &bytes.Buffer{}
			buffer.WriteString("invalid json")
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(buffer)}, nil
		}).
		Times(1)

	client, err := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	quote, err := client.GetGlobalQuote(t.Context(), "IBM")
	require.ErrorIs(t, err, provider.ErrUpstreamUnavailable)
	require.Nil(t, quote)
}
