package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"stocktracker/internal/config"
	"stocktracker/internal/httpx"
	"stocktracker/internal/logx"
	"stocktracker/internal/provider"
	"stocktracker/internal/provider/stack"
)

// displayQuote is a quote with numbers rounded for reading.
type displayQuote struct {
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Change        string `json:"change"`
	ChangePercent string `json:"changePercent"`
	LastUpdated   string `json:"lastUpdated"`
}

type output struct {
	Quotes []displayQuote    `json:"quotes"`
	Errors map[string]string `json:"errors,omitempty"`
}

func main() {
	var symbolsCSV string
	var configPath string
	var timeout int

	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "AAPL"), "comma-separated ticker symbols")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.yaml (optional)")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 15), "overall timeout seconds")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("config: %v", err)
	}
	log := logx.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	symbols := config.SplitCSV(symbolsCSV)
	if len(symbols) == 0 {
		fatal("no symbols provided")
	}

	quotes, err := stack.Build(cfg, httpx.New(time.Duration(cfg.Server.RequestTimeoutSec)*time.Second))
	if err != nil {
		fatal("quote provider: %v (set STOCK_API_KEY)", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	out := fetchAll(ctx, quotes, symbols, log)
	if err := writeOutput(os.Stdout, out); err != nil {
		fatal("write: %v", err)
	}
	if len(out.Quotes) == 0 {
		os.Exit(1)
	}
}

// fetchAll asks for one symbol at a time, keeping going past failures.
func fetchAll(ctx context.Context, f provider.Fetcher, symbols []string, log *slog.Logger) output {
	out := output{Quotes: []displayQuote{}}
	for _, s := range symbols {
		sym := provider.NormalizeSymbol(s)
		q, err := f.Fetch(ctx, sym)
		if err != nil {
			log.Warn("fetch failed", "symbol", sym, "err", err)
			if out.Errors == nil {
				out.Errors = map[string]string{}
			}
			out.Errors[sym] = describe(err)
			continue
		}
		out.Quotes = append(out.Quotes, toDisplay(q))
	}
	log.Info("done", "provider", f.Name(), "quotes", len(out.Quotes), "errors", len(out.Errors))
	return out
}

func describe(err error) string {
	if errors.Is(err, provider.ErrRateLimitedOrInvalidSymbol) {
		return "rate limited or invalid symbol"
	}
	return err.Error()
}

func toDisplay(q provider.Quote) displayQuote {
	return displayQuote{
		Symbol:        q.Symbol,
		Price:         round2(q.Price),
		Change:        round2(q.Change),
		ChangePercent: q.ChangePercent,
		LastUpdated:   q.LastUpdated,
	}
}

// round2 formats a decimal string with two places; unparsable input is kept.
func round2(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.StringFixed(2)
}

func writeOutput(w io.Writer, out output) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "quote: "+format+"\n", args...)
	os.Exit(1)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if x, err := strconv.Atoi(os.Getenv(key)); err == nil && x > 0 {
		return x
	}
	return def
}
