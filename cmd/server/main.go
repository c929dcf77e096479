package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocktracker/internal/api"
	"stocktracker/internal/auth"
	"stocktracker/internal/config"
	"stocktracker/internal/httpx"
	"stocktracker/internal/logx"
	"stocktracker/internal/provider/stack"
	"stocktracker/internal/user"
	"stocktracker/internal/user/memstore"
	"stocktracker/internal/user/mongostore"
	"stocktracker/internal/user/pgstore"
	"stocktracker/internal/watchlist"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logx.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info("user store ready", "driver", cfg.Store.Driver)

	timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
	quotes, err := stack.Build(cfg, httpx.New(timeout))
	if err != nil {
		return fmt.Errorf("quote provider: %w", err)
	}
	log.Info("quote provider ready",
		"provider", quotes.Name(),
		"cache_ttl", quotes.TTL,
		"max_rpm", cfg.AlphaVantage.MaxRequestsPerMinute,
		"coalesce", quotes.Coalesce,
	)

	srv := api.New(api.Deps{
		Auth: &auth.Service{
			Users:      users,
			Secret:     []byte(cfg.Auth.JWTSecret),
			TokenTTL:   time.Duration(cfg.Auth.TokenTTLHours) * time.Hour,
			BcryptCost: cfg.Auth.BcryptCost,
		},
		Users:          users,
		Watchlist:      watchlist.New(users),
		Quotes:         quotes,
		Logger:         log,
		RequestTimeout: timeout,
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// leaves room for a rate limited upstream call
		WriteTimeout: timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Store) (user.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverMongo:
		s, err := mongostore.Connect(ctx, cfg.URL, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close(context.Background()) }, nil
	case config.DriverPostgres:
		s, err := pgstore.Connect(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return memstore.New(), func() {}, nil
	}
}
