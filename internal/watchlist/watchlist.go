// Package watchlist manages the ordered set of ticker symbols kept per user.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"stocktracker/internal/provider"
	"stocktracker/internal/user"
)

var (
	ErrSymbolRequired  = errors.New("stock symbol is required")
	ErrDuplicateSymbol = errors.New("stock already in watchlist")
)

type Service struct {
	Users user.Store
}

func New(users user.Store) *Service { return &Service{Users: users} }

// List returns the symbols in insertion order. Never nil.
func (s *Service) List(ctx context.Context, userID string) ([]string, error) {
	u, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Watchlist == nil {
		return []string{}, nil
	}
	return u.Watchlist, nil
}

// Add appends the normalized symbol. The membership check and the write are
// not atomic; two concurrent adds of the same symbol may both succeed.
func (s *Service) Add(ctx context.Context, userID, symbol string) ([]string, error) {
	symbol = provider.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrSymbolRequired
	}
	current, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if slices.Contains(current, symbol) {
		return nil, fmt.Errorf("%s: %w", symbol, ErrDuplicateSymbol)
	}
	return s.Users.SetWatchlist(ctx, userID, append(slices.Clone(current), symbol))
}

// Remove drops every occurrence of the normalized symbol. Removing a symbol
// that is not present is not an error.
func (s *Service) Remove(ctx context.Context, userID, symbol string) ([]string, error) {
	symbol = provider.NormalizeSymbol(symbol)
	current, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := slices.DeleteFunc(slices.Clone(current), func(v string) bool { return v == symbol })
	return s.Users.SetWatchlist(ctx, userID, next)
}
