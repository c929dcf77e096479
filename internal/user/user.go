// Package user defines the account record and the storage contract shared by
// the memory, MongoDB and PostgreSQL backends.
package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the id or email.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by Create when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Watchlist    []string  `json:"watchlist"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public is the subset of a user returned to clients.
type Public struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Public() Public { return Public{ID: u.ID, Name: u.Name, Email: u.Email} }

// Store persists users. Implementations must be safe for concurrent use and
// must return copies, never shared slices.
type Store interface {
	// Create assigns ID and timestamps and stores u.
	Create(ctx context.Context, u User) (User, error)
	ByEmail(ctx context.Context, email string) (User, error)
	ByID(ctx context.Context, id string) (User, error)
	// SetWatchlist replaces the watchlist of the user and returns the stored list.
	SetWatchlist(ctx context.Context, id string, watchlist []string) ([]string, error)
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
