package memstore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktracker/internal/user"
)

func TestCreate_AssignsIDAndNormalizesEmail(t *testing.T) {
	t.Parallel()

	// Arrange
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New()
	s.Now = func() time.Time { return now }

	// Act
	u, err := s.Create(t.Context(), user.User{Name: "Ada", Email: " Ada@Example.COM ", PasswordHash: "h"})

	// Assert
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	require.Equal(t, "ada@example.com", u.Email)
	require.Equal(t, now, u.CreatedAt)
	require.Equal(t, []string{}, u.Watchlist)

	got, err := s.ByEmail(t.Context(), "ADA@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.Create(t.Context(), user.User{Name: "a", Email: "a@b.co"})
	require.NoError(t, err)

	_, err = s.Create(t.Context(), user.User{Name: "b", Email: "A@B.CO"})
	require.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestLookups_NotFound(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.ByID(t.Context(), "missing")
	require.ErrorIs(t, err, user.ErrNotFound)
	_, err = s.ByEmail(t.Context(), "nobody@example.com")
	require.ErrorIs(t, err, user.ErrNotFound)
	_, err = s.SetWatchlist(t.Context(), "missing", []string{"AAPL"})
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestSetWatchlist_ReturnsCopies(t *testing.T) {
	t.Parallel()

	// Arrange
	s := New()
	u, err := s.Create(t.Context(), user.User{Name: "a", Email: "a@b.co"})
	require.NoError(t, err)
	in := []string{"AAPL", "MSFT"}

	// Act
	out, err := s.SetWatchlist(t.Context(), u.ID, in)
	require.NoError(t, err)
	in[0] = "ZZZ"
	out[1] = "YYY"

	// Assert: neither the caller's input nor the returned slice aliases storage
	got, err := s.ByID(t.Context(), u.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"AAPL", "MSFT"}, got.Watchlist)
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	u, err := s.Create(t.Context(), user.User{Name: "a", Email: "a@b.co"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.SetWatchlist(t.Context(), u.ID, []string{"AAPL"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.ByID(t.Context(), u.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
