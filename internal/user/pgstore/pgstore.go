// Package pgstore persists users in PostgreSQL through a pgx connection pool.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"stocktracker/internal/user"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            uuid PRIMARY KEY,
	name          text        NOT NULL,
	email         text        NOT NULL UNIQUE,
	password_hash text        NOT NULL,
	watchlist     text[]      NOT NULL DEFAULT '{}',
	created_at    timestamptz NOT NULL,
	updated_at    timestamptz NOT NULL
)`

const selectColumns = `SELECT id::text, name, email, password_hash, watchlist, created_at, updated_at FROM users`

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Connect creates a pool, pings it and applies the schema.
func Connect(ctx context.Context, url string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool, now: time.Now}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Create(ctx context.Context, u user.User) (user.User, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	u.ID = uuid.NewString()
	u.Email = user.NormalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Watchlist == nil {
		u.Watchlist = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, watchlist, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Watchlist, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, mapError("insert user", err)
	}
	return u, nil
}

func (s *Store) ByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.pool.QueryRow(ctx, selectColumns+` WHERE email = $1`, user.NormalizeEmail(email))
	return scanUser(row)
}

func (s *Store) ByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) SetWatchlist(ctx context.Context, id string, watchlist []string) ([]string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, user.ErrNotFound
	}
	if watchlist == nil {
		watchlist = []string{}
	}
	var out []string
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET watchlist = $2, updated_at = $3 WHERE id = $1 RETURNING watchlist`,
		id, watchlist, s.now().UTC()).Scan(&out)
	if err != nil {
		return nil, mapError("update watchlist", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Watchlist, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return user.User{}, mapError("select user", err)
	}
	if u.Watchlist == nil {
		u.Watchlist = []string{}
	}
	return u, nil
}

// mapError turns driver errors into user sentinels.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return user.ErrEmailTaken
	}
	return fmt.Errorf("%s: %w", op, err)
}
