// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package sqlite3store provides an scs session store backed by the
// application's sqlite database.
package sqlite3store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// SqlDB is the subset of *sql.DB the store needs.
type SqlDB interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type OptFunc func(*SQLite3Store)

// WithCleanupInterval sets a custom cleanup interval. Setting it to 0
// prevents the cleanup goroutine from running, so expired sessions are
// never removed.
func WithCleanupInterval(interval time.Duration) OptFunc {
	return func(s *SQLite3Store) {
		s.cleanupInterval = interval
	}
}

// SQLite3Store represents the session store.
type SQLite3Store struct {
	db              SqlDB
	stopCleanup     chan bool
	cleanupInterval time.Duration
}

// New returns a new SQLite3Store instance, with a background cleanup
// goroutine that runs every 5 minutes to remove expired session data.
func New(db SqlDB, opts ...OptFunc) *SQLite3Store {
	s := &SQLite3Store{
		db:              db,
		cleanupInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cleanupInterval > 0 {
		s.stopCleanup = make(chan bool)
		go s.startCleanup()
	}

	return s
}

// Find returns the data for a session token. If the token is not found or
// is expired, the found return value will be false.
func (s *SQLite3Store) Find(token string) (b []byte, found bool, err error) {
	return s.FindCtx(context.Background(), token)
}

// FindCtx returns the data for a session token. If the token is not found
// or is expired, the found return value will be false.
func (s *SQLite3Store) FindCtx(ctx context.Context, token string) (b []byte, found bool, err error) {
	row := s.db.QueryRowContext(ctx, "SELECT data FROM sessions WHERE token = ? AND expiry > ?", token, time.Now().Unix())
	if err := row.Scan(&b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// Commit adds a session token and data with the given expiry time,
// updating both if the token already exists.
func (s *SQLite3Store) Commit(token string, b []byte, expiry time.Time) error {
	return s.CommitCtx(context.Background(), token, b, expiry)
}

// CommitCtx adds a session token and data with the given expiry time,
// updating both if the token already exists.
func (s *SQLite3Store) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO sessions (token, data, expiry) VALUES (?, ?, ?)", token, b, expiry.Unix())
	return err
}

// Delete removes a session token and corresponding data.
func (s *SQLite3Store) Delete(token string) error {
	return s.DeleteCtx(context.Background(), token)
}

// DeleteCtx removes a session token and corresponding data.
func (s *SQLite3Store) DeleteCtx(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// All returns the data for all active sessions keyed by token.
func (s *SQLite3Store) All() (map[string][]byte, error) {
	return s.AllCtx(context.Background())
}

// AllCtx returns the data for all active sessions keyed by token.
func (s *SQLite3Store) AllCtx(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT token, data FROM sessions WHERE expiry > ?", time.Now().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make(map[string][]byte)

	for rows.Next() {
		var token string
		var data []byte

		if err := rows.Scan(&token, &data); err != nil {
			return nil, err
		}

		sessions[token] = data
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// StopCleanup terminates the background cleanup goroutine. Call it before
// shutting down the application.
func (s *SQLite3Store) StopCleanup() {
	if s.stopCleanup != nil {
		s.stopCleanup <- true
	}
}

func (s *SQLite3Store) startCleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	for {
		select {
		case <-ticker.C:
			if err := s.deleteExpired(); err != nil {
				log.Error().Err(err).Msg("sqlite3store: unable to delete expired session data")
			}
		case <-s.stopCleanup:
			ticker.Stop()
			return
		}
	}
}

func (s *SQLite3Store) deleteExpired() error {
	_, err := s.db.ExecContext(context.Background(), "DELETE FROM sessions WHERE expiry <= ?", time.Now().Unix())
	return err
}
