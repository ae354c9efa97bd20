// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package auth manages the single local operator account and API keys that
// protect the gateway surface. Identity against the platform itself is a
// bearer token from config; this package only guards the local UI/API.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/talentgate/talentgate/internal/database"
	"github.com/talentgate/talentgate/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSetupAlreadyDone   = errors.New("initial setup already completed")
)

const minPasswordLength = 8

type Service struct {
	db *database.DB
}

func NewService(db *database.DB) *Service {
	return &Service{db: db}
}

// SetupUser creates the single local account. It fails once any user
// exists; talentgate is a one-operator gateway.
func (s *Service) SetupUser(ctx context.Context, username, password string) (*models.User, error) {
	if len(password) < minPasswordLength {
		return nil, errors.Errorf("password must be at least %d characters", minPasswordLength)
	}

	complete, err := s.IsSetupComplete(ctx)
	if err != nil {
		return nil, err
	}
	if complete {
		return nil, models.ErrUserAlreadyExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result, err := s.db.Conn().ExecContext(ctx,
		"INSERT INTO users (username, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?)",
		username, hash, now, now,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	log.Info().Str("username", username).Msg("local user created")

	return &models.User{
		ID:           int(id),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Login verifies the credentials and returns the user.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.getUser(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn().Str("username", username).Msg("failed login attempt")
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// ChangePassword rotates the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return errors.Errorf("password must be at least %d characters", minPasswordLength)
	}

	if _, err := s.Login(ctx, username, currentPassword); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = s.db.Conn().ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE username = ?",
		hash, time.Now(), username,
	)
	return errors.Wrap(err, "failed to update password")
}

// ResetPassword sets a new password without verifying the current one.
// CLI use only; anyone who can run the binary owns the database anyway.
func (s *Service) ResetPassword(ctx context.Context, username, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return errors.Errorf("password must be at least %d characters", minPasswordLength)
	}

	if _, err := s.getUser(ctx, username); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = s.db.Conn().ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE username = ?",
		hash, time.Now(), username,
	)
	return errors.Wrap(err, "failed to reset password")
}

// IsSetupComplete reports whether the local account exists yet.
func (s *Service) IsSetupComplete(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateAPIKey mints a new API key, stores its hash and returns the raw
// key once. The raw key is never recoverable afterwards.
func (s *Service) GenerateAPIKey(ctx context.Context, name string) (string, *models.APIKey, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, err
	}
	key := hex.EncodeToString(raw)

	now := time.Now()
	result, err := s.db.Conn().ExecContext(ctx,
		"INSERT INTO api_keys (key_hash, name, created_at) VALUES (?, ?, ?)",
		hashAPIKey(key), name, now,
	)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to store api key")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", nil, err
	}

	return key, &models.APIKey{
		ID:        int(id),
		Name:      name,
		CreatedAt: now,
	}, nil
}

// ListAPIKeys returns all API keys, newest first.
func (s *Service) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		"SELECT id, name, created_at, last_used_at FROM api_keys ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list api keys")
	}
	defer rows.Close()

	keys := make([]*models.APIKey, 0)
	for rows.Next() {
		key := &models.APIKey{}
		var lastUsed sql.NullTime

		if err := rows.Scan(&key.ID, &key.Name, &key.CreatedAt, &lastUsed); err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			key.LastUsedAt = &lastUsed.Time
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// ValidateAPIKey resolves a raw key to its record and touches last_used_at.
func (s *Service) ValidateAPIKey(ctx context.Context, key string) (*models.APIKey, error) {
	apiKey := &models.APIKey{}
	var lastUsed sql.NullTime

	err := s.db.Conn().QueryRowContext(ctx,
		"SELECT id, name, created_at, last_used_at FROM api_keys WHERE key_hash = ?",
		hashAPIKey(key),
	).Scan(&apiKey.ID, &apiKey.Name, &apiKey.CreatedAt, &lastUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrAPIKeyNotFound
		}
		return nil, err
	}

	if lastUsed.Valid {
		apiKey.LastUsedAt = &lastUsed.Time
	}

	if _, err := s.db.Conn().ExecContext(ctx,
		"UPDATE api_keys SET last_used_at = ? WHERE id = ?", time.Now(), apiKey.ID,
	); err != nil {
		log.Warn().Err(err).Int("apiKeyID", apiKey.ID).Msg("failed to update api key last_used_at")
	}

	return apiKey, nil
}

// DeleteAPIKey removes a key by ID.
func (s *Service) DeleteAPIKey(ctx context.Context, id int) error {
	result, err := s.db.Conn().ExecContext(ctx, "DELETE FROM api_keys WHERE id = ?", id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrAPIKeyNotFound
	}
	return nil
}

func (s *Service) getUser(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := s.db.Conn().QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at, updated_at FROM users WHERE username = ?",
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func hashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
