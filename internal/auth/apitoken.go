package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenPrefix identifies backbeat API tokens so userscripts and logs can
// recognize them without revealing the secret.
const TokenPrefix = "bbt_"

// ErrInvalidToken is returned when an API token does not match any
// stored token.
var ErrInvalidToken = errors.New("invalid api token")

// APIToken describes a stored token. The plaintext secret is only
// available at creation time.
type APIToken struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CreatedAt  string `json:"created_at"`
	LastUsedAt string `json:"last_used_at,omitempty"`
}

// CreateAPIToken mints a token for the user and returns the plaintext
// exactly once. Only the SHA-256 digest is stored.
func (s *Service) CreateAPIToken(ctx context.Context, userID, name string) (plaintext, id string, err error) {
	secret, err := randomHex(24)
	if err != nil {
		return "", "", fmt.Errorf("generating api token: %w", err)
	}
	plaintext = TokenPrefix + secret

	id = uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO api_tokens (id, user_id, name, token_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, userID, name, hashToken(plaintext), now)
	if err != nil {
		return "", "", fmt.Errorf("storing api token: %w", err)
	}

	s.logger.Info("api token created", "name", name, "user_id", userID)
	return plaintext, id, nil
}

// ValidateAPIToken checks a presented token and returns the owning user ID.
// Updates last_used_at on success.
func (s *Service) ValidateAPIToken(ctx context.Context, token string) (string, error) {
	if !strings.HasPrefix(token, TokenPrefix) {
		return "", ErrInvalidToken
	}

	var id, userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id FROM api_tokens WHERE token_hash = ?
	`, hashToken(token)).Scan(&id, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("querying api token: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, `
		UPDATE api_tokens SET last_used_at = ? WHERE id = ?
	`, now, id); err != nil {
		s.logger.Warn("updating token last_used_at", "error", err)
	}

	return userID, nil
}

// ListAPITokens lists all tokens belonging to the user.
func (s *Service) ListAPITokens(ctx context.Context, userID string) ([]APIToken, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, COALESCE(last_used_at, '')
		FROM api_tokens WHERE user_id = ? ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing api tokens: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tokens []APIToken
	for rows.Next() {
		var t APIToken
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning api token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// RevokeAPIToken deletes a token owned by the user.
func (s *Service) RevokeAPIToken(ctx context.Context, tokenID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM api_tokens WHERE id = ? AND user_id = ?
	`, tokenID, userID)
	if err != nil {
		return fmt.Errorf("revoking api token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidToken
	}
	return nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
