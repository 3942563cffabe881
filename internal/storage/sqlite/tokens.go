package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/storage"
)

func (s *Store) SaveToken(token models.FeedToken) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO feed_tokens (hash, created_at, expires_at) VALUES (?, ?, ?)",
		token.Hash, formatTime(token.CreatedAt), formatTime(token.ExpiresAt))
	return err
}

func (s *Store) GetToken(hash string) (models.FeedToken, error) {
	var t models.FeedToken
	var created, expires string
	err := s.db.QueryRow("SELECT hash, created_at, expires_at FROM feed_tokens WHERE hash = ?", hash).
		Scan(&t.Hash, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FeedToken{}, fmt.Errorf("feed token: %w", storage.ErrNotFound)
	}
	if err != nil {
		return models.FeedToken{}, err
	}
	return finishToken(t, created, expires)
}

func (s *Store) ListTokens() ([]models.FeedToken, error) {
	rows, err := s.db.Query("SELECT hash, created_at, expires_at FROM feed_tokens ORDER BY created_at, hash")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []models.FeedToken
	for rows.Next() {
		var t models.FeedToken
		var created, expires string
		if err := rows.Scan(&t.Hash, &created, &expires); err != nil {
			return nil, err
		}
		if t, err = finishToken(t, created, expires); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func finishToken(t models.FeedToken, created, expires string) (models.FeedToken, error) {
	var err error
	if t.CreatedAt, err = parseTime(created); err != nil {
		return models.FeedToken{}, fmt.Errorf("invalid token created_at: %w", err)
	}
	if t.ExpiresAt, err = parseTime(expires); err != nil {
		return models.FeedToken{}, fmt.Errorf("invalid token expires_at: %w", err)
	}
	return t, nil
}

func (s *Store) DeleteToken(hash string) error {
	res, err := s.db.Exec("DELETE FROM feed_tokens WHERE hash = ?", hash)
	if err != nil {
		return err
	}
	return expectOne(res, "feed token", hash)
}

func (s *Store) PruneTokens(now time.Time) (int, error) {
	res, err := s.db.Exec("DELETE FROM feed_tokens WHERE expires_at <= ?", formatTime(now))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
