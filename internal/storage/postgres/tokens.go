package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/storage"
)

func (s *Store) SaveToken(token models.FeedToken) error {
	_, err := s.db.Exec(`
		INSERT INTO feed_tokens (hash, created_at, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (hash) DO UPDATE SET created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
		token.Hash, token.CreatedAt.UTC(), token.ExpiresAt.UTC())
	return err
}

func (s *Store) GetToken(hash string) (models.FeedToken, error) {
	var t models.FeedToken
	err := s.db.QueryRow("SELECT hash, created_at, expires_at FROM feed_tokens WHERE hash = $1", hash).
		Scan(&t.Hash, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FeedToken{}, fmt.Errorf("feed token: %w", storage.ErrNotFound)
	}
	return t, err
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
		if err := rows.Scan(&t.Hash, &t.CreatedAt, &t.ExpiresAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *Store) DeleteToken(hash string) error {
	res, err := s.db.Exec("DELETE FROM feed_tokens WHERE hash = $1", hash)
	if err != nil {
		return err
	}
	return expectOne(res, "feed token", hash)
}

func (s *Store) PruneTokens(now time.Time) (int, error) {
	res, err := s.db.Exec("DELETE FROM feed_tokens WHERE expires_at <= $1", now.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
