package postgres

import (
	"fmt"
	"time"
)

func (s *Store) SequenceForRevision(revision string, seenAt time.Time) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Serialize allocation so concurrent feed requests cannot claim the same sequence.
	if _, err := tx.Exec("LOCK TABLE plan_revisions IN SHARE ROW EXCLUSIVE MODE"); err != nil {
		return 0, fmt.Errorf("failed to lock plan revisions: %w", err)
	}
	// Only a change from the latest revision advances the sequence.
	if _, err := tx.Exec(`
		INSERT INTO plan_revisions (revision, sequence, first_seen_at)
		SELECT $1::text, (SELECT COALESCE(MAX(sequence), 0) + 1 FROM plan_revisions), $2::timestamptz
		WHERE COALESCE((SELECT revision FROM plan_revisions ORDER BY sequence DESC LIMIT 1), '') <> $1::text
		ON CONFLICT (revision) DO UPDATE SET sequence = EXCLUDED.sequence`, revision, seenAt.UTC()); err != nil {
		return 0, fmt.Errorf("failed to record plan revision: %w", err)
	}

	var seq int
	if err := tx.QueryRow("SELECT sequence FROM plan_revisions WHERE revision = $1", revision).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read plan revision: %w", err)
	}
	return seq, tx.Commit()
}
