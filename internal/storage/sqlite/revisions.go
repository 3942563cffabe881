package sqlite

import (
	"fmt"
	"time"
)

// SequenceForRevision returns the sequence number for publishing revision. The latest
// published revision keeps its number; any other revision, including one published
// before, is moved to the next number so sequences never go backwards.
func (s *Store) SequenceForRevision(revision string, seenAt time.Time) (int, error) {
	_, err := s.db.Exec(`
		INSERT INTO plan_revisions (revision, sequence, first_seen_at)
		SELECT ?, (SELECT COALESCE(MAX(sequence), 0) + 1 FROM plan_revisions), ?
		WHERE COALESCE((SELECT revision FROM plan_revisions ORDER BY sequence DESC LIMIT 1), '') <> ?
		ON CONFLICT(revision) DO UPDATE SET sequence = excluded.sequence`, revision, formatTime(seenAt), revision)
	if err != nil {
		return 0, fmt.Errorf("failed to record plan revision: %w", err)
	}

	var seq int
	if err := s.db.QueryRow("SELECT sequence FROM plan_revisions WHERE revision = ?", revision).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read plan revision: %w", err)
	}
	return seq, nil
}
