package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/storage"
)

const sourceColumns = `id, name, url, color, enabled, last_sync_at, fetch_status, fetch_error, validator, created_at`

func scanSource(row scanner) (models.CalendarSource, error) {
	var src models.CalendarSource
	var status string
	var lastSync sql.NullTime

	if err := row.Scan(&src.ID, &src.Name, &src.URL, &src.Color, &src.Enabled, &lastSync, &status, &src.FetchError, &src.Validator, &src.CreatedAt); err != nil {
		return models.CalendarSource{}, err
	}
	src.FetchStatus = models.FetchStatus(status)
	src.CreatedAt = src.CreatedAt.UTC()
	src.LastSyncAt = timePtr(lastSync)
	return src, nil
}

func (s *Store) AddSource(src models.CalendarSource) error {
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now()
	}
	if src.FetchStatus == "" {
		src.FetchStatus = models.FetchStatusNever
	}

	_, err := s.db.Exec(`
		INSERT INTO calendar_sources (`+sourceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		src.ID, src.Name, src.URL, src.Color, src.Enabled, nullTime(src.LastSyncAt),
		string(src.FetchStatus), src.FetchError, src.Validator, src.CreatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("source %s: %w", src.ID, storage.ErrAlreadyExists)
	}
	return err
}

func (s *Store) GetSource(id string) (models.CalendarSource, error) {
	src, err := scanSource(s.db.QueryRow(`SELECT `+sourceColumns+` FROM calendar_sources WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.CalendarSource{}, fmt.Errorf("source %s: %w", id, storage.ErrNotFound)
	}
	return src, err
}

func (s *Store) ListSources() ([]models.CalendarSource, error) {
	return s.querySources(`SELECT ` + sourceColumns + ` FROM calendar_sources ORDER BY created_at, id`)
}

func (s *Store) ListEnabledSources() ([]models.CalendarSource, error) {
	return s.querySources(`SELECT ` + sourceColumns + ` FROM calendar_sources WHERE enabled ORDER BY created_at, id`)
}

func (s *Store) querySources(query string, args ...any) ([]models.CalendarSource, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []models.CalendarSource
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (s *Store) SetSourceEnabled(id string, enabled bool) error {
	res, err := s.db.Exec("UPDATE calendar_sources SET enabled = $1 WHERE id = $2", enabled, id)
	if err != nil {
		return err
	}
	return expectOne(res, "source", id)
}

// DeleteSource relies on ON DELETE CASCADE to drop the source's intervals.
func (s *Store) DeleteSource(id string) error {
	res, err := s.db.Exec("DELETE FROM calendar_sources WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectOne(res, "source", id)
}

func (s *Store) RecordSyncResult(result models.SyncResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE calendar_sources
		SET last_sync_at = $1, fetch_status = $2, fetch_error = $3,
		    validator = CASE WHEN $4 THEN $5 ELSE validator END
		WHERE id = $6`,
		result.SyncedAt.UTC(), string(result.Status), result.Error,
		result.Status == models.FetchStatusOK, result.Validator, result.SourceID,
	)
	if err != nil {
		return err
	}
	if err := expectOne(res, "source", result.SourceID); err != nil {
		return err
	}

	if result.Replace {
		if _, err := tx.Exec("DELETE FROM busy_intervals WHERE source_id = $1", result.SourceID); err != nil {
			return fmt.Errorf("failed to clear busy intervals: %w", err)
		}
		stmt, err := tx.Prepare(`
			INSERT INTO busy_intervals (source_id, uid, start_at, end_at, title, location, is_all_day)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, iv := range result.Intervals {
			if _, err := stmt.Exec(result.SourceID, iv.UID, iv.Start.UTC(), iv.End.UTC(), iv.Title, iv.Location, iv.IsAllDay); err != nil {
				return fmt.Errorf("failed to insert busy interval: %w", err)
			}
		}
	}

	return tx.Commit()
}

const intervalColumns = `b.source_id, b.uid, b.start_at, b.end_at, b.title, b.location, b.is_all_day`

func (s *Store) ListBusyIntervals(sourceID string) ([]models.BusyInterval, error) {
	return s.queryIntervals(`
		SELECT `+intervalColumns+` FROM busy_intervals b
		WHERE b.source_id = $1 ORDER BY b.start_at, b.id`, sourceID)
}

func (s *Store) ListActiveBusyIntervals(from, to time.Time) ([]models.BusyInterval, error) {
	return s.queryIntervals(`
		SELECT `+intervalColumns+` FROM busy_intervals b
		JOIN calendar_sources c ON c.id = b.source_id
		WHERE c.enabled AND b.start_at < $1 AND b.end_at > $2
		ORDER BY b.start_at, b.source_id, b.id`, to.UTC(), from.UTC())
}

func (s *Store) queryIntervals(query string, args ...any) ([]models.BusyInterval, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals []models.BusyInterval
	for rows.Next() {
		var iv models.BusyInterval
		if err := rows.Scan(&iv.SourceID, &iv.UID, &iv.Start, &iv.End, &iv.Title, &iv.Location, &iv.IsAllDay); err != nil {
			return nil, err
		}
		iv.Start, iv.End = iv.Start.UTC(), iv.End.UTC()
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}
