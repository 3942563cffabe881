package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/storage"
)

const sourceColumns = `id, name, url, color, enabled, last_sync_at, fetch_status, fetch_error, validator, created_at`

func scanSource(row scanner) (models.CalendarSource, error) {
	var src models.CalendarSource
	var status, createdAt string
	var lastSync sql.NullString

	if err := row.Scan(&src.ID, &src.Name, &src.URL, &src.Color, &src.Enabled, &lastSync, &status, &src.FetchError, &src.Validator, &createdAt); err != nil {
		return models.CalendarSource{}, err
	}
	src.FetchStatus = models.FetchStatus(status)

	var err error
	if src.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.CalendarSource{}, fmt.Errorf("source %s: invalid created_at: %w", src.ID, err)
	}
	if src.LastSyncAt, err = parseNullTime(lastSync); err != nil {
		return models.CalendarSource{}, fmt.Errorf("source %s: invalid last_sync_at: %w", src.ID, err)
	}
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Name, src.URL, src.Color, src.Enabled, formatNullTime(src.LastSyncAt),
		string(src.FetchStatus), src.FetchError, src.Validator, formatTime(src.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("source %s: %w", src.ID, storage.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

func (s *Store) GetSource(id string) (models.CalendarSource, error) {
	src, err := scanSource(s.db.QueryRow(`SELECT `+sourceColumns+` FROM calendar_sources WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.CalendarSource{}, fmt.Errorf("source %s: %w", id, storage.ErrNotFound)
	}
	return src, err
}

func (s *Store) ListSources() ([]models.CalendarSource, error) {
	return s.querySources(`SELECT ` + sourceColumns + ` FROM calendar_sources ORDER BY created_at, id`)
}

func (s *Store) ListEnabledSources() ([]models.CalendarSource, error) {
	return s.querySources(`SELECT ` + sourceColumns + ` FROM calendar_sources WHERE enabled = 1 ORDER BY created_at, id`)
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
	res, err := s.db.Exec("UPDATE calendar_sources SET enabled = ? WHERE id = ?", enabled, id)
	if err != nil {
		return err
	}
	return expectOne(res, "source", id)
}

func (s *Store) DeleteSource(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM busy_intervals WHERE source_id = ?", id); err != nil {
		return err
	}
	res, err := tx.Exec("DELETE FROM calendar_sources WHERE id = ?", id)
	if err != nil {
		return err
	}
	if err := expectOne(res, "source", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) RecordSyncResult(result models.SyncResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// An empty validator on success means the server sent none; keep the old one only on error.
	res, err := tx.Exec(`
		UPDATE calendar_sources
		SET last_sync_at = ?, fetch_status = ?, fetch_error = ?,
		    validator = CASE WHEN ? THEN ? ELSE validator END
		WHERE id = ?`,
		formatTime(result.SyncedAt), string(result.Status), result.Error,
		result.Status == models.FetchStatusOK, result.Validator, result.SourceID,
	)
	if err != nil {
		return err
	}
	if err := expectOne(res, "source", result.SourceID); err != nil {
		return err
	}

	if result.Replace {
		if _, err := tx.Exec("DELETE FROM busy_intervals WHERE source_id = ?", result.SourceID); err != nil {
			return fmt.Errorf("failed to clear busy intervals: %w", err)
		}
		stmt, err := tx.Prepare(`
			INSERT INTO busy_intervals (source_id, uid, start_at, end_at, title, location, is_all_day)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, iv := range result.Intervals {
			if _, err := stmt.Exec(result.SourceID, iv.UID, formatTime(iv.Start), formatTime(iv.End), iv.Title, iv.Location, iv.IsAllDay); err != nil {
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
		WHERE b.source_id = ? ORDER BY b.start_at, b.id`, sourceID)
}

func (s *Store) ListActiveBusyIntervals(from, to time.Time) ([]models.BusyInterval, error) {
	return s.queryIntervals(`
		SELECT `+intervalColumns+` FROM busy_intervals b
		JOIN calendar_sources c ON c.id = b.source_id
		WHERE c.enabled = 1 AND b.start_at < ? AND b.end_at > ?
		ORDER BY b.start_at, b.source_id, b.id`, formatTime(to), formatTime(from))
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
		var start, end string
		if err := rows.Scan(&iv.SourceID, &iv.UID, &start, &end, &iv.Title, &iv.Location, &iv.IsAllDay); err != nil {
			return nil, err
		}
		if iv.Start, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("invalid busy interval start: %w", err)
		}
		if iv.End, err = parseTime(end); err != nil {
			return nil, fmt.Errorf("invalid busy interval end: %w", err)
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}
