package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/storage"
)

const taskColumns = `entry_path, title, duration_min, priority, due_date, fixed_at, status, created_at, done_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (models.SchedulableTask, error) {
	var t models.SchedulableTask
	var status string
	var fixedAt, doneAt sql.NullTime

	if err := row.Scan(&t.EntryPath, &t.Title, &t.DurationMin, &t.Priority, &t.DueDate, &fixedAt, &status, &t.CreatedAt, &doneAt); err != nil {
		return models.SchedulableTask{}, err
	}
	t.Status = models.TaskStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.FixedAt = timePtr(fixedAt)
	t.DoneAt = timePtr(doneAt)
	return t, nil
}

func (s *Store) AddTask(task models.SchedulableTask) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}

	_, err := s.db.Exec(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		task.EntryPath, task.Title, task.DurationMin, task.Priority, task.DueDate,
		nullTime(task.FixedAt), string(task.Status), task.CreatedAt.UTC(), nullTime(task.DoneAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("task %s: %w", task.EntryPath, storage.ErrAlreadyExists)
	}
	return err
}

func (s *Store) GetTask(entryPath string) (models.SchedulableTask, error) {
	t, err := scanTask(s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE entry_path = $1`, entryPath))
	if errors.Is(err, sql.ErrNoRows) {
		return models.SchedulableTask{}, fmt.Errorf("task %s: %w", entryPath, storage.ErrNotFound)
	}
	return t, err
}

func (s *Store) UpdateTask(task models.SchedulableTask) error {
	res, err := s.db.Exec(`
		UPDATE tasks SET title = $1, duration_min = $2, priority = $3, due_date = $4, fixed_at = $5, status = $6, done_at = $7
		WHERE entry_path = $8`,
		task.Title, task.DurationMin, task.Priority, task.DueDate, nullTime(task.FixedAt),
		string(task.Status), nullTime(task.DoneAt), task.EntryPath,
	)
	if err != nil {
		return err
	}
	return expectOne(res, "task", task.EntryPath)
}

func (s *Store) DeleteTask(entryPath string) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE entry_path = $1", entryPath)
	if err != nil {
		return err
	}
	return expectOne(res, "task", entryPath)
}

func (s *Store) MarkDone(entryPath string, at time.Time) error {
	res, err := s.db.Exec("UPDATE tasks SET status = $1, done_at = $2 WHERE entry_path = $3",
		string(models.TaskStatusDone), at.UTC(), entryPath)
	if err != nil {
		return err
	}
	return expectOne(res, "task", entryPath)
}

func (s *Store) ListPendingTasks() ([]models.SchedulableTask, error) {
	return s.queryTasks(`SELECT `+taskColumns+` FROM tasks WHERE status = $1 ORDER BY entry_path`, string(models.TaskStatusPending))
}

func (s *Store) ListTasks(includeDone bool) ([]models.SchedulableTask, error) {
	if includeDone {
		return s.queryTasks(`SELECT ` + taskColumns + ` FROM tasks ORDER BY entry_path`)
	}
	return s.ListPendingTasks()
}

func (s *Store) queryTasks(query string, args ...any) ([]models.SchedulableTask, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.SchedulableTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
