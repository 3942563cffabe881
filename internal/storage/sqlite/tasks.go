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

const taskColumns = `entry_path, title, duration_min, priority, due_date, fixed_at, status, created_at, done_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (models.SchedulableTask, error) {
	var t models.SchedulableTask
	var status, createdAt string
	var fixedAt, doneAt sql.NullString

	if err := row.Scan(&t.EntryPath, &t.Title, &t.DurationMin, &t.Priority, &t.DueDate, &fixedAt, &status, &createdAt, &doneAt); err != nil {
		return models.SchedulableTask{}, err
	}
	t.Status = models.TaskStatus(status)

	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.SchedulableTask{}, fmt.Errorf("task %s: invalid created_at: %w", t.EntryPath, err)
	}
	if t.FixedAt, err = parseNullTime(fixedAt); err != nil {
		return models.SchedulableTask{}, fmt.Errorf("task %s: invalid fixed_at: %w", t.EntryPath, err)
	}
	if t.DoneAt, err = parseNullTime(doneAt); err != nil {
		return models.SchedulableTask{}, fmt.Errorf("task %s: invalid done_at: %w", t.EntryPath, err)
	}
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.EntryPath, task.Title, task.DurationMin, task.Priority, task.DueDate,
		formatNullTime(task.FixedAt), string(task.Status), formatTime(task.CreatedAt), formatNullTime(task.DoneAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("task %s: %w", task.EntryPath, storage.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

func (s *Store) GetTask(entryPath string) (models.SchedulableTask, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE entry_path = ?`, entryPath)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SchedulableTask{}, fmt.Errorf("task %s: %w", entryPath, storage.ErrNotFound)
	}
	return t, err
}

func (s *Store) UpdateTask(task models.SchedulableTask) error {
	res, err := s.db.Exec(`
		UPDATE tasks SET title = ?, duration_min = ?, priority = ?, due_date = ?, fixed_at = ?, status = ?, done_at = ?
		WHERE entry_path = ?`,
		task.Title, task.DurationMin, task.Priority, task.DueDate, formatNullTime(task.FixedAt),
		string(task.Status), formatNullTime(task.DoneAt), task.EntryPath,
	)
	if err != nil {
		return err
	}
	return expectOne(res, "task", task.EntryPath)
}

func (s *Store) DeleteTask(entryPath string) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE entry_path = ?", entryPath)
	if err != nil {
		return err
	}
	return expectOne(res, "task", entryPath)
}

func (s *Store) MarkDone(entryPath string, at time.Time) error {
	res, err := s.db.Exec("UPDATE tasks SET status = ?, done_at = ? WHERE entry_path = ?",
		string(models.TaskStatusDone), formatTime(at), entryPath)
	if err != nil {
		return err
	}
	return expectOne(res, "task", entryPath)
}

func (s *Store) ListPendingTasks() ([]models.SchedulableTask, error) {
	return s.queryTasks(`SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY entry_path`, string(models.TaskStatusPending))
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
