package tasks

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/validation"
)

type TaskAddCmd struct {
	Title    string `arg:"" help:"Task title."`
	Duration int    `short:"d" help:"Duration in minutes (5-720)." default:"30"`
	Priority int    `short:"p" help:"Priority; higher is scheduled first." default:"0"`
	Due      string `help:"Due date (YYYY-MM-DD)."`
	Fixed    string `short:"f" help:"Pin to a start time (YYYY-MM-DD HH:MM in the settings timezone)."`
	Path     string `help:"Entry path identifying the task. Defaults to tasks/<uuid>."`
}

func (c *TaskAddCmd) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if err := validation.Duration(c.Duration); err != nil {
		return err
	}
	if c.Due != "" {
		if _, err := validation.Date("due", c.Due); err != nil {
			return err
		}
	}
	return nil
}

func (c *TaskAddCmd) Run(ctx *cli.Context) error {
	task := models.SchedulableTask{
		EntryPath:   c.Path,
		Title:       strings.TrimSpace(c.Title),
		DurationMin: c.Duration,
		Priority:    c.Priority,
		DueDate:     c.Due,
		Status:      models.TaskStatusPending,
		CreatedAt:   ctx.Now(),
	}
	if task.EntryPath == "" {
		task.EntryPath = "tasks/" + uuid.New().String()
	}

	if c.Fixed != "" {
		loc, err := ctx.Location()
		if err != nil {
			return err
		}
		at, err := cli.ParseLocalDateTime(c.Fixed, loc)
		if err != nil {
			return err
		}
		task.FixedAt = &at
	}
	if task.DueDate == "" && task.FixedAt == nil {
		fmt.Println("Note: task has no due date or fixed time and will not appear in plans.")
	}

	if err := ctx.Store.AddTask(task); err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}

	fmt.Printf("Added task: %s (%s)\n", task.Title, task.EntryPath)
	if task.FixedAt != nil {
		fmt.Printf("  Fixed at: %s\n", task.FixedAt.Format("2006-01-02 15:04 MST"))
	}
	return nil
}
