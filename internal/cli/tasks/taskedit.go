package tasks

import (
	"fmt"
	"strings"

	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/validation"
)

type TaskEditCmd struct {
	EntryPath  string  `arg:"" help:"Entry path of the task to edit."`
	Title      *string `help:"New title."`
	Duration   *int    `short:"d" help:"New duration in minutes."`
	Priority   *int    `short:"p" help:"New priority."`
	Due        *string `help:"New due date (YYYY-MM-DD); empty clears it."`
	Fixed      *string `short:"f" help:"New fixed start (YYYY-MM-DD HH:MM)."`
	ClearFixed bool    `help:"Unpin the task."`
}

func (c *TaskEditCmd) Run(ctx *cli.Context) error {
	task, err := ctx.Store.GetTask(c.EntryPath)
	if err != nil {
		return fmt.Errorf("failed to find task %s: %w", c.EntryPath, err)
	}

	updated := false
	if c.Title != nil {
		if strings.TrimSpace(*c.Title) == "" {
			return fmt.Errorf("title cannot be empty")
		}
		task.Title = strings.TrimSpace(*c.Title)
		updated = true
	}
	if c.Duration != nil {
		if err := validation.Duration(*c.Duration); err != nil {
			return err
		}
		task.DurationMin = *c.Duration
		updated = true
	}
	if c.Priority != nil {
		task.Priority = *c.Priority
		updated = true
	}
	if c.Due != nil {
		if *c.Due != "" {
			if _, err := validation.Date("due", *c.Due); err != nil {
				return err
			}
		}
		task.DueDate = *c.Due
		updated = true
	}
	if c.Fixed != nil && c.ClearFixed {
		return fmt.Errorf("--fixed and --clear-fixed cannot be combined")
	}
	if c.Fixed != nil {
		loc, err := ctx.Location()
		if err != nil {
			return err
		}
		at, err := cli.ParseLocalDateTime(*c.Fixed, loc)
		if err != nil {
			return err
		}
		task.FixedAt = &at
		updated = true
	}
	if c.ClearFixed {
		task.FixedAt = nil
		updated = true
	}

	if !updated {
		fmt.Println("No changes specified.")
		return nil
	}
	if err := ctx.Store.UpdateTask(task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	fmt.Printf("Updated task: %s (%s)\n", task.Title, task.EntryPath)
	return nil
}
