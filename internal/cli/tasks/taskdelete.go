package tasks

import (
	"fmt"

	"github.com/julianstephens/weekcal/internal/cli"
)

type TaskDeleteCmd struct {
	EntryPath string `arg:"" help:"Entry path of the task to delete."`
	Yes       bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *TaskDeleteCmd) Run(ctx *cli.Context) error {
	task, err := ctx.Store.GetTask(c.EntryPath)
	if err != nil {
		return fmt.Errorf("failed to find task %s: %w", c.EntryPath, err)
	}

	if err := cli.Confirm(fmt.Sprintf("Delete task %q?", task.Title), c.Yes); err != nil {
		return err
	}
	if err := ctx.Store.DeleteTask(c.EntryPath); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	fmt.Printf("Deleted task: %s (%s)\n", task.Title, c.EntryPath)
	return nil
}

type TaskDoneCmd struct {
	EntryPath string `arg:"" help:"Entry path of the completed task."`
}

func (c *TaskDoneCmd) Run(ctx *cli.Context) error {
	if err := ctx.Planner.MarkDone(ctx.Context(), c.EntryPath, ctx.Now()); err != nil {
		return err
	}
	fmt.Printf("Marked done: %s\n", c.EntryPath)
	return nil
}
