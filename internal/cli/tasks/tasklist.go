package tasks

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/constants"
)

type TaskListCmd struct {
	All bool `short:"a" help:"Include completed tasks."`
}

func (c *TaskListCmd) Run(ctx *cli.Context) error {
	tasks, err := ctx.Store.ListTasks(c.All)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	loc, err := ctx.Location()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTRY PATH\tTITLE\tDUR\tPRI\tDUE\tFIXED\tSTATUS")
	for _, t := range tasks {
		fixed := "-"
		if t.IsFixed() {
			fixed = t.FixedAt.In(loc).Format(constants.DateFormat + " " + constants.TimeFormat)
		}
		due := t.DueDate
		if due == "" {
			due = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%dm\t%d\t%s\t%s\t%s\n", t.EntryPath, t.Title, t.DurationMin, t.Priority, due, fixed, t.Status)
	}
	return w.Flush()
}
