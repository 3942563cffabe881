package system

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/storage"
)

type DebugCmd struct {
	DBPath       *DebugDBPathCmd       `cmd:"" help:"Show database path."`
	DumpTask     *DebugDumpTaskCmd     `cmd:"" help:"Dump task data as JSON."`
	DumpSource   *DebugDumpSourceCmd   `cmd:"" help:"Dump a calendar source and its busy intervals as JSON."`
	DumpSettings *DebugDumpSettingsCmd `cmd:"" help:"Dump settings data as JSON."`
}

func printJSON(v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	return printJSON(map[string]string{"path": ctx.Store.GetConfigPath()})
}

type DebugDumpTaskCmd struct {
	EntryPath string `arg:"" help:"Entry path of the task to dump."`
}

func (cmd *DebugDumpTaskCmd) Run(ctx *cli.Context) error {
	task, err := ctx.Store.GetTask(cmd.EntryPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("task not found: %s", cmd.EntryPath)
		}
		return fmt.Errorf("failed to get task: %w", err)
	}
	return printJSON(task)
}

type DebugDumpSourceCmd struct {
	ID string `arg:"" help:"ID of the calendar source to dump."`
}

func (cmd *DebugDumpSourceCmd) Run(ctx *cli.Context) error {
	src, err := ctx.Store.GetSource(cmd.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("source not found: %s", cmd.ID)
		}
		return fmt.Errorf("failed to get source: %w", err)
	}
	intervals, err := ctx.Store.ListBusyIntervals(cmd.ID)
	if err != nil {
		return fmt.Errorf("failed to list busy intervals: %w", err)
	}
	return printJSON(map[string]any{
		"source":    src,
		"intervals": intervals,
	})
}

type DebugDumpSettingsCmd struct{}

func (cmd *DebugDumpSettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	return printJSON(settings)
}
