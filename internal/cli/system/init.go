package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/weekcal/internal/backup"
	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/config"
	"github.com/julianstephens/weekcal/internal/storage/sqlite"
)

type InitCmd struct {
	Force bool `help:"Force reset by deleting the existing SQLite database before initialization."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if _, ok := ctx.Store.(*sqlite.Store); !ok {
			return fmt.Errorf("--force is only supported for SQLite storage")
		}
		dbPath := ctx.Store.GetConfigPath()
		if _, err := os.Stat(dbPath); err == nil {
			path, err := backup.NewManager(dbPath).Create()
			if err != nil {
				return fmt.Errorf("failed to back up existing database: %w", err)
			}
			fmt.Printf("Backed up existing database to: %s\n", path)
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized weekcal storage at: %s\n", ctx.Store.GetConfigPath())

	if ctx.ServerConfigPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(ctx.ServerConfigPath), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	created, err := config.WriteDefault(ctx.ServerConfigPath)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Wrote server config template to: %s\n", ctx.ServerConfigPath)
	}
	return nil
}
