package system

import (
	"fmt"

	"github.com/julianstephens/weekcal/internal/cli"
)

type MigrateCmd struct {
	DryRun bool `help:"Only report how many migrations are pending."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Store.(cli.Migrator)
	if !ok {
		return fmt.Errorf("storage backend does not support migrations")
	}

	if c.DryRun {
		pending, err := m.PendingMigrations()
		if err != nil {
			return fmt.Errorf("failed to check migrations: %w", err)
		}
		fmt.Printf("%d migration(s) pending.\n", pending)
		return nil
	}

	count, err := m.Migrate(func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Println("No migrations to apply. Database is up to date.")
	} else {
		fmt.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
