package system

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/weekcal/internal/backup"
	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/storage/sqlite"
	"github.com/julianstephens/weekcal/internal/utils"
)

// errWarning marks a check result that should not fail the run.
var errWarning = errors.New("warning")

type check struct {
	name    string
	needsDB bool
	run     func(ctx *cli.Context) error
}

var doctorChecks = []check{
	{name: "Migrations complete", needsDB: true, run: checkMigrationsComplete},
	{name: "Settings valid", needsDB: true, run: checkSettings},
	{name: "Task validation", needsDB: true, run: checkTasks},
	{name: "Calendar sources", needsDB: true, run: checkSources},
	{name: "Feed tokens", needsDB: true, run: checkTokens},
	{name: "Clock/timezone", needsDB: true, run: checkClockTimezone},
	{name: "Backups present", needsDB: true, run: checkBackupsPresent},
	{name: "Server config", run: checkServerConfig},
}

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	dbReachable := true

	if err := checkDBReachable(ctx); err != nil {
		fmt.Printf("❌ Database reachable: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		fmt.Printf("✓ Database reachable: OK\n")
	}

	for _, c := range doctorChecks {
		if c.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case errors.Is(err, errWarning):
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

func warnf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errWarning}, args...)...)
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if _, err := ctx.Store.GetSettings(); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkMigrationsComplete(ctx *cli.Context) error {
	m, ok := ctx.Store.(cli.Migrator)
	if !ok {
		return nil
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	if pending > 0 {
		return fmt.Errorf("%d migration(s) pending, run 'weekcal migrate'", pending)
	}
	return nil
}

func checkSettings(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	return settings.Validate()
}

func checkTasks(ctx *cli.Context) error {
	result, err := ctx.Planner.Validate(ctx.Context())
	if err != nil {
		return err
	}
	if result.HasConflicts() {
		return warnf("%d conflict(s) found, run 'weekcal validate' for details", len(result.Conflicts))
	}
	return nil
}

func checkSources(ctx *cli.Context) error {
	sources, err := ctx.Store.ListSources()
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	var failing []string
	for _, src := range sources {
		if src.Enabled && src.FetchStatus == models.FetchStatusError {
			failing = append(failing, src.Name)
		}
	}
	if len(failing) > 0 {
		return warnf("%d source(s) failed their last sync: %v", len(failing), failing)
	}
	return nil
}

func checkTokens(ctx *cli.Context) error {
	tokens, err := ctx.Store.ListTokens()
	if err != nil {
		return fmt.Errorf("failed to list feed tokens: %w", err)
	}
	now := ctx.Now()
	expired := 0
	for _, t := range tokens {
		if t.Expired(now) {
			expired++
		}
	}
	if expired > 0 {
		return warnf("%d expired token(s), run 'weekcal feed prune'", expired)
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := ctx.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if _, err := utils.LoadLocation(settings.Timezone); err != nil {
		return err
	}
	return nil
}

func checkServerConfig(ctx *cli.Context) error {
	return ctx.ServerConfig.Validate()
}

func checkBackupsPresent(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil
	}
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return warnf("no backups found, create one with 'weekcal backup create'")
	}
	return nil
}
