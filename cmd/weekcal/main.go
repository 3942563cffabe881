package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/cli/backups"
	"github.com/julianstephens/weekcal/internal/cli/feeds"
	"github.com/julianstephens/weekcal/internal/cli/plans"
	"github.com/julianstephens/weekcal/internal/cli/settings"
	"github.com/julianstephens/weekcal/internal/cli/sources"
	"github.com/julianstephens/weekcal/internal/cli/system"
	"github.com/julianstephens/weekcal/internal/cli/tasks"
	"github.com/julianstephens/weekcal/internal/config"
	"github.com/julianstephens/weekcal/internal/constants"
	apperrors "github.com/julianstephens/weekcal/internal/errors"
	"github.com/julianstephens/weekcal/internal/keyring"
	"github.com/julianstephens/weekcal/internal/logger"
	"github.com/julianstephens/weekcal/internal/metrics"
	"github.com/julianstephens/weekcal/internal/storage"
	"github.com/julianstephens/weekcal/internal/storage/postgres"
	"github.com/julianstephens/weekcal/internal/storage/sqlite"
)

var CLI struct {
	Version      kong.VersionFlag
	Config       string `help:"Database file path or PostgreSQL connection string. For PostgreSQL, credentials must NOT be embedded in the connection string. Use WEEKCAL_DB_CONNECTION, .pgpass, or the OS keyring instead." type:"string" default:"${default_config}" env:"WEEKCAL_CONFIG"`
	ServerConfig string `help:"Server configuration file used by 'serve'." type:"path" default:"${default_server_config}"`
	Debug        bool   `help:"Enable debug logging to stderr." env:"WEEKCAL_DEBUG"`

	Init     system.InitCmd     `cmd:"" help:"Initialize weekcal storage and write a server config template."`
	Migrate  system.MigrateCmd  `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Validate system.ValidateCmd `cmd:"" help:"Check pending tasks for conflicts."`
	Tui      system.TuiCmd      `cmd:"" help:"Launch the interactive week view." default:"1"`
	Serve    system.ServeCmd    `cmd:"" help:"Serve calendar feeds and sync sources in the background."`
	Debugs   system.DebugCmd    `cmd:"" name:"debug" help:"Debug commands for troubleshooting."`

	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage SQLite database backups."`

	Plan plans.PlanCmd `cmd:"" help:"Plan pending tasks into the working week."`
	Busy plans.BusyCmd `cmd:"" help:"List busy intervals from enabled calendar sources."`

	Task struct {
		Add    tasks.TaskAddCmd    `cmd:"" help:"Add a new task."`
		Edit   tasks.TaskEditCmd   `cmd:"" help:"Edit an existing task."`
		Done   tasks.TaskDoneCmd   `cmd:"" help:"Mark a task done."`
		Delete tasks.TaskDeleteCmd `cmd:"" help:"Delete a task."`
		List   tasks.TaskListCmd   `cmd:"" help:"List tasks."`
	} `cmd:"" help:"Manage tasks."`

	Source struct {
		Add     sources.SourceAddCmd     `cmd:"" help:"Subscribe to a calendar feed."`
		List    sources.SourceListCmd    `cmd:"" help:"List calendar sources and their sync state."`
		Enable  sources.SourceEnableCmd  `cmd:"" help:"Enable a calendar source."`
		Disable sources.SourceDisableCmd `cmd:"" help:"Disable a calendar source without deleting it."`
		Delete  sources.SourceDeleteCmd  `cmd:"" help:"Delete a calendar source and its busy intervals."`
		Sync    sources.SourceSyncCmd    `cmd:"" help:"Fetch one or all enabled calendar sources now."`
	} `cmd:"" help:"Manage subscribed calendars."`

	Feed struct {
		Issue  feeds.FeedIssueCmd  `cmd:"" help:"Issue a feed token and print its subscription URL."`
		List   feeds.FeedListCmd   `cmd:"" help:"List issued feed tokens."`
		Revoke feeds.FeedRevokeCmd `cmd:"" help:"Revoke a feed token."`
		Prune  feeds.FeedPruneCmd  `cmd:"" help:"Delete expired feed tokens."`
	} `cmd:"" help:"Manage the published plan feed."`

	Settings settings.SettingsCmd `cmd:"" help:"Show or change working hours."`

	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check OS keyring availability."`
	} `cmd:"" help:"Manage database credentials in the OS keyring."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Plan pending tasks around your calendars and publish the week as a feed"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":               constants.Version,
			"default_config":        constants.DefaultConfigPath,
			"default_server_config": constants.DefaultServerPath,
		},
	)

	command := ctx.Command()
	serving := strings.HasPrefix(command, "serve")

	store, err := openStore(CLI.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, apperrors.Format(err))
		os.Exit(1)
	}

	configDir := filepath.Dir(expandHome(constants.DefaultServerPath))
	if sqliteStore, ok := store.(*sqlite.Store); ok {
		configDir = filepath.Dir(sqliteStore.GetConfigPath())
	}
	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: configDir, Stderr: serving}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}
	logger.Debug("Starting command", "command", command, "storage", store.GetConfigPath())

	cfg, err := config.Load(CLI.ServerConfig)
	if err != nil {
		apperrors.Fatal(err)
	}

	var m *metrics.Collector
	if serving {
		m = metrics.NewCollector(nil)
	}

	if !strings.HasPrefix(command, "init") && !strings.HasPrefix(command, "keyring") && !strings.HasPrefix(command, "doctor") {
		if err := store.Load(); err != nil {
			apperrors.Fatal(err)
		}
	}
	defer store.Close()

	appCtx := cli.NewContext(store, cfg, CLI.ServerConfig, m)
	if err := ctx.Run(appCtx); err != nil {
		store.Close()
		apperrors.Fatal(err)
	}
}

// openStore picks the backend for the --config value. When the flag is left at its
// default, a connection string from the environment or keyring takes precedence.
func openStore(configValue string) (storage.Provider, error) {
	if configValue == constants.DefaultConfigPath {
		if connStr, source := keyring.ResolveConnectionString(); connStr != "" {
			logger.Debug("Using PostgreSQL connection string", "source", source)
			return postgres.New(connStr), nil
		}
	}

	if postgres.IsConnString(configValue) {
		if _, err := postgres.ValidateConnString(configValue); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("PostgreSQL connection strings passed to --config must not embed a password; use %s, the OS keyring ('%s keyring set'), or .pgpass", constants.EnvDBConnection, constants.AppName)
			}
			return nil, err
		}
		return postgres.New(configValue), nil
	}

	return sqlite.NewStore(expandHome(configValue)), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
