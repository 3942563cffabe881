package sources

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/julianstephens/weekcal/internal/calsync"
	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/constants"
	"github.com/julianstephens/weekcal/internal/models"
)

type SourceAddCmd struct {
	Name     string `arg:"" help:"Display name of the calendar."`
	URL      string `arg:"" help:"Calendar feed URL (http, https or webcal)."`
	Color    string `help:"Display color."`
	Disabled bool   `help:"Add the source without enabling it."`
	Sync     bool   `help:"Fetch the source right away."`
}

func (c *SourceAddCmd) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if _, err := calsync.FetchURL(c.URL); err != nil {
		return err
	}
	return nil
}

func (c *SourceAddCmd) Run(ctx *cli.Context) error {
	src := models.CalendarSource{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(c.Name),
		URL:         strings.TrimSpace(c.URL),
		Color:       c.Color,
		Enabled:     !c.Disabled,
		FetchStatus: models.FetchStatusNever,
		CreatedAt:   ctx.Now(),
	}
	if err := ctx.Store.AddSource(src); err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}
	fmt.Printf("Added calendar source: %s (ID: %s)\n", src.Name, src.ID)

	if c.Sync && src.Enabled {
		printOutcome(ctx.Coordinator.Sync(ctx.Context(), src))
	}
	return nil
}

type SourceListCmd struct{}

func (c *SourceListCmd) Run(ctx *cli.Context) error {
	sources, err := ctx.Store.ListSources()
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	if len(sources) == 0 {
		fmt.Println("No calendar sources configured.")
		return nil
	}

	loc, err := ctx.Location()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tENABLED\tLAST SYNC\tSTATUS\tURL")
	for _, src := range sources {
		last := "-"
		if src.LastSyncAt != nil {
			last = src.LastSyncAt.In(loc).Format(constants.DateFormat + " " + constants.TimeFormat)
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\t%s\n", src.ID, src.Name, src.Enabled, last, cli.FormatStatus(src), src.URL)
	}
	return w.Flush()
}

type SourceEnableCmd struct {
	ID string `arg:"" help:"Source ID."`
}

func (c *SourceEnableCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.SetSourceEnabled(c.ID, true); err != nil {
		return fmt.Errorf("failed to enable source: %w", err)
	}
	fmt.Printf("Enabled source %s\n", c.ID)
	return nil
}

type SourceDisableCmd struct {
	ID string `arg:"" help:"Source ID."`
}

func (c *SourceDisableCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.SetSourceEnabled(c.ID, false); err != nil {
		return fmt.Errorf("failed to disable source: %w", err)
	}
	ctx.Metrics.ForgetSource(c.ID)
	fmt.Printf("Disabled source %s; its events no longer block time.\n", c.ID)
	return nil
}

type SourceDeleteCmd struct {
	ID  string `arg:"" help:"Source ID."`
	Yes bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *SourceDeleteCmd) Run(ctx *cli.Context) error {
	src, err := ctx.Store.GetSource(c.ID)
	if err != nil {
		return fmt.Errorf("failed to find source %s: %w", c.ID, err)
	}
	if err := cli.Confirm(fmt.Sprintf("Delete calendar source %q and its busy intervals?", src.Name), c.Yes); err != nil {
		return err
	}
	if err := ctx.Store.DeleteSource(c.ID); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	ctx.Metrics.ForgetSource(c.ID)
	fmt.Printf("Deleted calendar source: %s\n", src.Name)
	return nil
}

type SourceSyncCmd struct {
	ID string `arg:"" optional:"" help:"Source ID; all enabled sources when omitted."`
}

func (c *SourceSyncCmd) Run(ctx *cli.Context) error {
	if c.ID != "" {
		outcome, err := ctx.Coordinator.SyncSource(ctx.Context(), c.ID)
		if err != nil {
			return fmt.Errorf("failed to sync source: %w", err)
		}
		printOutcome(outcome)
		return nil
	}

	outcomes, err := ctx.Coordinator.SyncAll(ctx.Context())
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		fmt.Println("No calendar sources configured.")
	}
	for _, o := range outcomes {
		printOutcome(o)
	}
	return nil
}

func printOutcome(o models.SyncOutcome) {
	switch {
	case o.Skipped:
		fmt.Printf("⊘ %s: disabled\n", o.SourceName)
	case o.Status == models.FetchStatusError:
		fmt.Printf("❌ %s: %s\n", o.SourceName, o.Error)
	case o.NotModified:
		fmt.Printf("✓ %s: not modified\n", o.SourceName)
	default:
		fmt.Printf("✓ %s: %d busy interval(s)\n", o.SourceName, o.IntervalCount)
	}
}
