package settings

import (
	"fmt"

	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/models"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	WorkdayStart *string `help:"Workday start (HH:MM)."`
	WorkdayEnd   *string `help:"Workday end (HH:MM)."`
	WorkingDays  *string `help:"Comma-separated working days (mon,tue or 1,2; 0=Sunday)."`
	Timezone     *string `help:"IANA timezone working hours are expressed in."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	if c.List {
		settings, err := ctx.Store.GetSettings()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		printSettings(settings)
		return nil
	}

	patch := models.SettingsPatch{
		WorkdayStart: c.WorkdayStart,
		WorkdayEnd:   c.WorkdayEnd,
		Timezone:     c.Timezone,
	}
	if c.WorkingDays != nil {
		days, err := models.ParseWorkingDays(*c.WorkingDays)
		if err != nil {
			return err
		}
		patch.WorkingDays = days
	}

	if patch.IsEmpty() {
		fmt.Println("No changes specified. Use --list to view settings or flags to update them.")
		return nil
	}

	updated, err := ctx.Store.UpdateSettings(patch)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	fmt.Println("Settings updated successfully.")
	printSettings(updated)
	return nil
}

func printSettings(s models.CalendarSettings) {
	fmt.Println("Current Settings:")
	fmt.Printf("  Workday:      %s - %s\n", s.WorkdayStart, s.WorkdayEnd)
	fmt.Printf("  Working Days: %s\n", cli.FormatWeekdays(s.WorkingDays))
	fmt.Printf("  Timezone:     %s\n", s.Timezone)
}
