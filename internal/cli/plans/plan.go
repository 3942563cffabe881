package plans

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/constants"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/planner"
)

type PlanCmd struct {
	Start       string `short:"s" help:"First day of the plan (YYYY-MM-DD). Defaults to today."`
	Days        int    `short:"n" help:"Number of days to plan." default:"7"`
	Granularity int    `short:"g" help:"Start time granularity in minutes." default:"15"`
	Buffer      int    `short:"b" help:"Minutes kept free around busy intervals." default:"0"`
	ICS         bool   `help:"Print the plan as a calendar document." xor:"format"`
	JSON        bool   `help:"Print the plan as JSON." xor:"format"`
}

func (c *PlanCmd) Run(ctx *cli.Context) error {
	if c.ICS {
		resp, err := ctx.Publisher.Document(ctx.Context(), c.Start, c.Days)
		if err != nil {
			return err
		}
		fmt.Print(resp.Body)
		return nil
	}

	plan, err := ctx.Planner.Plan(ctx.Context(), planner.PlanQuery{
		StartDate:      c.Start,
		Days:           c.Days,
		GranularityMin: c.Granularity,
		BufferMin:      c.Buffer,
	}, ctx.Now())
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	loc, err := ctx.Location()
	if err != nil {
		return err
	}
	printPlan(plan, loc)
	return nil
}

func printPlan(plan models.WeekPlan, loc *time.Location) {
	fmt.Printf("Plan %s to %s (revision %s)\n", plan.StartDate, plan.EndDate, plan.Revision)

	if len(plan.Items) == 0 {
		fmt.Println("\nNothing scheduled.")
	}
	day := ""
	for _, item := range plan.Items {
		start := item.Start.In(loc)
		if d := start.Format(constants.DateFormat); d != day {
			day = d
			fmt.Printf("\n%s\n", start.Format("Monday, Jan 2"))
		}
		marker := " "
		if item.Fixed {
			marker = "📌"
		}
		fmt.Printf("  %s %s-%s  %s (%dm)\n", marker,
			start.Format(constants.TimeFormat), item.End.In(loc).Format(constants.TimeFormat),
			item.Title, item.DurationMin)
		if item.Reason != "" {
			fmt.Printf("      %s\n", item.Reason)
		}
	}

	if len(plan.Unscheduled) > 0 {
		fmt.Println("\nUnscheduled:")
		for _, u := range plan.Unscheduled {
			fmt.Printf("  - %s [%s] %s\n", u.SourceName, u.ReasonCode, u.Reason)
		}
	}
	for _, w := range plan.Warnings {
		fmt.Printf("\n⚠ %s\n", w)
	}
	fmt.Printf("\nTotal scheduled: %dh%02dm\n", plan.TotalMinutes/60, plan.TotalMinutes%60)
}

type BusyCmd struct {
	From string `help:"First day (YYYY-MM-DD)." required:""`
	To   string `help:"Last day, inclusive (YYYY-MM-DD)." required:""`
}

func (c *BusyCmd) Run(ctx *cli.Context) error {
	intervals, err := ctx.Planner.BusyIntervals(ctx.Context(), planner.BusyQuery{From: c.From, To: c.To})
	if err != nil {
		return err
	}
	if len(intervals) == 0 {
		fmt.Println("No busy intervals in range.")
		return nil
	}

	loc, err := ctx.Location()
	if err != nil {
		return err
	}
	for _, iv := range intervals {
		if iv.IsAllDay {
			fmt.Printf("%s  all day      %s\n", iv.Start.UTC().Format(constants.DateFormat), iv.Title)
			continue
		}
		start := iv.Start.In(loc)
		fmt.Printf("%s  %s-%s  %s\n", start.Format(constants.DateFormat),
			start.Format(constants.TimeFormat), iv.End.In(loc).Format(constants.TimeFormat), iv.Title)
	}
	return nil
}
