package system

import (
	"fmt"
	"strings"

	"github.com/julianstephens/weekcal/internal/cli"
)

type ValidateCmd struct {
	Strict bool `help:"Exit with an error when any conflict is found."`
}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	result, err := ctx.Planner.Validate(ctx.Context())
	if err != nil {
		return err
	}

	fmt.Println(strings.TrimSuffix(result.FormatReport(), "\n"))
	if c.Strict && result.HasConflicts() {
		return fmt.Errorf("%d conflict(s) found", len(result.Conflicts))
	}
	return nil
}
