package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/validation"
)

type ValidateCmd struct {
	Fail bool `help:"Exit with an error when conflicts are found."`
}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	defer ctx.Close()
	store, err := ctx.LoadProvider()
	if err != nil {
		return err
	}
	events, err := store.FetchEvents(context.Background(), ctx.Config.UserID, ctx.Config.AccountType)
	if err != nil {
		return err
	}

	result := validation.New(ctx.Config.MaxDailyHours).ValidateEvents(events)
	fmt.Printf("Checked %d shifts\n", len(events))
	fmt.Println(result.FormatReport())
	if c.Fail && result.HasConflicts() {
		return &validation.ConflictError{Result: result}
	}
	return nil
}
