// Package calendar moves shifts in and out of iCalendar files.
package calendar

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/ics"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/storage"
	"github.com/julianstephens/shiftcal/internal/utils"
)

type ExportCmd struct {
	Output string `short:"o" help:"Output file. Defaults to stdout." type:"path"`
	From   string `help:"Only export shifts ending after this date (YYYY-MM-DD)."`
	To     string `help:"Only export shifts starting before this date (YYYY-MM-DD)."`
	Rules  bool   `help:"Write untouched series as a single RRULE event." default:"true" negatable:""`
	Name   string `help:"Calendar name." default:"Shifts"`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	defer ctx.Close()
	loc := ctx.Location()

	store, err := ctx.LoadProvider()
	if err != nil {
		return err
	}
	events, err := store.FetchEvents(context.Background(), ctx.Config.UserID, ctx.Config.AccountType)
	if err != nil {
		return err
	}

	if c.From != "" {
		from, err := utils.ParseDateInLocation(c.From, loc)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		events = slices.DeleteFunc(events, func(e models.Event) bool { return !e.End.After(from) })
	}
	if c.To != "" {
		to, err := utils.ParseDateInLocation(c.To, loc)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		events = slices.DeleteFunc(events, func(e models.Event) bool { return !e.Start.Before(to) })
	}

	var w io.Writer = os.Stdout
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := ics.Export(w, events, ics.Options{Name: c.Name, Rules: c.Rules}); err != nil {
		return err
	}
	if c.Output != "" {
		fmt.Printf("✓ Exported %d shifts to %s\n", len(events), c.Output)
	}
	return nil
}

type ImportCmd struct {
	File   string `arg:"" help:"iCalendar file to import." type:"existingfile"`
	DryRun bool   `help:"List what would be imported without saving."`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	defer ctx.Close()
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	events, err := ics.Parse(f)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No shifts found")
		return nil
	}

	store, err := ctx.LoadProvider()
	if err != nil {
		return err
	}
	existing, err := store.FetchEvents(context.Background(), ctx.Config.UserID, ctx.Config.AccountType)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, e := range existing {
		known[e.ID] = true
	}

	loc := ctx.Location()
	imported, skipped := 0, 0
	var errs []error
	for _, e := range events {
		if known[e.ID] {
			skipped++
			continue
		}
		fmt.Printf("  %s  %s\n", e.Start.In(loc).Format(constants.DateTimeFormat), e.Title)
		if c.DryRun {
			imported++
			continue
		}
		if err := save(ctx, store, e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.ID, err))
			continue
		}
		imported++
	}

	verb := "Imported"
	if c.DryRun {
		verb = "Would import"
	}
	fmt.Printf("✓ %s %d shifts (%d already present)\n", verb, imported, skipped)
	return errors.Join(errs...)
}

// save stores one parsed event. A defining occurrence with a rule is
// expanded into its series by the provider.
func save(ctx *cli.Context, store storage.Provider, e models.Event) error {
	c, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if e.Recurrence != nil {
		_, _, err := store.SaveRecurringEvents(c, e, ctx.Config.UserID)
		return err
	}
	_, err := store.SaveEvent(c, e, ctx.Config.UserID)
	return err
}
