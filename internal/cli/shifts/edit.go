package shifts

import (
	"fmt"
	"strings"

	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/scheduler"
	"github.com/julianstephens/shiftcal/internal/utils"
)

// ScopeFlag is shared by every command that can touch a series.
type ScopeFlag struct {
	Scope string `help:"Which part of a series to change (single|future|all). Required for series members."`
}

func (f ScopeFlag) scope() (constants.Scope, error) {
	switch s := constants.Scope(f.Scope); s {
	case "", constants.ScopeSingle, constants.ScopeFuture, constants.ScopeAll:
		return s, nil
	}
	return "", fmt.Errorf("invalid --scope %q (expected single, future or all)", f.Scope)
}

// change runs one edit against a loaded calendar and persists it.
func change(ctx *cli.Context, id string, flag ScopeFlag, verb string,
	apply func(s *session, id string) (scheduler.Outcome, error)) error {
	defer ctx.Close()
	scope, err := flag.scope()
	if err != nil {
		return err
	}
	s, err := open(ctx)
	if err != nil {
		return err
	}

	var out scheduler.Outcome
	id, err = s.resolveID(id)
	if err == nil {
		out, err = apply(s, id)
		out, err = s.resolve(out, err, scope)
	}
	if ferr := s.finish(); err == nil {
		err = ferr
	}
	if err != nil {
		return err
	}
	printOutcome(verb, out)
	return nil
}

type ShiftMoveCmd struct {
	ID string `arg:"" help:"Shift ID (or unique prefix)."`
	To string `arg:"" help:"New start (YYYY-MM-DD HH:MM). The length is kept."`
	ScopeFlag
}

func (c *ShiftMoveCmd) Run(ctx *cli.Context) error {
	start, err := utils.ParseDateTimeInLocation(c.To, ctx.Location())
	if err != nil {
		return fmt.Errorf("invalid start (expected YYYY-MM-DD HH:MM): %w", err)
	}
	return change(ctx, c.ID, c.ScopeFlag, "Moved", func(s *session, id string) (scheduler.Outcome, error) {
		return s.sched.MoveEvent(id, start)
	})
}

type ShiftResizeCmd struct {
	ID    string `arg:"" help:"Shift ID (or unique prefix)."`
	Start string `help:"New start (YYYY-MM-DD HH:MM)."`
	End   string `help:"New end (HH:MM or YYYY-MM-DD HH:MM)."`
	ScopeFlag
}

func (c *ShiftResizeCmd) Validate() error {
	if c.Start == "" && c.End == "" {
		return fmt.Errorf("pass --start, --end or both")
	}
	return nil
}

func (c *ShiftResizeCmd) Run(ctx *cli.Context) error {
	loc := ctx.Location()
	return change(ctx, c.ID, c.ScopeFlag, "Resized", func(s *session, id string) (scheduler.Outcome, error) {
		e, _ := s.sched.Event(id)
		start, end := e.Start, e.End
		if c.Start != "" {
			t, err := utils.ParseDateTimeInLocation(c.Start, loc)
			if err != nil {
				return scheduler.Outcome{}, fmt.Errorf("invalid --start: %w", err)
			}
			start = t
		}
		if c.End != "" {
			t, err := parseEnd(c.End, start, loc)
			if err != nil {
				return scheduler.Outcome{}, err
			}
			end = t
		}
		return s.sched.ResizeEvent(id, start, end)
	})
}

type ShiftEditCmd struct {
	ID        string  `arg:"" help:"Shift ID (or unique prefix)."`
	Title     *string `help:"New title."`
	Employees *string `short:"E" help:"Replace the staffed employees (comma-separated, empty to clear)."`
	Location  *string `short:"l" help:"New location."`
	Notes     *string `short:"n" help:"New notes."`
	ScopeFlag
}

func (c *ShiftEditCmd) Validate() error {
	if c.Title == nil && c.Employees == nil && c.Location == nil && c.Notes == nil {
		return fmt.Errorf("nothing to change")
	}
	return nil
}

func (c *ShiftEditCmd) Run(ctx *cli.Context) error {
	return change(ctx, c.ID, c.ScopeFlag, "Updated", func(s *session, id string) (scheduler.Outcome, error) {
		return s.sched.UpdateEvent(id, func(e *models.Event) {
			if c.Title != nil {
				e.Title = strings.TrimSpace(*c.Title)
			}
			if c.Employees != nil {
				e.Employees = splitList(*c.Employees)
			}
			if c.Location != nil {
				e.Location = *c.Location
			}
			if c.Notes != nil {
				e.Notes = *c.Notes
			}
		})
	})
}

type ShiftDeleteCmd struct {
	ID string `arg:"" help:"Shift ID (or unique prefix)."`
	ScopeFlag
}

func (c *ShiftDeleteCmd) Run(ctx *cli.Context) error {
	return change(ctx, c.ID, c.ScopeFlag, "Deleted", func(s *session, id string) (scheduler.Outcome, error) {
		return s.sched.DeleteEvent(id, "")
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
