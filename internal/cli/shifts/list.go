package shifts

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/utils"
)

type ShiftListCmd struct {
	From     string `help:"First day to list (YYYY-MM-DD). Defaults to the start of this week."`
	Days     int    `help:"Number of days to list." default:"7"`
	Employee string `short:"e" help:"Only list shifts staffed by this employee."`
	ShowIDs  bool   `help:"Show shift IDs." name:"show-ids"`
}

func (c *ShiftListCmd) Validate() error {
	if c.Days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	if c.From != "" {
		if _, err := time.Parse(constants.DateFormat, c.From); err != nil {
			return fmt.Errorf("invalid --from date (expected YYYY-MM-DD): %w", err)
		}
	}
	return nil
}

func (c *ShiftListCmd) Run(ctx *cli.Context) error {
	defer ctx.Close()
	s, err := open(ctx)
	if err != nil {
		return err
	}
	defer s.finish()

	loc := ctx.Location()
	from := utils.StartOfWeek(time.Now().In(loc))
	if c.From != "" {
		from, err = utils.ParseDateInLocation(c.From, loc)
		if err != nil {
			return err
		}
	}
	to := utils.AddDays(from, c.Days)

	events := models.CloneEvents(s.sched.Events())
	events = slices.DeleteFunc(events, func(e models.Event) bool {
		if !e.Start.Before(to) || !e.End.After(from) {
			return true
		}
		return c.Employee != "" && !slices.Contains(e.Employees, c.Employee)
	})
	slices.SortFunc(events, func(a, b models.Event) int { return a.Start.Compare(b.Start) })

	if len(events) == 0 {
		fmt.Printf("No shifts between %s and %s\n", from.Format(constants.DateFormat), utils.AddDays(to, -1).Format(constants.DateFormat))
		return nil
	}

	day := ""
	for _, e := range events {
		start := e.Start.In(loc)
		if d := start.Format("Mon " + constants.DateFormat); d != day {
			day = d
			fmt.Println(day)
		}
		fmt.Printf("  %s\n", formatShift(e, loc, c.ShowIDs))
	}
	return nil
}

func formatShift(e models.Event, loc *time.Location, showID bool) string {
	start, end := e.Start.In(loc), e.End.In(loc)
	endStr := end.Format(constants.TimeFormat)
	if !utils.SameDay(start, end) {
		endStr = end.Format("Mon " + constants.TimeFormat)
	}

	title := e.Title
	if title == "" {
		title = "(untitled)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s-%s  %s", start.Format(constants.TimeFormat), endStr, title)
	if len(e.Employees) > 0 {
		fmt.Fprintf(&b, "  [%s]", strings.Join(e.Employees, ", "))
	}
	if e.Location != "" {
		fmt.Fprintf(&b, "  @ %s", e.Location)
	}
	if rec := cli.FormatRecurrence(e); rec != "" {
		fmt.Fprintf(&b, "  (%s)", rec)
	}
	if showID {
		fmt.Fprintf(&b, "  ID: %s", e.ID)
	}
	return b.String()
}
