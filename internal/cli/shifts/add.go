package shifts

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/utils"
	"github.com/julianstephens/shiftcal/internal/validation"
)

type ShiftAddCmd struct {
	Title     string   `arg:"" help:"Shift title."`
	Start     string   `short:"s" required:"" help:"Start (YYYY-MM-DD HH:MM)."`
	End       string   `short:"e" help:"End (HH:MM or YYYY-MM-DD HH:MM). An HH:MM at or before the start ends the next day. Defaults to one hour after start."`
	Employees []string `short:"E" sep:"," help:"Comma-separated employees staffed on the shift."`
	Location  string   `short:"l" help:"Shift location."`
	Notes     string   `short:"n" help:"Free-form notes."`

	Repeat    string `short:"r" enum:"none,daily,weekly,monthly,custom" default:"none" help:"Recurrence frequency (none|daily|weekly|monthly|custom)."`
	Interval  int    `short:"i" default:"1" help:"Repeat every N days, weeks or months."`
	Weekdays  string `short:"w" help:"Comma-separated weekdays for custom recurrence."`
	MonthlyBy string `enum:"day,weekday" default:"day" help:"Monthly recurrence by day of month or by weekday position (day|weekday)."`
	MonthWeek int    `help:"Week of the month (1-4, -1=last) for --monthly-by=weekday. Defaults to the start date's position."`
	Count     int    `short:"c" help:"Stop after N occurrences."`
	Until     string `short:"u" help:"Stop after this date (YYYY-MM-DD)."`
}

func (c *ShiftAddCmd) Validate() error {
	if c.Count > 0 && c.Until != "" {
		return fmt.Errorf("--count and --until are mutually exclusive")
	}
	if c.Repeat == "custom" && c.Weekdays == "" {
		return fmt.Errorf("--weekdays must be specified for custom recurrence")
	}
	if c.Repeat == "none" && (c.Count > 0 || c.Until != "" || c.Weekdays != "") {
		return fmt.Errorf("--count, --until and --weekdays need --repeat")
	}
	return nil
}

// build parses the flags into an event in loc.
func (c *ShiftAddCmd) build(loc *time.Location) (models.Event, error) {
	start, err := utils.ParseDateTimeInLocation(c.Start, loc)
	if err != nil {
		return models.Event{}, fmt.Errorf("invalid --start (expected YYYY-MM-DD HH:MM): %w", err)
	}
	end, err := parseEnd(c.End, start, loc)
	if err != nil {
		return models.Event{}, err
	}

	e := models.Event{
		Title:     strings.TrimSpace(c.Title),
		Start:     start,
		End:       end,
		Employees: c.Employees,
		Location:  c.Location,
		Notes:     c.Notes,
	}
	if c.Repeat == "none" {
		return e, nil
	}

	rec := models.RecurrenceConfig{
		Frequency:   constants.Frequency(c.Repeat),
		Interval:    c.Interval,
		MonthlyMode: constants.MonthlyMode(c.MonthlyBy),
		End:         models.RecurrenceEnd{Kind: constants.EndNever},
	}
	if c.Weekdays != "" {
		if rec.Weekdays, err = cli.ParseWeekdays(c.Weekdays); err != nil {
			return models.Event{}, err
		}
	}
	if rec.MonthlyMode == constants.MonthlyByWeekday {
		rec.MonthWeek = c.MonthWeek
		if rec.MonthWeek == 0 {
			rec.MonthWeek = min((start.Day()-1)/7+1, 4)
		}
	}
	switch {
	case c.Count > 0:
		rec.End = models.RecurrenceEnd{Kind: constants.EndAfter, Count: c.Count}
	case c.Until != "":
		until, err := utils.ParseDateInLocation(c.Until, loc)
		if err != nil {
			return models.Event{}, fmt.Errorf("invalid --until (expected YYYY-MM-DD): %w", err)
		}
		rec.End = models.RecurrenceEnd{Kind: constants.EndOnDate, Until: until}
	}
	if err := rec.Validate(); err != nil {
		return models.Event{}, err
	}
	e.Recurrence = &rec
	return e, nil
}

// parseEnd accepts a full date-time, a bare clock time on the start's day,
// or nothing for the default length.
func parseEnd(s string, start time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return start.Add(constants.DefaultEventHours * time.Hour), nil
	}
	if end, err := utils.ParseDateTimeInLocation(s, loc); err == nil {
		return end, nil
	}
	clock, err := time.Parse(constants.TimeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --end (expected HH:MM or YYYY-MM-DD HH:MM): %w", err)
	}
	end := time.Date(start.Year(), start.Month(), start.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	if !end.After(start) {
		end = utils.AddDays(end, 1)
	}
	return end, nil
}

func (c *ShiftAddCmd) Run(ctx *cli.Context) error {
	defer ctx.Close()
	e, err := c.build(ctx.Location())
	if err != nil {
		return err
	}
	if err := validation.ValidateEvent(e); err != nil {
		return err
	}

	s, err := open(ctx)
	if err != nil {
		return err
	}
	out, err := s.sched.CreateEvent(e)
	if err != nil {
		s.finish()
		return err
	}
	if err := s.finish(); err != nil {
		return err
	}

	if e.Recurrence != nil {
		fmt.Printf("✓ Added recurring shift: %s (%s)\n", e.Title, cli.FormatRecurrence(e))
	} else {
		fmt.Printf("✓ Added shift: %s\n", e.Title)
	}
	fmt.Printf("  %s\n", formatShift(e, ctx.Location(), false))
	if out.Conflicts.HasConflicts() {
		fmt.Print(out.Conflicts.FormatReport())
	}
	return nil
}
