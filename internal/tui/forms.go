package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/scheduler"
	"github.com/julianstephens/shiftcal/internal/utils"
)

type ShiftFormModel struct {
	Title     string
	Date      string
	Start     string
	End       string
	Employees string
	Location  string
	Notes     string
	Repeat    constants.Frequency
	Count     string
	// Editing hides the repeat fields.
	Editing bool
}

type ScopeFormModel struct {
	Request scheduler.ModificationRequest
	Scope   constants.Scope
}

const noRepeat constants.Frequency = ""

func newShiftFormModel(day time.Time) *ShiftFormModel {
	return &ShiftFormModel{
		Date:  day.Format(constants.DateFormat),
		Start: "09:00",
		End:   "17:00",
		Count: "10",
	}
}

func shiftFormFromEvent(e models.Event) *ShiftFormModel {
	return &ShiftFormModel{
		Title:     e.Title,
		Date:      e.Start.Format(constants.DateFormat),
		Start:     e.Start.Format(constants.TimeFormat),
		End:       e.End.Format(constants.TimeFormat),
		Employees: strings.Join(e.Employees, ", "),
		Location:  e.Location,
		Notes:     e.Notes,
		Editing:   true,
	}
}

func validateClock(s string) error {
	if _, err := time.Parse(constants.TimeFormat, strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("use HH:MM")
	}
	return nil
}

// NewShiftForm builds the create/edit form for a shift.
func NewShiftForm(fm *ShiftFormModel) *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Value(&fm.Title).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("title is required")
				}
				return nil
			}),
		huh.NewInput().
			Title("Date (YYYY-MM-DD)").
			Value(&fm.Date).
			Validate(func(s string) error {
				if _, err := time.Parse(constants.DateFormat, strings.TrimSpace(s)); err != nil {
					return fmt.Errorf("use YYYY-MM-DD")
				}
				return nil
			}),
		huh.NewInput().
			Title("Start (HH:MM)").
			Value(&fm.Start).
			Validate(validateClock),
		huh.NewInput().
			Title("End (HH:MM)").
			Description("An end at or before the start ends the next day").
			Value(&fm.End).
			Validate(validateClock),
		huh.NewInput().
			Title("Employees").
			Description("Comma separated").
			Value(&fm.Employees),
		huh.NewInput().
			Title("Location").
			Value(&fm.Location),
		huh.NewText().
			Title("Notes").
			Value(&fm.Notes),
	}
	groups := []*huh.Group{huh.NewGroup(fields...)}

	if !fm.Editing {
		groups = append(groups, huh.NewGroup(
			huh.NewSelect[constants.Frequency]().
				Title("Repeat").
				Options(
					huh.NewOption("Does not repeat", noRepeat),
					huh.NewOption("Daily", constants.FrequencyDaily),
					huh.NewOption("Weekly", constants.FrequencyWeekly),
					huh.NewOption("Monthly", constants.FrequencyMonthly),
				).
				Value(&fm.Repeat),
			huh.NewInput().
				Title("Occurrences").
				Description("Leave empty to repeat for two years").
				Value(&fm.Count).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 1 {
						return fmt.Errorf("must be a positive number")
					}
					return nil
				}),
		))
	}
	return huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
}

// Apply copies the form into e, resolving times in loc.
func (fm *ShiftFormModel) Apply(e *models.Event, loc *time.Location) error {
	day, err := utils.ParseDateInLocation(strings.TrimSpace(fm.Date), loc)
	if err != nil {
		return err
	}
	start, err := atClock(day, fm.Start)
	if err != nil {
		return err
	}
	end, err := atClock(day, fm.End)
	if err != nil {
		return err
	}
	if !end.After(start) {
		end = utils.AddDays(end, 1)
	}

	e.Title = strings.TrimSpace(fm.Title)
	e.Start, e.End = start, end
	e.Employees = splitList(fm.Employees)
	e.Location = strings.TrimSpace(fm.Location)
	e.Notes = strings.TrimSpace(fm.Notes)

	if fm.Editing || fm.Repeat == noRepeat {
		return nil
	}
	cfg := models.RecurrenceConfig{
		Frequency:   fm.Repeat,
		Interval:    1,
		MonthlyMode: constants.MonthlyByDay,
		End:         models.RecurrenceEnd{Kind: constants.EndNever},
	}
	if c := strings.TrimSpace(fm.Count); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil {
			return err
		}
		cfg.End = models.RecurrenceEnd{Kind: constants.EndAfter, Count: n}
	}
	e.Recurrence = &cfg
	return nil
}

func atClock(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(constants.TimeFormat, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
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

var scopeLabels = map[constants.Scope]string{
	constants.ScopeSingle: "Only this shift",
	constants.ScopeFuture: "This and following shifts",
	constants.ScopeAll:    "All shifts in the series",
	constants.ScopeCancel: "Cancel",
}

// NewScopeForm asks which part of a series a change applies to.
func NewScopeForm(fm *ScopeFormModel) *huh.Form {
	verb := "Apply change to"
	if fm.Request.Kind == scheduler.ModificationDelete {
		verb = "Delete"
	}
	var options []huh.Option[constants.Scope]
	for _, s := range fm.Request.Scopes() {
		options = append(options, huh.NewOption(scopeLabels[s], s))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[constants.Scope]().
				Title(verb).
				Description(fmt.Sprintf("This shift repeats (%d in series)", fm.Request.Members)).
				Options(options...).
				Value(&fm.Scope),
		),
	).WithTheme(huh.ThemeDracula())
}
