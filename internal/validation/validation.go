package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictOverlappingShifts ConflictType = "overlapping_shifts"
	ConflictExceedsDailyHours ConflictType = "exceeds_daily_hours"
	ConflictMissingEventID    ConflictType = "missing_event_id"
	ConflictDuplicateEventID  ConflictType = "duplicate_event_id"
	ConflictInvalidDateTime   ConflictType = "invalid_datetime"
)

// Conflict represents a detected conflict between shifts
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string   // YYYY-MM-DD format (if applicable)
	Employee    string   // employee involved (if applicable)
	TimeRange   string   // Human-readable time range (if applicable)
	EventIDs    []string // IDs of events involved
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// ConflictError carries a conflict list through an error return.
type ConflictError struct {
	Result ValidationResult
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%d scheduling conflict(s)", len(e.Result.Conflicts))
}

// Unwrap lets errors.Is match ErrConflict.
func (e *ConflictError) Unwrap() error {
	return errors.ErrConflict
}

// ValidateEvent checks the invariants every committed event must satisfy.
func ValidateEvent(e models.Event) error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.Validationf("event is missing an id")
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return errors.Validationf("event %s is missing a start or end time", e.ID)
	}
	if !e.End.After(e.Start) {
		return errors.Validationf("event %s ends at %s, not after its start %s",
			e.ID, e.End.Format(constants.DateTimeFormat), e.Start.Format(constants.DateTimeFormat))
	}
	if e.Recurrence != nil {
		if err := e.Recurrence.Validate(); err != nil {
			return errors.Validationf("event %s: %v", e.ID, err)
		}
	}
	return nil
}

// Validator checks shift sets for staffing conflicts
type Validator struct {
	MaxDailyHours float64
}

// New creates a new Validator. A non-positive limit uses the default.
func New(maxDailyHours float64) *Validator {
	if maxDailyHours <= 0 {
		maxDailyHours = constants.DefaultMaxDailyHours
	}
	return &Validator{MaxDailyHours: maxDailyHours}
}

// ValidateEvents checks a full event set for conflicts.
func (v *Validator) ValidateEvents(events []models.Event) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	seen := make(map[string]int)
	for _, e := range events {
		if e.ID == "" {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictMissingEventID,
				Description: fmt.Sprintf("Shift %q starting %s has no id", e.Title, e.Start.Format(constants.DateTimeFormat)),
				Date:        e.Start.Format(constants.DateFormat),
			})
			continue
		}
		seen[e.ID]++
		if !e.End.After(e.Start) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidDateTime,
				Description: fmt.Sprintf("Shift %s ends before it starts (%s)", e.ID, timeRange(e)),
				Date:        e.Start.Format(constants.DateFormat),
				TimeRange:   timeRange(e),
				EventIDs:    []string{e.ID},
			})
		}
	}
	ids := make([]string, 0, len(seen))
	for id, n := range seen {
		if n > 1 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictDuplicateEventID,
			Description: fmt.Sprintf("Duplicate shift id %s (%d copies)", id, seen[id]),
			EventIDs:    []string{id},
		})
	}

	result.Conflicts = append(result.Conflicts, v.overlaps(events, nil)...)
	result.Conflicts = append(result.Conflicts, v.dailyHours(events, nil)...)
	return result
}

// ValidateChange reports only conflicts involving proposed, as if it
// replaced its stored copy in events.
func (v *Validator) ValidateChange(events []models.Event, proposed models.Event) ValidationResult {
	merged := make([]models.Event, 0, len(events)+1)
	for _, e := range events {
		if e.ID != proposed.ID {
			merged = append(merged, e)
		}
	}
	merged = append(merged, proposed)

	result := ValidationResult{Conflicts: []Conflict{}}
	result.Conflicts = append(result.Conflicts, v.overlaps(merged, &proposed)...)
	result.Conflicts = append(result.Conflicts, v.dailyHours(merged, &proposed)...)
	return result
}

func (v *Validator) overlaps(events []models.Event, focus *models.Event) []Conflict {
	byEmployee := groupByEmployee(events)
	var conflicts []Conflict
	for _, emp := range sortedKeys(byEmployee) {
		shifts := byEmployee[emp]
		sort.Slice(shifts, func(i, j int) bool { return shifts[i].Start.Before(shifts[j].Start) })
		for i := 0; i < len(shifts); i++ {
			for j := i + 1; j < len(shifts) && shifts[j].Start.Before(shifts[i].End); j++ {
				a, b := shifts[i], shifts[j]
				if focus != nil && a.ID != focus.ID && b.ID != focus.ID {
					continue
				}
				conflicts = append(conflicts, Conflict{
					Type:        ConflictOverlappingShifts,
					Description: fmt.Sprintf("%s is booked on overlapping shifts %s and %s", emp, timeRange(a), timeRange(b)),
					Date:        a.Start.Format(constants.DateFormat),
					Employee:    emp,
					TimeRange:   fmt.Sprintf("%s - %s", b.Start.Format(constants.TimeFormat), minTime(a.End, b.End).Format(constants.TimeFormat)),
					EventIDs:    []string{a.ID, b.ID},
				})
			}
		}
	}
	return conflicts
}

func (v *Validator) dailyHours(events []models.Event, focus *models.Event) []Conflict {
	byEmployee := groupByEmployee(events)
	limit := time.Duration(v.MaxDailyHours * float64(time.Hour))
	var conflicts []Conflict
	for _, emp := range sortedKeys(byEmployee) {
		totals := make(map[string]time.Duration)
		ids := make(map[string][]string)
		for _, e := range byEmployee[emp] {
			for day, d := range perDay(e) {
				totals[day] += d
				ids[day] = append(ids[day], e.ID)
			}
		}
		days := make([]string, 0, len(totals))
		for day := range totals {
			days = append(days, day)
		}
		sort.Strings(days)
		for _, day := range days {
			if totals[day] <= limit {
				continue
			}
			if focus != nil && !contains(ids[day], focus.ID) {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Type: ConflictExceedsDailyHours,
				Description: fmt.Sprintf("%s is scheduled %.1fh on %s (limit %.1fh)",
					emp, totals[day].Hours(), day, v.MaxDailyHours),
				Date:     day,
				Employee: emp,
				EventIDs: ids[day],
			})
		}
	}
	return conflicts
}

// perDay splits an event's duration across the calendar days it touches.
func perDay(e models.Event) map[string]time.Duration {
	out := make(map[string]time.Duration)
	for cur := e.Start; cur.Before(e.End); {
		next := utils.AddDays(utils.StartOfDay(cur), 1)
		if next.After(e.End) {
			next = e.End
		}
		out[cur.Format(constants.DateFormat)] += next.Sub(cur)
		cur = next
	}
	return out
}

func groupByEmployee(events []models.Event) map[string][]models.Event {
	out := make(map[string][]models.Event)
	for _, e := range events {
		if !e.End.After(e.Start) {
			continue
		}
		for _, emp := range e.Employees {
			out[emp] = append(out[emp], e)
		}
	}
	return out
}

func sortedKeys(m map[string][]models.Event) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func timeRange(e models.Event) string {
	return fmt.Sprintf("%s-%s", e.Start.Format(constants.DateTimeFormat), e.End.Format(constants.TimeFormat))
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
