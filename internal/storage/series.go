package storage

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/recurrence"
	"github.com/julianstephens/shiftcal/internal/validation"
)

// ExpandForStorage turns a defining event into the rows a backend should
// insert: canonical ids, a fresh recurrence id, validated flags set.
func ExpandForStorage(defining models.Event) (string, []models.Event, error) {
	if defining.Recurrence == nil {
		return "", nil, errors.Validationf("event %s has no recurrence config", defining.ID)
	}
	if err := validation.ValidateEvent(withID(defining)); err != nil {
		return "", nil, err
	}
	res := recurrence.Expand(defining, defining.Recurrence)
	if res.Fallback != nil {
		return "", nil, errors.Validationf("invalid recurrence: %v", res.Fallback)
	}

	seriesID := uuid.NewString()
	def := defining.Clone()
	def.ID = uuid.NewString()
	rows := recurrence.Materialize(def, seriesID, res)
	for i := range rows {
		MarkStored(&rows[i])
	}
	return seriesID, rows, nil
}

// DeletionTargets returns the ids a scoped delete removes from rows, which
// must hold the target and, for series scopes, its siblings.
func DeletionTargets(rows []models.Event, id string, scope constants.Scope, recurrenceID string) ([]string, error) {
	i := slices.IndexFunc(rows, func(e models.Event) bool { return e.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("event with id %s: %w", id, errors.ErrNotFound)
	}
	target := rows[i]
	if recurrenceID == "" {
		recurrenceID = target.RecurrenceID
	}
	if scope == constants.ScopeSingle || recurrenceID == "" {
		return []string{id}, nil
	}

	var ids []string
	for _, e := range rows {
		if e.ID != id && e.RecurrenceID != recurrenceID {
			continue
		}
		if scope == constants.ScopeFuture && e.Start.Before(target.Start) {
			continue
		}
		ids = append(ids, e.ID)
	}
	return ids, nil
}

// MarkStored sets the flags every persisted event carries.
func MarkStored(e *models.Event) {
	e.FromDatabase = true
	e.IsValidated = true
	e.ClearTransient()
	e.ApplyPalette()
}

// VisibleTo reports whether account userID should see e. Managers see every
// event; employees see events they own or are staffed on.
func VisibleTo(e models.Event, owner, userID string, account constants.AccountType) bool {
	if account == constants.AccountManager {
		return true
	}
	return owner == userID || slices.Contains(e.Employees, userID)
}

func withID(e models.Event) models.Event {
	if e.ID == "" {
		e.ID = "pending"
	}
	return e
}
