package recurrence

import (
	"regexp"

	"github.com/julianstephens/shiftcal/internal/models"
)

// Older stores generated instance ids as "<definingID>_<n>" (or "-<n>") and
// did not always populate RecurrenceID. This file is the only place that
// understands that convention; RecurrenceID is authoritative otherwise.

var legacyInstanceID = regexp.MustCompile(`^([^-_]+)[-_](\d+)$`)

// legacyKey returns the base id an event would share with its legacy series.
func legacyKey(e models.Event) (string, bool) {
	if e.RecurrenceID != "" || e.Detached {
		return "", false
	}
	if m := legacyInstanceID.FindStringSubmatch(e.ID); m != nil {
		return m[1], true
	}
	if e.IsRecurring {
		return e.ID, true
	}
	return "", false
}

// legacyMember reports whether candidate belongs to target's legacy series.
func legacyMember(target, candidate models.Event) bool {
	base, ok := legacyKey(target)
	if !ok {
		// a target with a RecurrenceID may still have legacy siblings derived from its id
		if target.RecurrenceID == "" || !target.IsRecurring {
			return false
		}
		base = target.ID
	}
	cb, ok := legacyKey(candidate)
	return ok && cb == base
}
