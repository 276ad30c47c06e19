// Package sqlstore implements event persistence shared by the SQL backends.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/storage"
)

// Dialect captures the differences between SQL backends.
type Dialect struct {
	// Numbered reports whether placeholders are $1, $2... instead of ?.
	Numbered bool
	// TextTime stores timestamps as RFC3339 text instead of native columns.
	TextTime bool
}

var (
	SQLite   = Dialect{TextTime: true}
	Postgres = Dialect{Numbered: true}
)

// Events is the events table of one database.
type Events struct {
	db *sql.DB
	d  Dialect
}

// New wraps db.
func New(db *sql.DB, d Dialect) *Events {
	return &Events{db: db, d: d}
}

const columns = `id, user_id, start_at, end_at, title, location, notes, employees,
	recurrence_id, is_recurring, recurrence, detached, updated_at`

// rebind rewrites ? placeholders for numbered dialects.
func (t *Events) rebind(query string) string {
	if !t.d.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (t *Events) encodeTime(tm time.Time) any {
	if t.d.TextTime {
		return tm.UTC().Format(time.RFC3339Nano)
	}
	return tm.UTC()
}

func decodeTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return time.Parse(time.RFC3339Nano, x)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(x))
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("unsupported time value %T", v)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (models.Event, string, error) {
	var e models.Event
	var owner, employees string
	var start, end, updated any
	var recurrenceID, recurrenceJSON sql.NullString

	if err := row.Scan(&e.ID, &owner, &start, &end, &e.Title, &e.Location, &e.Notes, &employees,
		&recurrenceID, &e.IsRecurring, &recurrenceJSON, &e.Detached, &updated); err != nil {
		return models.Event{}, "", err
	}

	var err error
	if e.Start, err = decodeTime(start); err != nil {
		return models.Event{}, "", fmt.Errorf("event %s start: %w", e.ID, err)
	}
	if e.End, err = decodeTime(end); err != nil {
		return models.Event{}, "", fmt.Errorf("event %s end: %w", e.ID, err)
	}
	if e.UpdatedAt, err = decodeTime(updated); err != nil {
		return models.Event{}, "", fmt.Errorf("event %s updated_at: %w", e.ID, err)
	}
	if employees != "" {
		if err := json.Unmarshal([]byte(employees), &e.Employees); err != nil {
			return models.Event{}, "", fmt.Errorf("event %s employees: %w", e.ID, err)
		}
	}
	if recurrenceID.Valid {
		e.RecurrenceID = recurrenceID.String
	}
	if recurrenceJSON.Valid && recurrenceJSON.String != "" {
		var cfg models.RecurrenceConfig
		if err := json.Unmarshal([]byte(recurrenceJSON.String), &cfg); err != nil {
			return models.Event{}, "", fmt.Errorf("event %s recurrence: %w", e.ID, err)
		}
		e.Recurrence = &cfg
	}
	storage.MarkStored(&e)
	return e, owner, nil
}

func (t *Events) args(e models.Event, owner string) ([]any, error) {
	employees, err := json.Marshal(e.Employees)
	if err != nil {
		return nil, err
	}
	if e.Employees == nil {
		employees = []byte("[]")
	}
	var rid, rec sql.NullString
	if e.RecurrenceID != "" {
		rid = sql.NullString{String: e.RecurrenceID, Valid: true}
	}
	if e.Recurrence != nil {
		b, err := json.Marshal(e.Recurrence)
		if err != nil {
			return nil, err
		}
		rec = sql.NullString{String: string(b), Valid: true}
	}
	return []any{
		e.ID, owner, t.encodeTime(e.Start), t.encodeTime(e.End), e.Title, e.Location, e.Notes, string(employees),
		rid, e.IsRecurring, rec, e.Detached, t.encodeTime(time.Now()),
	}, nil
}

// Fetch returns every live event visible to userID.
func (t *Events) Fetch(ctx context.Context, userID string, account constants.AccountType) ([]models.Event, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT `+columns+` FROM events WHERE deleted_at IS NULL ORDER BY start_at`)
	if err != nil {
		return nil, errors.Persistence("fetch events", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, owner, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		if storage.VisibleTo(e, owner, userID, account) {
			events = append(events, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence("fetch events", err)
	}
	return events, nil
}

// Get returns a live event by id.
func (t *Events) Get(ctx context.Context, id string) (models.Event, error) {
	row := t.db.QueryRowContext(ctx, t.rebind(`SELECT `+columns+` FROM events WHERE id = ? AND deleted_at IS NULL`), id)
	e, _, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, fmt.Errorf("event with id %s: %w", id, errors.ErrNotFound)
	}
	return e, err
}

// Insert stores a new event under a fresh canonical id.
func (t *Events) Insert(ctx context.Context, e models.Event, userID string) (string, error) {
	e.ID = uuid.NewString()
	if err := t.insertTx(ctx, []models.Event{e}, userID); err != nil {
		return "", err
	}
	return e.ID, nil
}

// InsertSeries expands and stores a recurring series in one transaction.
func (t *Events) InsertSeries(ctx context.Context, defining models.Event, userID string) (string, int, error) {
	seriesID, rows, err := storage.ExpandForStorage(defining)
	if err != nil {
		return "", 0, err
	}
	if err := t.insertTx(ctx, rows, userID); err != nil {
		return "", 0, err
	}
	return seriesID, len(rows), nil
}

func (t *Events) insertTx(ctx context.Context, events []models.Event, userID string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Persistence("begin", err)
	}
	query := t.rebind(`INSERT INTO events (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, e := range events {
		args, err := t.args(e, userID)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return errors.Persistence("insert event", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Persistence("commit", err)
	}
	return nil
}

// Update overwrites the stored copy of id with e.
func (t *Events) Update(ctx context.Context, id string, e models.Event, userID string) error {
	e.ID = id
	args, err := t.args(e, userID)
	if err != nil {
		return err
	}
	// owner is not rewritten on update
	args = append(args[2:], id)
	res, err := t.db.ExecContext(ctx, t.rebind(`
		UPDATE events SET start_at = ?, end_at = ?, title = ?, location = ?, notes = ?, employees = ?,
			recurrence_id = ?, is_recurring = ?, recurrence = ?, detached = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`), args...)
	if err != nil {
		return errors.Persistence("update event", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Persistence("update event", err)
	}
	if n == 0 {
		return fmt.Errorf("event with id %s: %w", id, errors.ErrNotFound)
	}
	return nil
}

// Delete soft-deletes id, or id and its series siblings per scope.
func (t *Events) Delete(ctx context.Context, id string, scope constants.Scope, recurrenceID string) error {
	target, err := t.Get(ctx, id)
	if err != nil {
		return err
	}
	rows := []models.Event{target}
	rid := recurrenceID
	if rid == "" {
		rid = target.RecurrenceID
	}
	if scope != constants.ScopeSingle && rid != "" {
		siblings, err := t.series(ctx, rid)
		if err != nil {
			return err
		}
		rows = append(rows, siblings...)
	}

	ids, err := storage.DeletionTargets(rows, id, scope, rid)
	if err != nil {
		return err
	}

	now := t.encodeTime(time.Now())
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Persistence("begin", err)
	}
	query := t.rebind(`UPDATE events SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`)
	for _, did := range ids {
		if _, err := tx.ExecContext(ctx, query, now, did); err != nil {
			_ = tx.Rollback()
			return errors.Persistence("delete event", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Persistence("commit", err)
	}
	return nil
}

func (t *Events) series(ctx context.Context, recurrenceID string) ([]models.Event, error) {
	rows, err := t.db.QueryContext(ctx, t.rebind(`SELECT `+columns+` FROM events WHERE recurrence_id = ? AND deleted_at IS NULL`), recurrenceID)
	if err != nil {
		return nil, errors.Persistence("load series", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		e, _, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
