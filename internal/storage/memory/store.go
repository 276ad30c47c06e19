// Package memory provides an in-memory storage.Provider for tests and
// offline demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/storage"
)

var _ storage.Provider = (*Store)(nil)

type row struct {
	event models.Event
	owner string
}

// Store is a thread-safe in-memory provider. The zero value is ready for use.
type Store struct {
	mu   sync.RWMutex
	rows map[string]row

	// Fail, when set, is consulted before every mutating call and its error
	// returned instead of performing the operation.
	Fail func(op string) error
	// Hold, when set, runs at the start of every mutating call before the
	// store is locked, so a caller can park a call in flight.
	Hold func(op string)

	calls map[string]int
}

// New creates an empty store.
func New() *Store {
	return &Store{rows: make(map[string]row)}
}

// Seed stores events as-is under owner, keeping their ids.
func (s *Store) Seed(owner string, events ...models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	for _, e := range events {
		e = e.Clone()
		storage.MarkStored(&e)
		s.rows[e.ID] = row{event: e, owner: owner}
	}
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

func (s *Store) init() {
	if s.rows == nil {
		s.rows = make(map[string]row)
	}
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
}

func (s *Store) hold(op string) {
	if s.Hold != nil {
		s.Hold(op)
	}
}

// begin records op and runs the failure hook. Caller must hold s.mu.
func (s *Store) begin(ctx context.Context, op string) error {
	s.init()
	s.calls[op]++
	if err := ctx.Err(); err != nil {
		return errors.Persistence(op, err)
	}
	if s.Fail != nil {
		if err := s.Fail(op); err != nil {
			return errors.Persistence(op, err)
		}
	}
	return nil
}

func (s *Store) Init() error  { return nil }
func (s *Store) Load() error  { return nil }
func (s *Store) Close() error { return nil }

func (s *Store) FetchEvents(ctx context.Context, userID string, account constants.AccountType) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "fetch"); err != nil {
		return nil, err
	}

	var out []models.Event
	for _, r := range s.rows {
		if storage.VisibleTo(r.event, r.owner, userID, account) {
			out = append(out, r.event.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (s *Store) SaveEvent(ctx context.Context, event models.Event, userID string) (string, error) {
	s.hold("save")
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "save"); err != nil {
		return "", err
	}

	e := event.Clone()
	e.ID = uuid.NewString()
	e.UpdatedAt = time.Now()
	storage.MarkStored(&e)
	s.rows[e.ID] = row{event: e, owner: userID}
	return e.ID, nil
}

func (s *Store) SaveRecurringEvents(ctx context.Context, defining models.Event, userID string) (string, int, error) {
	s.hold("save_recurring")
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "save_recurring"); err != nil {
		return "", 0, err
	}

	seriesID, rows, err := storage.ExpandForStorage(defining)
	if err != nil {
		return "", 0, err
	}
	for _, e := range rows {
		s.rows[e.ID] = row{event: e, owner: userID}
	}
	return seriesID, len(rows), nil
}

func (s *Store) UpdateEvent(ctx context.Context, id string, event models.Event, _ string, _ constants.AccountType) error {
	s.hold("update")
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "update"); err != nil {
		return err
	}

	r, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("event with id %s: %w", id, errors.ErrNotFound)
	}
	e := event.Clone()
	e.ID = id
	e.UpdatedAt = time.Now()
	storage.MarkStored(&e)
	s.rows[id] = row{event: e, owner: r.owner}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id, _ string, _ constants.AccountType, scope constants.Scope, recurrenceID string) error {
	s.hold("delete")
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "delete"); err != nil {
		return err
	}

	all := make([]models.Event, 0, len(s.rows))
	for _, r := range s.rows {
		all = append(all, r.event)
	}
	ids, err := storage.DeletionTargets(all, id, scope, recurrenceID)
	if err != nil {
		return err
	}
	for _, did := range ids {
		delete(s.rows, did)
	}
	return nil
}

func (s *Store) GetConfigPath() string {
	return "memory"
}
