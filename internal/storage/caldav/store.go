// Package caldav stores shifts as VEVENT objects in a remote CalDAV
// calendar, one object per instance.
package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/storage"
)

var _ storage.Provider = (*Store)(nil)

// Store is a CalDAV-backed provider.
type Store struct {
	baseURL      string
	username     string
	password     string
	calendarPath string
	client       *caldav.Client
}

// New creates a store. An empty calendarPath selects the first calendar
// found in the user's home set on Init.
func New(baseURL, username, password, calendarPath string) *Store {
	return &Store{
		baseURL:      baseURL,
		username:     username,
		password:     password,
		calendarPath: calendarPath,
	}
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

func (s *Store) connect() (*caldav.Client, error) {
	if s.client != nil {
		return s.client, nil
	}
	if s.baseURL == "" {
		return nil, fmt.Errorf("caldav url not configured")
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: s.username,
			password: s.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}
	s.client = client
	return client, nil
}

// Init connects and resolves the calendar path.
func (s *Store) Init() error {
	client, err := s.connect()
	if err != nil {
		return err
	}
	if s.calendarPath != "" {
		return nil
	}

	ctx := context.Background()
	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return fmt.Errorf("find home set: %w", err)
	}
	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return fmt.Errorf("find calendars: %w", err)
	}
	if len(cals) == 0 {
		return fmt.Errorf("no calendars found for %s", s.username)
	}
	s.calendarPath = cals[0].Path
	logger.Info("Using CalDAV calendar", "path", s.calendarPath, "name", cals[0].Name)
	return nil
}

func (s *Store) Load() error {
	if s.calendarPath == "" {
		return s.Init()
	}
	_, err := s.connect()
	return err
}

func (s *Store) Close() error {
	s.client = nil
	return nil
}

// CalendarPath returns the resolved calendar collection path.
func (s *Store) CalendarPath() string {
	return s.calendarPath
}

func (s *Store) objectPath(id string) string {
	p := s.calendarPath
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p + id + ".ics"
}

type stored struct {
	event models.Event
	owner string
}

func (s *Store) query(ctx context.Context) ([]stored, error) {
	client, err := s.connect()
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name:  "VCALENDAR",
			Comps: []caldav.CompFilter{{Name: "VEVENT"}},
		},
	}
	objects, err := client.QueryCalendar(ctx, s.calendarPath, query)
	if err != nil {
		return nil, errors.Persistence("query calendar", err)
	}

	out := make([]stored, 0, len(objects))
	for _, obj := range objects {
		e, owner, err := decodeEvent(obj.Data)
		if err != nil {
			logger.Warn("Skipping unreadable calendar object", "path", obj.Path, "error", err)
			continue
		}
		out = append(out, stored{event: e, owner: owner})
	}
	return out, nil
}

func (s *Store) put(ctx context.Context, e models.Event, owner string) error {
	client, err := s.connect()
	if err != nil {
		return err
	}
	cal, err := encodeEvent(e, owner)
	if err != nil {
		return err
	}
	if _, err := client.PutCalendarObject(ctx, s.objectPath(e.ID), cal); err != nil {
		return errors.Persistence("put event", err)
	}
	return nil
}

func (s *Store) FetchEvents(ctx context.Context, userID string, account constants.AccountType) ([]models.Event, error) {
	rows, err := s.query(ctx)
	if err != nil {
		return nil, err
	}
	var events []models.Event
	for _, r := range rows {
		if storage.VisibleTo(r.event, r.owner, userID, account) {
			events = append(events, r.event)
		}
	}
	return events, nil
}

func (s *Store) SaveEvent(ctx context.Context, event models.Event, userID string) (string, error) {
	e := event.Clone()
	e.ID = uuid.NewString()
	if err := s.put(ctx, e, userID); err != nil {
		return "", err
	}
	return e.ID, nil
}

func (s *Store) SaveRecurringEvents(ctx context.Context, defining models.Event, userID string) (string, int, error) {
	seriesID, rows, err := storage.ExpandForStorage(defining)
	if err != nil {
		return "", 0, err
	}
	for i, e := range rows {
		if err := s.put(ctx, e, userID); err != nil {
			return seriesID, i, err
		}
	}
	return seriesID, len(rows), nil
}

func (s *Store) UpdateEvent(ctx context.Context, id string, event models.Event, userID string, _ constants.AccountType) error {
	client, err := s.connect()
	if err != nil {
		return err
	}

	owner := userID
	obj, err := client.GetCalendarObject(ctx, s.objectPath(id))
	if err != nil {
		return fmt.Errorf("event with id %s: %w: %v", id, errors.ErrNotFound, err)
	}
	if _, stored, err := decodeEvent(obj.Data); err == nil && stored != "" {
		owner = stored
	}

	e := event.Clone()
	e.ID = id
	return s.put(ctx, e, owner)
}

func (s *Store) DeleteEvent(ctx context.Context, id, _ string, _ constants.AccountType, scope constants.Scope, recurrenceID string) error {
	client, err := s.connect()
	if err != nil {
		return err
	}

	rows, err := s.query(ctx)
	if err != nil {
		return err
	}
	events := make([]models.Event, len(rows))
	for i, r := range rows {
		events[i] = r.event
	}
	ids, err := storage.DeletionTargets(events, id, scope, recurrenceID)
	if err != nil {
		return err
	}
	for _, did := range ids {
		if err := client.RemoveAll(ctx, s.objectPath(did)); err != nil {
			return errors.Persistence("delete event", err)
		}
	}
	return nil
}

func (s *Store) GetConfigPath() string {
	return s.baseURL
}
