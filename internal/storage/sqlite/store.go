// Package sqlite is the default local storage backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/migration"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/storage"
	"github.com/julianstephens/shiftcal/internal/storage/sqlstore"
	"github.com/julianstephens/shiftcal/migrations"
)

var _ storage.Provider = (*Store)(nil)

type Store struct {
	path   string
	db     *sql.DB
	events *sqlstore.Events
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
	}
}

func (s *Store) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := s.open(); err != nil {
		return err
	}

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return errors.ErrNotInitialized
	}

	if err := s.open(); err != nil {
		return err
	}

	return s.validateSchemaVersion()
}

func (s *Store) open() error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// one connection; concurrent writers would see SQLITE_BUSY
	db.SetMaxOpenConns(1)
	s.db = db
	s.events = sqlstore.New(db, sqlstore.SQLite)
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) migrations() (*migration.Runner, error) {
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.New(s.db, sub, migration.SQLite), nil
}

func (s *Store) runMigrations() error {
	r, err := s.migrations()
	if err != nil {
		return err
	}
	_, err = r.Up()
	return err
}

func (s *Store) validateSchemaVersion() error {
	r, err := s.migrations()
	if err != nil {
		return err
	}
	return r.Check()
}

func (s *Store) ready() error {
	if s.db == nil {
		return errors.ErrNotInitialized
	}
	return nil
}

func (s *Store) FetchEvents(ctx context.Context, userID string, account constants.AccountType) ([]models.Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.events.Fetch(ctx, userID, account)
}

func (s *Store) SaveEvent(ctx context.Context, event models.Event, userID string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	return s.events.Insert(ctx, event, userID)
}

func (s *Store) SaveRecurringEvents(ctx context.Context, defining models.Event, userID string) (string, int, error) {
	if err := s.ready(); err != nil {
		return "", 0, err
	}
	return s.events.InsertSeries(ctx, defining, userID)
}

func (s *Store) UpdateEvent(ctx context.Context, id string, event models.Event, userID string, _ constants.AccountType) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.events.Update(ctx, id, event, userID)
}

func (s *Store) DeleteEvent(ctx context.Context, id, _ string, _ constants.AccountType, scope constants.Scope, recurrenceID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.events.Delete(ctx, id, scope, recurrenceID)
}

func (s *Store) GetConfigPath() string {
	return s.path
}

// GetDB returns the underlying database connection, nil before Init or Load.
func (s *Store) GetDB() *sql.DB {
	return s.db
}
