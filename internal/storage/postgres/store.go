// Package postgres is the shared, multi-user storage backend.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/shiftcal/internal/constants"
	apperrors "github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/migration"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/storage"
	"github.com/julianstephens/shiftcal/internal/storage/sqlstore"
	"github.com/julianstephens/shiftcal/migrations"
)

var _ storage.Provider = (*Store)(nil)

type Store struct {
	connStr string
	db      *sql.DB
	events  *sqlstore.Events
}

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

func New(connStr string) *Store {
	s := &Store{
		connStr: connStr,
	}
	s.ensureSearchPath()
	return s
}

func (s *Store) ensureSearchPath() {
	if strings.HasPrefix(s.connStr, "postgres://") || strings.HasPrefix(s.connStr, "postgresql://") {
		u, err := url.Parse(s.connStr)
		if err != nil {
			logger.Warn("Failed to parse Postgres connection string", "error", err)
			return
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", constants.AppName)
			u.RawQuery = q.Encode()
			s.connStr = u.String()
		}
		return
	}
	if !hasParam(s.connStr, "search_path") {
		s.connStr = strings.TrimSpace(s.connStr) + " search_path=" + constants.AppName
	}
}

// hasParam reports whether a DSN or URL connection string sets key.
func hasParam(connStr, key string) bool {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" {
		for k := range u.Query() {
			if strings.EqualFold(k, key) {
				return true
			}
		}
	}
	for _, part := range strings.Fields(connStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], key) {
			return true
		}
	}
	return false
}

// ValidateConnString checks that connStr is a valid PostgreSQL URI or DSN
// and carries no password. Passwords belong in the OS keyring.
func ValidateConnString(connStr string) (bool, error) {
	if strings.TrimSpace(connStr) == "" {
		return false, fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}

	if _, err := pq.NewConnector(connStr); err != nil {
		return false, fmt.Errorf("%w: invalid connection string format: %v", ErrInvalidConnectionString, err)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		parsedURL, err := url.Parse(connStr)
		if err != nil {
			return false, fmt.Errorf("%w: failed to parse connection URL: %v", ErrInvalidConnectionString, err)
		}
		if _, isSet := parsedURL.User.Password(); isSet {
			return false, ErrEmbeddedCredentials
		}
		if parsedURL.Host == "" && parsedURL.User == nil && (parsedURL.Path == "" || parsedURL.Path == "/") {
			return false, fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
		return true, nil
	}

	if hasParam(connStr, "password") {
		return false, ErrEmbeddedCredentials
	}
	return true, nil
}

// WithPassword returns connStr with password injected, for credentials
// read from the keyring at startup.
func WithPassword(connStr, password string) string {
	if password == "" {
		return connStr
	}
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil || u.User == nil {
			return connStr
		}
		u.User = url.UserPassword(u.User.Username(), password)
		return u.String()
	}
	return strings.TrimSpace(connStr) + " password='" + strings.ReplaceAll(password, "'", `\'`) + "'"
}

func (s *Store) open() (*sql.DB, error) {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

func (s *Store) ping() error {
	if err := s.db.Ping(); err != nil {
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasParam(s.connStr, "sslmode") {
			return fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

func (s *Store) Init() error {
	db, err := s.open()
	if err != nil {
		return err
	}

	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + constants.AppName); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.db = db
	s.events = sqlstore.New(db, sqlstore.Postgres)

	if err := s.ping(); err != nil {
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

	db, err := s.open()
	if err != nil {
		return err
	}
	s.db = db
	s.events = sqlstore.New(db, sqlstore.Postgres)

	if err := s.ping(); err != nil {
		return err
	}
	return s.validateSchemaVersion()
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
	sub, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	return migration.New(s.db, sub, migration.Postgres), nil
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
		return apperrors.ErrNotInitialized
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
	// a non-sensitive identifier instead of the connection string
	return "postgresql"
}
