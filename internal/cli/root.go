package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/shiftcal/internal/backup"
	"github.com/julianstephens/shiftcal/internal/cache"
	"github.com/julianstephens/shiftcal/internal/config"
	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/keyring"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/notifier"
	"github.com/julianstephens/shiftcal/internal/scheduler"
	"github.com/julianstephens/shiftcal/internal/storage"
	"github.com/julianstephens/shiftcal/internal/storage/caldav"
	"github.com/julianstephens/shiftcal/internal/storage/memory"
	"github.com/julianstephens/shiftcal/internal/storage/postgres"
	"github.com/julianstephens/shiftcal/internal/storage/sqlite"
)

// PasswordEnv supplies the PostgreSQL password when the configured
// connection string has none.
const PasswordEnv = "SHIFTCAL_DB_PASSWORD"

type Context struct {
	ConfigPath string
	Config     *config.Config
	Store      storage.Provider
}

// NewContext loads the config file and starts file logging next to it.
func NewContext(configPath string, debug, quiet bool) (*Context, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	if err := logger.Init(logger.Config{Debug: debug || cfg.Debug, ConfigDir: cfg.Dir(), Quiet: quiet}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &Context{ConfigPath: configPath, Config: cfg}, nil
}

// Location is the configured display timezone.
func (c *Context) Location() *time.Location {
	loc, err := time.LoadLocation(c.Config.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Provider builds the configured backend on first use.
func (c *Context) Provider() (storage.Provider, error) {
	if c.Store != nil {
		return c.Store, nil
	}
	p, err := BuildProvider(c.Config)
	if err != nil {
		return nil, err
	}
	c.Store = p
	return p, nil
}

// LoadProvider builds the backend and connects to it.
func (c *Context) LoadProvider() (storage.Provider, error) {
	p, err := c.Provider()
	if err != nil {
		return nil, err
	}
	if err := p.Load(); err != nil {
		return nil, err
	}
	return p, nil
}

// OpenScheduler connects to storage and loads the user's calendar.
// onError receives background persistence failures.
func (c *Context) OpenScheduler(ctx context.Context, onError func(error)) (*scheduler.Scheduler, error) {
	p, err := c.LoadProvider()
	if err != nil {
		return nil, err
	}
	cfg := c.Config
	sched := scheduler.New(p, scheduler.Options{
		UserID:        cfg.UserID,
		Account:       cfg.AccountType,
		Location:      c.Location(),
		View:          cfg.DefaultView,
		HistoryLimit:  cfg.HistoryLimit,
		MaxDailyHours: cfg.MaxDailyHours,
		Cache:         cache.New(cfg.CacheDir()),
		Notifier:      notifier.New(cfg.Notifier.WebhookURL, cfg.Notifier.Secret),
		OnError:       onError,
	})
	if err := sched.Load(ctx); err != nil {
		sched.Close()
		return nil, err
	}
	return sched, nil
}

// Close releases the storage connection.
func (c *Context) Close() {
	if c.Store == nil {
		return
	}
	if err := c.Store.Close(); err != nil {
		logger.Warn("Failed to close storage", "error", err)
	}
}

// PerformAutomaticBackup copies a sqlite database before a session
// changes it. Failures are logged, never returned.
func (c *Context) PerformAutomaticBackup() {
	if c.Config.Storage.Driver != config.DriverSQLite {
		return
	}
	if _, err := backup.NewManager(c.Config.DBPath()).Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// BuildProvider returns the backend named by cfg. Secrets come from the OS
// keyring or the environment, never from the config file.
func BuildProvider(cfg *config.Config) (storage.Provider, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		return sqlite.NewStore(cfg.DBPath()), nil

	case config.DriverPostgres:
		connStr, err := postgresConnString(cfg.Storage.Postgres)
		if err != nil {
			return nil, err
		}
		return postgres.New(connStr), nil

	case config.DriverCalDAV:
		password, err := keyring.GetCalDAVPassword()
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return nil, fmt.Errorf("no CalDAV password in keyring. Use '%s credentials set caldav'", constants.AppName)
			}
			return nil, err
		}
		dav := cfg.Storage.CalDAV
		return caldav.New(dav.URL, dav.Username, password, dav.CalendarPath), nil

	case config.DriverMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func postgresConnString(configured string) (string, error) {
	if configured == "" {
		connStr, err := keyring.GetConnectionString()
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return "", fmt.Errorf("no PostgreSQL connection string configured. Set storage.postgres or use '%s credentials set postgres'", constants.AppName)
			}
			return "", err
		}
		return connStr, nil
	}

	if _, err := postgres.ValidateConnString(configured); err != nil {
		if errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return "", fmt.Errorf("storage.postgres must not contain a password. Use the OS keyring, %s or .pgpass instead", PasswordEnv)
		}
		return "", err
	}
	return postgres.WithPassword(configured, os.Getenv(PasswordEnv)), nil
}

// ParseWeekdays parses a comma-separated list of weekdays into a
// Monday-first mask.
func ParseWeekdays(s string) ([7]bool, error) {
	var mask [7]bool
	dayMap := map[string]int{
		"mon": 0, "monday": 0,
		"tue": 1, "tuesday": 1,
		"wed": 2, "wednesday": 2,
		"thu": 3, "thursday": 3,
		"fri": 4, "friday": 4,
		"sat": 5, "saturday": 5,
		"sun": 6, "sunday": 6,
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		i, ok := dayMap[part]
		if !ok {
			return mask, fmt.Errorf("invalid weekday: %s", part)
		}
		mask[i] = true
	}
	return mask, nil
}

var intervalUnits = map[constants.Frequency]string{
	constants.FrequencyDaily:   "days",
	constants.FrequencyWeekly:  "weeks",
	constants.FrequencyMonthly: "months",
	constants.FrequencyCustom:  "weeks",
}

// FormatRecurrence describes a series rule in a few words.
func FormatRecurrence(e models.Event) string {
	if e.Recurrence == nil {
		if e.RecurrenceID != "" {
			return "series"
		}
		return ""
	}
	r := e.Recurrence
	unit := string(r.Frequency)
	if r.Interval > 1 {
		unit = fmt.Sprintf("every %d %s", r.Interval, intervalUnits[r.Frequency])
	}
	switch r.End.Kind {
	case constants.EndAfter:
		return fmt.Sprintf("%s, %d times", unit, r.End.Count)
	case constants.EndOnDate:
		return fmt.Sprintf("%s until %s", unit, r.End.Until.Format(constants.DateFormat))
	}
	return unit
}
