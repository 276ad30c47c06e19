// Package migration applies the embedded NNN_name.sql schema steps and
// records each applied step in schema_migrations.
package migration

import (
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/shiftcal/internal/logger"
)

// Dialect selects bind-parameter syntax.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

const ledgerDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TEXT NOT NULL
)`

// Step is one schema file.
type Step struct {
	Version int
	Name    string
	SQL     string
}

// Applied is a row of schema_migrations.
type Applied struct {
	Version   int
	Name      string
	AppliedAt time.Time
}

type Runner struct {
	db      *sql.DB
	src     fs.FS
	dialect Dialect
}

func New(db *sql.DB, src fs.FS, dialect Dialect) *Runner {
	return &Runner{db: db, src: src, dialect: dialect}
}

func (r *Runner) bind(n int) string {
	if r.dialect == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// parseName splits "003_add_colors.sql" into 3 and "add_colors".
func parseName(name string) (int, string, error) {
	num, label, ok := strings.Cut(strings.TrimSuffix(name, ".sql"), "_")
	if !ok || label == "" {
		return 0, "", fmt.Errorf("migration %s: expected NNN_name.sql", name)
	}
	v, err := strconv.Atoi(num)
	if err != nil || v < 1 {
		return 0, "", fmt.Errorf("migration %s: version must be a positive integer", name)
	}
	return v, label, nil
}

// Steps returns the schema files in version order.
func (r *Runner) Steps() ([]Step, error) {
	names, err := fs.Glob(r.src, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	steps := make([]Step, 0, len(names))
	seen := make(map[int]string, len(names))
	for _, name := range names {
		v, label, err := parseName(path.Base(name))
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[v]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, name, v)
		}
		seen[v] = name

		body, err := fs.ReadFile(r.src, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		steps = append(steps, Step{Version: v, Name: label, SQL: string(body)})
	}
	slices.SortFunc(steps, func(a, b Step) int { return a.Version - b.Version })
	return steps, nil
}

// Applied lists recorded steps, oldest first.
func (r *Runner) Applied() ([]Applied, error) {
	if _, err := r.db.Exec(ledgerDDL); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	rows, err := r.db.Query("SELECT version, name, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	var out []Applied
	for rows.Next() {
		var a Applied
		var at string
		if err := rows.Scan(&a.Version, &a.Name, &at); err != nil {
			return nil, err
		}
		a.AppliedAt, _ = time.Parse(time.RFC3339, at)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Version is the highest applied step, 0 for a fresh database.
func (r *Runner) Version() (int, error) {
	applied, err := r.Applied()
	if err != nil || len(applied) == 0 {
		return 0, err
	}
	return applied[len(applied)-1].Version, nil
}

// Check fails when the database was migrated by a newer build.
func (r *Runner) Check() error {
	_, err := r.pending()
	return err
}

func (r *Runner) pending() ([]Step, error) {
	steps, err := r.Steps()
	if err != nil {
		return nil, err
	}
	current, err := r.Version()
	if err != nil {
		return nil, err
	}
	latest := 0
	if len(steps) > 0 {
		latest = steps[len(steps)-1].Version
	}
	if current > latest {
		return nil, fmt.Errorf("database schema version %d is newer than this build supports (%d); upgrade shiftcal", current, latest)
	}
	return slices.DeleteFunc(steps, func(s Step) bool { return s.Version <= current }), nil
}

// Up applies pending steps, each in its own transaction, and returns the
// ones that were applied. On failure the steps before the failing one stay
// applied.
func (r *Runner) Up() ([]Step, error) {
	todo, err := r.pending()
	if err != nil {
		return nil, err
	}
	if len(todo) == 0 {
		logger.Debug("Schema up to date")
		return nil, nil
	}

	var done []Step
	for _, s := range todo {
		if err := r.apply(s); err != nil {
			return done, err
		}
		done = append(done, s)
		logger.Info("Applied migration", "version", s.Version, "name", s.Name)
	}
	return done, nil
}

func (r *Runner) apply(s Step) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: %w", s.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(s.SQL); err != nil {
		return fmt.Errorf("migration %d (%s): %w", s.Version, s.Name, err)
	}
	record := fmt.Sprintf("INSERT INTO schema_migrations (version, name, applied_at) VALUES (%s, %s, %s)", r.bind(1), r.bind(2), r.bind(3))
	if _, err := tx.Exec(record, s.Version, s.Name, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("migration %d: failed to record: %w", s.Version, err)
	}
	return tx.Commit()
}
