package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/shiftcal/internal/backup"
	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/config"
	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/storage"
	"github.com/julianstephens/shiftcal/internal/storage/postgres"
	"github.com/julianstephens/shiftcal/internal/storage/sqlite"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting the existing sqlite database before initialization."`
	Source string `help:"Source database path or connection string to copy shifts from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	defer ctx.Close()

	if c.Force {
		if ctx.Config.Storage.Driver != config.DriverSQLite {
			return fmt.Errorf("--force is only supported for sqlite storage")
		}
		dbPath := ctx.Config.DBPath()
		if c.Source != "" {
			absSource, err := filepath.Abs(c.Source)
			absDB, dbErr := filepath.Abs(dbPath)
			if err == nil && dbErr == nil && absSource == absDB {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			saved, err := backup.NewManager(dbPath).Create()
			if err != nil {
				return fmt.Errorf("failed to back up existing database: %w", err)
			}
			fmt.Printf("Backed up existing database to: %s\n", saved)
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	store, err := ctx.Provider()
	if err != nil {
		return err
	}
	if err := store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized %s storage at: %s\n", constants.AppName, store.GetConfigPath())
	fmt.Printf("Config file: %s\n", ctx.ConfigPath)

	if c.Source != "" {
		fmt.Printf("Copying shifts from: %s\n", c.Source)
		n, err := copyShifts(context.Background(), c.Source, store, ctx.Config.UserID)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Printf("✓ Copied %d shifts\n", n)
	}
	return nil
}

func openSource(source string) (storage.Provider, error) {
	if strings.HasPrefix(source, "postgres://") || strings.HasPrefix(source, "postgresql://") {
		if _, err := postgres.ValidateConnString(source); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("PostgreSQL source connection string contains embedded credentials. Use environment variables or .pgpass instead")
			}
			return nil, err
		}
		return postgres.New(source), nil
	}
	return sqlite.NewStore(source), nil
}

// copyShifts copies every live event in source into dest. Series keep their
// recurrence id, so they stay grouped.
func copyShifts(ctx context.Context, source string, dest storage.Provider, userID string) (int, error) {
	src, err := openSource(source)
	if err != nil {
		return 0, err
	}
	if err := src.Load(); err != nil {
		return 0, fmt.Errorf("failed to load source database: %w", err)
	}
	defer src.Close()

	events, err := src.FetchEvents(ctx, userID, constants.AccountManager)
	if err != nil {
		return 0, err
	}
	for _, e := range events {
		if _, err := dest.SaveEvent(ctx, e, userID); err != nil {
			return 0, fmt.Errorf("failed to copy shift %s: %w", e.ID, err)
		}
	}
	return len(events), nil
}
