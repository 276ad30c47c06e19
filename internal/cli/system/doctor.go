package system

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/shiftcal/internal/cache"
	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/config"
	"github.com/julianstephens/shiftcal/internal/keyring"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/storage"
	"github.com/julianstephens/shiftcal/internal/syncer"
	"github.com/julianstephens/shiftcal/internal/validation"
)

type DoctorCmd struct{}

type check struct {
	name string
	run  func() error
	// warn downgrades a failure to a warning.
	warn bool
	// needsDB skips the check when storage is unreachable.
	needsDB bool
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	defer ctx.Close()
	fmt.Println("Running diagnostics...")
	fmt.Println()

	var store storage.Provider
	checks := []check{
		{name: "Config valid", run: ctx.Config.Validate},
		{name: "Sync schedule", run: func() error { return syncer.ValidateSpec(ctx.Config.SyncSpec) }},
		{name: "Clock/timezone", run: func() error { return checkClockTimezone(ctx.Config.Timezone) }},
		{name: "OS keyring", run: checkKeyring(ctx.Config), warn: true},
		{name: "Database reachable", run: func() error {
			var err error
			store, err = ctx.LoadProvider()
			return err
		}},
		{name: "Snapshot cache", run: func() error {
			_, _, err := cache.New(ctx.Config.CacheDir()).Load(ctx.Config.UserID)
			return err
		}, warn: true},
		{name: "Data validation", needsDB: true, run: func() error { return checkValidation(ctx, store) }},
	}

	hasError := false
	for _, c := range checks {
		if c.needsDB && store == nil {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run()
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case c.warn:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	if p := logger.Path(); p != "" {
		fmt.Printf("\nLog file: %s\n", p)
	}
	fmt.Println()
	if hasError {
		fmt.Println("Some checks failed.")
		return fmt.Errorf("diagnostics failed")
	}
	fmt.Println("All checks passed.")
	return nil
}

func checkClockTimezone(tz string) error {
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("cannot load timezone %q: %w", tz, err)
	}
	now := time.Now()
	if now.Year() < 2020 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkKeyring(cfg *config.Config) func() error {
	return func() error {
		needsKeyring := cfg.Storage.Driver == config.DriverCalDAV ||
			(cfg.Storage.Driver == config.DriverPostgres && cfg.Storage.Postgres == "")
		if !keyring.IsAvailable() {
			if needsKeyring {
				return keyring.ErrKeyringUnavailable
			}
			return fmt.Errorf("%w (not needed for %s storage)", keyring.ErrKeyringUnavailable, cfg.Storage.Driver)
		}
		return nil
	}
}

func checkValidation(ctx *cli.Context, store storage.Provider) error {
	events, err := store.FetchEvents(context.Background(), ctx.Config.UserID, ctx.Config.AccountType)
	if err != nil {
		return err
	}
	result := validation.New(ctx.Config.MaxDailyHours).ValidateEvents(events)
	if result.HasConflicts() {
		return &validation.ConflictError{Result: result}
	}
	return nil
}
