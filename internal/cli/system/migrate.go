package system

import (
	"fmt"

	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/config"
)

// MigrateCmd applies pending schema migrations to an existing database.
type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	defer ctx.Close()
	switch ctx.Config.Storage.Driver {
	case config.DriverSQLite, config.DriverPostgres:
	default:
		fmt.Printf("ℹ %s storage has no schema to migrate\n", ctx.Config.Storage.Driver)
		return nil
	}

	store, err := ctx.Provider()
	if err != nil {
		return err
	}
	if err := store.Init(); err != nil {
		return err
	}
	fmt.Printf("✓ Schema is up to date at: %s\n", store.GetConfigPath())
	return nil
}
