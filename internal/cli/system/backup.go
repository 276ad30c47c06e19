package system

import (
	"fmt"
	"path/filepath"

	"github.com/julianstephens/shiftcal/internal/backup"
	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/config"
)

func backupManager(ctx *cli.Context) (*backup.Manager, error) {
	if ctx.Config.Storage.Driver != config.DriverSQLite {
		return nil, fmt.Errorf("backups are only supported for sqlite storage; use your %s tooling instead", ctx.Config.Storage.Driver)
	}
	return backup.NewManager(ctx.Config.DBPath()), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path, err := mgr.Create()
	if err != nil {
		return err
	}
	fmt.Printf("✓ Backup created: %s\n", path)
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Printf("No backups found in %s\n", mgr.Dir())
		return nil
	}
	fmt.Printf("Backups in %s:\n", mgr.Dir())
	for _, b := range backups {
		fmt.Printf("  %s  %s  %.1f KB\n", b.Created.Format("2006-01-02 15:04:05"), filepath.Base(b.Path), float64(b.Size)/1024)
	}
	return nil
}

type BackupRestoreCmd struct {
	File string `arg:"" help:"Backup file name (in the backups directory) or path."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path := c.File
	if filepath.Dir(path) == "." {
		path = filepath.Join(mgr.Dir(), path)
	}
	ctx.Close()

	saved, err := mgr.Restore(path)
	if err != nil {
		return err
	}
	if saved != "" {
		fmt.Printf("Saved current database to: %s\n", saved)
	}
	fmt.Printf("✓ Restored database from %s\n", filepath.Base(path))
	return nil
}
