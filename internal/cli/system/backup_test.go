package system

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/julianstephens/shiftcal/internal/backup"
	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/config"
	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/storage/sqlite"
)

func newSQLiteContext(t *testing.T) *cli.Context {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), constants.ConfigFileName))
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	store := sqlite.NewStore(cfg.DBPath())
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &cli.Context{Config: cfg}
}

func TestBackupRequiresSQLite(t *testing.T) {
	ctx := newSQLiteContext(t)
	ctx.Config.Storage.Driver = config.DriverMemory

	if err := (&BackupCreateCmd{}).Run(ctx); err == nil {
		t.Fatal("expected error for non-sqlite driver")
	}
}

func TestBackupCreateAndRestoreByName(t *testing.T) {
	ctx := newSQLiteContext(t)

	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("create: %v", err)
	}
	backups, err := backup.NewManager(ctx.Config.DBPath()).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("got %d backups, want 1", len(backups))
	}

	restore := &BackupRestoreCmd{File: filepath.Base(backups[0].Path)}
	if err := restore.Run(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := os.Stat(ctx.Config.DBPath()); err != nil {
		t.Errorf("database missing after restore: %v", err)
	}
}

func TestAutomaticBackupSkipsOtherDrivers(t *testing.T) {
	ctx := newSQLiteContext(t)
	ctx.Config.Storage.Driver = config.DriverMemory
	ctx.PerformAutomaticBackup()

	dir := backup.NewManager(ctx.Config.DBPath()).Dir()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("backup dir should not exist, stat err = %v", err)
	}
}
