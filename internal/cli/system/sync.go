package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/syncer"
)

// SyncCmd retries shifts a previous session could not save and refreshes
// the local snapshot.
type SyncCmd struct{}

func (c *SyncCmd) Run(ctx *cli.Context) error {
	defer ctx.Close()

	lock, err := syncer.AcquireLock(ctx.Config.LockPath())
	if err != nil {
		if errors.Is(err, syncer.ErrLocked) {
			return fmt.Errorf("%w; it will sync on its own", err)
		}
		return err
	}
	defer lock.Release()

	sched, err := ctx.OpenScheduler(context.Background(), nil)
	if err != nil {
		return err
	}
	defer sched.Close()

	pending := len(sched.Unsynced())
	res := syncer.New(sched, ctx.Config.SyncSpec, ctx.Location()).Run(context.Background())
	if res.Err != nil {
		return res.Err
	}
	fmt.Printf("✓ Synced %d of %d pending shifts\n", res.Pushed, pending)
	return nil
}
