package system

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/syncer"
	"github.com/julianstephens/shiftcal/internal/tui"
)

type TuiCmd struct {
	NoSync bool `help:"Disable background sync while the TUI runs."`
}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	defer ctx.Close()

	errs := make(chan error, 16)
	sched, err := ctx.OpenScheduler(context.Background(), func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer sched.Close()
	ctx.PerformAutomaticBackup()

	opts := tui.Options{Location: ctx.Location(), Errors: errs}

	if !c.NoSync {
		lock, err := syncer.AcquireLock(ctx.Config.LockPath())
		switch {
		case errors.Is(err, syncer.ErrLocked):
			logger.Info("Background sync disabled", "reason", err)
		case err != nil:
			return err
		default:
			defer lock.Release()
			s := syncer.New(sched, ctx.Config.SyncSpec, ctx.Location())
			if err := s.Start(); err != nil {
				return err
			}
			defer s.Stop()
			opts.Sync = s
		}
	}

	p := tea.NewProgram(tui.NewModel(sched, opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	sched.Wait()
	if err := sched.SaveSnapshot(); err != nil {
		logger.Warn("Failed to save calendar snapshot", "error", err)
	}
	if n := len(sched.Unsynced()); n > 0 {
		fmt.Printf("⚠ %d shift(s) not yet saved. Run '%s sync' to retry.\n", n, constants.AppName)
	}
	return nil
}
