// Package shifts holds the shift editing commands. Every change goes
// through the scheduling engine so series scopes, validation and undo
// history behave the same as in the TUI.
package shifts

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/scheduler"
)

// session is a loaded scheduler plus the background failures it reported.
type session struct {
	sched *scheduler.Scheduler

	mu   sync.Mutex
	errs []error
}

func open(ctx *cli.Context) (*session, error) {
	s := &session{}
	sched, err := ctx.OpenScheduler(context.Background(), func(err error) {
		s.mu.Lock()
		s.errs = append(s.errs, err)
		s.mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	s.sched = sched
	return s, nil
}

// finish waits for in-flight saves and reports the ones that failed.
func (s *session) finish() error {
	s.sched.Wait()
	if err := s.sched.SaveSnapshot(); err != nil {
		logger.Warn("Failed to save calendar snapshot", "error", err)
	}
	s.sched.Close()

	if n := len(s.sched.Unsynced()); n > 0 {
		fmt.Printf("⚠ %d shift(s) not yet saved. Run '%s sync' to retry.\n", n, constants.AppName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}

// resolveID accepts a full id or an unambiguous prefix of one.
func (s *session) resolveID(id string) (string, error) {
	if _, ok := s.sched.Event(id); ok {
		return id, nil
	}
	var matches []string
	for _, e := range s.sched.Events() {
		if strings.HasPrefix(e.ID, id) {
			matches = append(matches, e.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("shift %s: %w", id, errors.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("shift id %q is ambiguous (%d matches)", id, len(matches))
}

// resolve answers a series prompt raised by a change with scope.
func (s *session) resolve(out scheduler.Outcome, err error, scope constants.Scope) (scheduler.Outcome, error) {
	if err != nil || out.Request == nil {
		return out, err
	}
	allowed := out.Request.Scopes()
	if scope == "" || !slices.Contains(allowed, scope) {
		_, _ = s.sched.ResolveModification(constants.ScopeCancel)
		names := make([]string, 0, len(allowed))
		for _, a := range allowed {
			if a != constants.ScopeCancel {
				names = append(names, string(a))
			}
		}
		return out, fmt.Errorf("shift belongs to a series of %d; pass --scope (%s)", out.Request.Members, strings.Join(names, ", "))
	}
	return s.sched.ResolveModification(scope)
}

func printOutcome(verb string, out scheduler.Outcome) {
	if !out.Committed {
		fmt.Println("No changes")
		return
	}
	fmt.Printf("✓ %s shift %s\n", verb, out.EventID)
	if out.Conflicts.HasConflicts() {
		fmt.Print(out.Conflicts.FormatReport())
	}
}
