package syncer

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// ErrLocked is returned when another shiftcal process owns the sync lock.
var ErrLocked = errors.New("another shiftcal process is syncing")

// Lock is a PID lockfile that keeps two processes from syncing the same
// calendar at once.
type Lock struct {
	path string
}

// AcquireLock takes the lock at path. A lockfile left by a process that is
// no longer running, or that is not shiftcal, is taken over.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	if holder, ok := lockHolder(path); ok {
		return nil, fmt.Errorf("%w (pid %d)", ErrLocked, holder)
	}

	pid := strconv.Itoa(getpidFunc())
	if err := os.WriteFile(path, []byte(pid+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write lockfile: %w", err)
	}
	return &Lock{path: path}, nil
}

// lockHolder returns the pid of a live shiftcal process named in the
// lockfile, if any.
func lockHolder(path string) (int, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		logger.Warn("Ignoring malformed sync lockfile", "path", path)
		return 0, false
	}
	if pid == getpidFunc() {
		return 0, false
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		logger.Debug("Taking over stale sync lock", "pid", pid)
		return 0, false
	}
	if !strings.HasPrefix(process.Executable(), constants.AppName) {
		logger.Debug("Sync lock pid belongs to another program", "pid", pid, "executable", process.Executable())
		return 0, false
	}
	return pid, true
}

// Release removes the lockfile if this process still owns it.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	content, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if strings.TrimSpace(string(content)) != strconv.Itoa(getpidFunc()) {
		return nil
	}
	return os.Remove(l.path)
}
