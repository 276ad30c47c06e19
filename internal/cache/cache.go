// Package cache keeps the last loaded event set on disk so the calendar
// can render before the backend answers.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/models"
)

const (
	snapshotVersion = 1
	fileName        = "snapshot.json"
)

// Snapshot is the persisted state of one user's calendar.
type Snapshot struct {
	Version int            `json:"version"`
	UserID  string         `json:"user_id"`
	SavedAt time.Time      `json:"saved_at"`
	Events  []models.Event `json:"events"`
	// Pending holds ids of events whose latest local edit has not been
	// written to the backend.
	Pending []string `json:"pending,omitempty"`
}

// Cache reads and writes snapshots under a directory.
type Cache struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) path() string {
	return filepath.Join(c.dir, fileName)
}

// Save replaces the snapshot for userID.
func (c *Cache) Save(userID string, events []models.Event, pending []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	snap := Snapshot{
		Version: snapshotVersion,
		UserID:  userID,
		SavedAt: time.Now(),
		Events:  models.CloneEvents(events),
		Pending: pending,
	}
	for i := range snap.Events {
		snap.Events[i].ClearTransient()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	// write then rename so readers never see a partial file
	tmp := c.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, c.path()); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot for userID. ok is false when there is no
// snapshot or it belongs to another user; a foreign snapshot is removed.
func (c *Cache) Load(userID string) (Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path())
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn("Discarding unreadable snapshot", "path", c.path(), "error", err)
		_ = os.Remove(c.path())
		return Snapshot{}, false, nil
	}

	if snap.UserID != userID || snap.Version != snapshotVersion {
		logger.Info("Discarding snapshot for a different user", "cached", snap.UserID, "current", userID)
		if err := os.Remove(c.path()); err != nil && !os.IsNotExist(err) {
			return Snapshot{}, false, fmt.Errorf("failed to remove snapshot: %w", err)
		}
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Clear removes any snapshot.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
