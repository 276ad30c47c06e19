package storage

import (
	"context"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/models"
)

// Provider is the persistence collaborator behind the scheduling engine.
// Events returned by FetchEvents always carry FromDatabase and IsValidated.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Events
	FetchEvents(ctx context.Context, userID string, account constants.AccountType) ([]models.Event, error)
	// SaveEvent stores a new standalone event and returns its canonical id.
	SaveEvent(ctx context.Context, event models.Event, userID string) (string, error)
	// SaveRecurringEvents expands the defining event server side and returns
	// the recurrence id and the number of instances stored.
	SaveRecurringEvents(ctx context.Context, defining models.Event, userID string) (string, int, error)
	UpdateEvent(ctx context.Context, id string, event models.Event, userID string, account constants.AccountType) error
	DeleteEvent(ctx context.Context, id, userID string, account constants.AccountType, scope constants.Scope, recurrenceID string) error

	// Utils
	GetConfigPath() string
}
