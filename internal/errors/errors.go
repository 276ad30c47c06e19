package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/shiftcal/internal/logger"
)

// Error taxonomy shared by the engine, storage providers and the CLI.
var (
	// ErrValidation marks a change that fails local invariants (end <= start,
	// missing required field). It never reaches persistence.
	ErrValidation = stderrors.New("validation failed")
	// ErrConflict marks a change the backing store rejected for overlapping constraints.
	ErrConflict = stderrors.New("scheduling conflict")
	// ErrPersistence wraps transport or server failures from a storage provider.
	ErrPersistence = stderrors.New("persistence failed")
	// ErrPendingModification is returned when input targets an event still
	// awaiting a recurring-modification decision.
	ErrPendingModification = stderrors.New("event has a pending modification")
	ErrNotFound            = stderrors.New("not found")
	ErrNotInitialized      = stderrors.New("storage not initialized, run 'shiftcal init' first")
)

// Is, As, New and Join re-export the standard helpers so callers only import one errors package.
var (
	Is   = stderrors.Is
	As   = stderrors.As
	New  = stderrors.New
	Join = stderrors.Join
)

// Validationf builds an ErrValidation-wrapped error.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Persistence wraps err as a persistence failure for op.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
