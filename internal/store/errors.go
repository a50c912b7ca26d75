package store

import (
	"errors"
	"fmt"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
)

var (
	// ErrUnknownSlot is matched by *UnknownSlotError.
	ErrUnknownSlot = errors.New("unknown slot")

	// ErrFormat is matched by *FormatError.
	ErrFormat = errors.New("malformed belief data")

	// ErrConflict is returned when a versioned update keeps losing races.
	ErrConflict = errors.New("belief record changed concurrently")

	// ErrLocked is returned when another process holds the store's lock.
	ErrLocked = errors.New("belief store is locked by another process")
)

// UnknownSlotError reports a lookup for a key the store does not hold.
type UnknownSlotError struct {
	Key model.SlotKey
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("unknown slot %s", e.Key)
}

func (e *UnknownSlotError) Unwrap() error { return ErrUnknownSlot }

// FormatError reports belief data that fails to parse or violates the
// per-record schema.
type FormatError struct {
	Source string
	Key    string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "malformed belief data"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" at %q", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func (e *FormatError) Unwrap() error { return e.Err }
