// Package store provides durable keyed access to belief records, backed by
// either the JSON belief file or SQLite.
package store

import (
	"context"
	"fmt"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// ListParams filters List results.
type ListParams struct {
	Service string
	Limit   int // 0 means no limit
}

// Store defines the belief store interface. Implementations are not safe for
// concurrent use within a process; cross-process writers are serialized by
// the backend (file lock or version check).
type Store interface {
	// Get returns a copy of the record for key, or an *UnknownSlotError.
	Get(ctx context.Context, key model.SlotKey) (*model.BeliefRecord, error)

	// Update folds one observation into the key's Beta counters and returns
	// the recomputed p_hat. The discrete prior is not touched.
	Update(ctx context.Context, obs model.Observation) (float64, error)

	// Replace discards the current mapping and stores recs in its place.
	Replace(ctx context.Context, recs []*model.BeliefRecord) error

	// List returns records ordered by service then hour.
	List(ctx context.Context, p ListParams) ([]*model.BeliefRecord, error)

	// Save persists the current mapping.
	Save(ctx context.Context) error

	// Close releases the store.
	Close() error
}

// Open opens the store for the given backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendJSON, "":
		return OpenJSON(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	}
	return nil, fmt.Errorf("unknown store backend %q (valid: %s, %s)", backend, BackendJSON, BackendSQLite)
}

// Create opens the store for a full rewrite with Replace. Unlike Open, the
// JSON backend does not load the existing file.
func Create(backend, path string) (Store, error) {
	switch backend {
	case BackendJSON, "":
		return CreateJSON(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	}
	return nil, fmt.Errorf("unknown store backend %q (valid: %s, %s)", backend, BackendJSON, BackendSQLite)
}
