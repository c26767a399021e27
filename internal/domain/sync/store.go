package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is a physical retail unit identified by a registration code known to
// both the source and the target system. A store not marked active must never
// be included in a run.
type Store struct {
	// ID is the unique identifier of the store
	ID uuid.UUID
	// Registration is the store key both external systems understand
	Registration string
	// Name is the administrator-assigned display name
	Name string
	// Active indicates whether the store participates in sync runs
	Active bool
	// CreatedAt is when the store was registered
	CreatedAt time.Time
	// UpdatedAt is when the store was last modified
	UpdatedAt time.Time
}

// StoreRepository provides read access to the store registry. The engine
// never mutates stores; administration happens elsewhere.
type StoreRepository interface {
	// FindByID finds a store by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Store, error)

	// FindByIDs finds the stores with the given IDs, preserving no particular order
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Store, error)

	// FindAllActive returns every store marked active
	FindAllActive(ctx context.Context) ([]Store, error)
}
