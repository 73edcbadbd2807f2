// Package catalog tracks registered indexes by name.
//
// The catalog records which indexes exist, the column they cover and where
// their artifacts live. Index creation goes through the catalog so that
// replace semantics are enforced in one place.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrIndexExists is returned by Create when an index with the same name is
// already registered and replace was not requested.
var ErrIndexExists = errors.New("index already exists")

// ErrIndexNotFound is returned when the named index is not registered.
var ErrIndexNotFound = errors.New("index not found")

// Entry describes one registered index.
type Entry struct {
	// Name is the unique index name.
	Name string `json:"name"`

	// Column is the vector column the index covers.
	Column string `json:"column"`

	// MetricType is the textual metric name of the resolved pipeline.
	MetricType string `json:"metric_type"`

	// ArtifactPrefix is the blobstore prefix holding the index artifacts.
	ArtifactPrefix string `json:"artifact_prefix"`

	// CreatedAt is the registration time in UTC.
	CreatedAt time.Time `json:"created_at"`
}

// Catalog stores index registrations.
// Implementations must be safe for concurrent use.
type Catalog interface {
	// Create registers the entry. When replace is false and an entry with
	// the same name already exists, Create returns ErrIndexExists. When
	// replace is true an existing entry is overwritten.
	Create(ctx context.Context, entry Entry, replace bool) error

	// Get returns the entry with the given name or ErrIndexNotFound.
	Get(ctx context.Context, name string) (Entry, error)

	// Delete removes the entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all entries sorted by name.
	List(ctx context.Context) ([]Entry, error)
}
