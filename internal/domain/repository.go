package domain

import (
	"context"
	"time"

	"github.com/anchored-notes/anchored-sync-service/pkg/timex"
)

// NoteRepository is the note storage contract. Implementations load a
// full snapshot of the store into a cache and keep it consistent with
// every write.
type NoteRepository interface {
	// Load reads the whole store into the cache. Unreadable buckets
	// degrade to empty instead of failing the load.
	Load(ctx context.Context) error

	// Loaded reports whether Load has completed at least once.
	Loaded() bool

	// GetAll returns all live notes, newest first.
	GetAll(ctx context.Context) ([]*Note, error)

	// GetByID returns one note by id.
	GetByID(ctx context.Context, id string) (*Note, error)

	// GetByDomain returns the live notes of one domain, newest first.
	GetByDomain(ctx context.Context, domain string) ([]*Note, error)

	// GetByURL returns the live notes whose URL matches exactly.
	GetByURL(ctx context.Context, url string) ([]*Note, error)

	// Save creates or updates a note and returns the stored copy.
	Save(ctx context.Context, note *Note) (*Note, error)

	// Delete removes one note by id.
	Delete(ctx context.Context, id string) (*Note, error)

	// DeleteByDomain removes a whole domain bucket and returns the
	// number of notes it held.
	DeleteByDomain(ctx context.Context, domain string) (int, error)

	// Export builds the export envelope for all domains, or only the
	// given ones when domains is non-empty.
	Export(ctx context.Context, source string, domains ...string) (*Envelope, error)

	// MergeBucket merges incoming notes into one domain with
	// last-write-wins per note id. Returns per-domain merge counts.
	MergeBucket(ctx context.Context, domain string, incoming []*Note) (*MergeResult, error)

	// Purge physically drops soft-deleted notes older than the cutoff
	// and returns how many were removed.
	Purge(ctx context.Context, olderThan time.Time) (int, error)

	// Domains returns the known domain bucket names.
	Domains(ctx context.Context) ([]string, error)
}

// MergeResult counts the outcome of one bucket merge.
type MergeResult struct {
	Domain   string `json:"domain"`
	Imported int    `json:"imported"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
}

// ImportResult aggregates merge results for one import run.
type ImportResult struct {
	Imported int               `json:"imported"`
	Updated  int               `json:"updated"`
	Skipped  int               `json:"skipped"`
	Domains  map[string]string `json:"domains"`
}

// MigrationReport describes one migration run or check.
type MigrationReport struct {
	Needed      bool       `json:"needed"`
	FromVersion string     `json:"fromVersion,omitempty"`
	ToVersion   string     `json:"toVersion,omitempty"`
	NoteCount   int        `json:"noteCount"`
	Domains     []string   `json:"domains,omitempty"`
	Error       string     `json:"error,omitempty"`
	Timestamp   timex.Time `json:"timestamp"`
}
