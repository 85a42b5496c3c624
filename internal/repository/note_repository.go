// Package repository implements the cached note repository on top of a
// flat key-value store.
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/internal/bus"
	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
	"github.com/anchored-notes/anchored-sync-service/pkg/logger"
	"github.com/anchored-notes/anchored-sync-service/pkg/timex"
	"github.com/anchored-notes/anchored-sync-service/pkg/util"
	"github.com/anchored-notes/anchored-sync-service/pkg/writequeue"
)

const casRetryLimit = 3

// NoteRepository caches all note buckets in memory and keeps the cache
// consistent with every persisted mutation. Writers for the same
// domain are serialized through the write queue; CompareAndSwap guards
// against writers outside this process.
type NoteRepository struct {
	store   domain.Store
	bus     *bus.Bus
	queue   *writequeue.Manager
	logger  *zap.Logger
	version string

	mu       sync.RWMutex
	loaded   bool
	buckets  map[string][]*domain.Note
	versions map[string]int64
	noteHome map[string]string // note id -> domain
}

// NewNoteRepository creates a repository. version is stamped into
// export envelopes.
func NewNoteRepository(store domain.Store, eventBus *bus.Bus, queue *writequeue.Manager, version string, lg *zap.Logger) *NoteRepository {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &NoteRepository{
		store:    store,
		bus:      eventBus,
		queue:    queue,
		logger:   lg,
		version:  version,
		buckets:  make(map[string][]*domain.Note),
		versions: make(map[string]int64),
		noteHome: make(map[string]string),
	}
}

// Load rebuilds the cache from the store. Domains come from the
// "_index" key when present; otherwise every non-reserved key whose
// value parses as a note array is treated as a domain bucket. A bucket
// that fails to parse degrades to empty instead of failing the load.
func (r *NoteRepository) Load(ctx context.Context) error {
	values, err := r.store.Get(ctx)
	if err != nil {
		return code.ErrorStorageWrite.WithDetails(err.Error())
	}

	buckets := make(map[string][]*domain.Note)
	versions := make(map[string]int64)
	noteHome := make(map[string]string)

	domains := r.indexedDomains(values)
	for _, key := range domains {
		value, ok := values[key]
		if !ok {
			continue
		}
		notes := r.decodeBucket(key, value.Data)
		buckets[key] = notes
		versions[key] = value.Version
		for _, n := range notes {
			if prev, dup := noteHome[n.ID]; dup {
				r.logger.Warn("duplicate note id across domains",
					zap.String(logger.FieldNoteID, n.ID),
					zap.String(logger.FieldDomain, key),
					zap.String("previousDomain", prev))
				continue
			}
			noteHome[n.ID] = key
		}
	}

	r.mu.Lock()
	r.buckets = buckets
	r.versions = versions
	r.noteHome = noteHome
	r.loaded = true
	r.mu.Unlock()

	r.logger.Info("note cache loaded",
		zap.Int("domains", len(buckets)),
		zap.Int(logger.FieldCount, len(noteHome)))
	return nil
}

// indexedDomains resolves the domain key list from the index bucket,
// falling back to shape detection for stores written before the index
// existed.
func (r *NoteRepository) indexedDomains(values map[string]domain.BucketValue) []string {
	if idx, ok := values[domain.IndexKey]; ok {
		var domains []string
		if err := sonic.Unmarshal(idx.Data, &domains); err == nil {
			return domains
		}
		r.logger.Warn("domain index is corrupt, falling back to shape scan")
	}

	var domains []string
	for key, value := range values {
		if domain.ReservedKeys[key] {
			continue
		}
		if looksLikeNoteBucket(value.Data) {
			domains = append(domains, key)
		}
	}
	sort.Strings(domains)
	return domains
}

// looksLikeNoteBucket reports whether data is an array whose elements
// carry note identity fields.
func looksLikeNoteBucket(data []byte) bool {
	var probe []map[string]interface{}
	if err := sonic.Unmarshal(data, &probe); err != nil {
		return false
	}
	if len(probe) == 0 {
		return true
	}
	first := probe[0]
	_, hasID := first["id"]
	_, hasDomain := first["domain"]
	return hasID && hasDomain
}

func (r *NoteRepository) decodeBucket(key string, data []byte) []*domain.Note {
	if len(data) == 0 {
		return nil
	}
	var notes []*domain.Note
	if err := sonic.Unmarshal(data, &notes); err != nil {
		r.logger.Warn("unreadable note bucket, treating as empty",
			zap.String(logger.FieldDomain, key),
			zap.Error(err))
		return nil
	}
	return notes
}

// Loaded reports whether Load has completed at least once.
func (r *NoteRepository) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// GetAll returns all live notes, newest first.
func (r *NoteRepository) GetAll(ctx context.Context) ([]*domain.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Note
	for _, notes := range r.buckets {
		for _, n := range notes {
			if !n.IsDeleted {
				out = append(out, n.Clone())
			}
		}
	}
	sortNotes(out)
	return out, nil
}

// GetByID returns one live note by id.
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.findLocked(id)
	if n == nil || n.IsDeleted {
		return nil, code.ErrorNoteNotFound
	}
	return n.Clone(), nil
}

// GetByDomain returns the live notes of one domain, newest first.
func (r *NoteRepository) GetByDomain(ctx context.Context, d string) ([]*domain.Note, error) {
	key := domain.NormalizeDomain(d)
	if key == "" {
		return nil, code.ErrorInvalidDomain
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Note
	for _, n := range r.buckets[key] {
		if !n.IsDeleted {
			out = append(out, n.Clone())
		}
	}
	sortNotes(out)
	return out, nil
}

// GetByURL returns the live notes whose URL matches exactly, newest
// first.
func (r *NoteRepository) GetByURL(ctx context.Context, url string) ([]*domain.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Note
	for _, notes := range r.buckets {
		for _, n := range notes {
			if !n.IsDeleted && n.URL == url {
				out = append(out, n.Clone())
			}
		}
	}
	sortNotes(out)
	return out, nil
}

// Domains returns the known domain bucket names, sorted.
func (r *NoteRepository) Domains(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.buckets))
	for key := range r.buckets {
		out = append(out, key)
	}
	sort.Strings(out)
	return out, nil
}

// findLocked returns the cached note for an id. Caller holds the lock.
func (r *NoteRepository) findLocked(id string) *domain.Note {
	key, ok := r.noteHome[id]
	if !ok {
		return nil
	}
	for _, n := range r.buckets[key] {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Save creates or updates a note. A missing id gets a generated UUID;
// UpdatedAt is stamped strictly above the previous persisted value so
// last-write-wins comparisons always observe the mutation.
func (r *NoteRepository) Save(ctx context.Context, note *domain.Note) (*domain.Note, error) {
	if note == nil || domain.NormalizeDomain(note.Domain) == "" {
		return nil, code.ErrorInvalidNote.WithDetails("domain is required")
	}

	stored := note.Clone()
	stored.Domain = domain.NormalizeDomain(stored.Domain)
	stored.Tags = domain.NormalizeTags(stored.Tags)

	created := false
	if stored.ID == "" {
		stored.ID = util.NewNoteID()
		created = true
	}

	r.mu.RLock()
	prevDomain, known := r.noteHome[stored.ID]
	var prev *domain.Note
	if known {
		if p := r.findLocked(stored.ID); p != nil {
			prev = p.Clone()
		}
	}
	r.mu.RUnlock()

	if !known {
		created = true
	}

	now := timex.Now()
	if stored.CreatedAt.IsZero() {
		if prev != nil && !prev.CreatedAt.IsZero() {
			stored.CreatedAt = prev.CreatedAt
		} else {
			stored.CreatedAt = now
		}
	}
	stored.UpdatedAt = now
	if prev != nil && !stored.UpdatedAt.After(prev.UpdatedAt) {
		stored.UpdatedAt = prev.UpdatedAt.Add(time.Millisecond)
	}
	stored.IsDeleted = false
	stored.DeletedAt = nil

	// a note that changed domain leaves its old bucket first
	if known && prevDomain != stored.Domain {
		if err := r.mutateBucket(ctx, prevDomain, func(notes []*domain.Note) ([]*domain.Note, error) {
			return removeNote(notes, stored.ID), nil
		}); err != nil {
			return nil, err
		}
	}

	err := r.mutateBucket(ctx, stored.Domain, func(notes []*domain.Note) ([]*domain.Note, error) {
		return upsertNote(notes, stored.Clone()), nil
	})
	if err != nil {
		return nil, err
	}

	eventType := domain.EventNoteUpdated
	if created {
		eventType = domain.EventNoteCreated
	}
	r.bus.Emit(eventType, stored.Clone())

	return stored, nil
}

// Delete removes one note by id and returns the removed copy.
func (r *NoteRepository) Delete(ctx context.Context, id string) (*domain.Note, error) {
	r.mu.RLock()
	key, ok := r.noteHome[id]
	var existing *domain.Note
	if ok {
		existing = r.findLocked(id)
	}
	r.mu.RUnlock()

	if existing == nil || existing.IsDeleted {
		return nil, code.ErrorNoteNotFound
	}
	removed := existing.Clone()

	err := r.mutateBucket(ctx, key, func(notes []*domain.Note) ([]*domain.Note, error) {
		return removeNote(notes, id), nil
	})
	if err != nil {
		return nil, err
	}

	r.bus.Emit(domain.EventNoteDeleted, removed)
	return removed, nil
}

// DeleteByDomain drops a whole domain bucket and returns how many
// notes it held.
func (r *NoteRepository) DeleteByDomain(ctx context.Context, d string) (int, error) {
	key := domain.NormalizeDomain(d)
	if key == "" {
		return 0, code.ErrorInvalidDomain
	}

	count := 0
	err := r.execute(ctx, key, func() error {
		r.mu.RLock()
		notes, ok := r.buckets[key]
		r.mu.RUnlock()
		if !ok {
			return nil
		}
		count = len(notes)

		if err := r.store.Remove(ctx, key); err != nil {
			return code.ErrorStorageWrite.WithDetails(err.Error())
		}

		r.mu.Lock()
		for _, n := range notes {
			delete(r.noteHome, n.ID)
		}
		delete(r.buckets, key)
		delete(r.versions, key)
		r.mu.Unlock()

		return r.persistIndex(ctx)
	})
	if err != nil {
		return 0, err
	}

	r.bus.Emit(domain.EventDomainDeleted, &domain.DomainEventPayload{Domain: key, Count: count})
	return count, nil
}

// Export builds the export envelope. A repository that was never
// loaded loads first; an empty store yields an envelope holding only
// the header.
func (r *NoteRepository) Export(ctx context.Context, source string, domains ...string) (*domain.Envelope, error) {
	if !r.Loaded() {
		if err := r.Load(ctx); err != nil {
			return nil, err
		}
	}

	wanted := map[string]bool{}
	for _, d := range domains {
		wanted[domain.NormalizeDomain(d)] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	env := &domain.Envelope{
		Meta: domain.ExportMeta{
			Version:    r.version,
			ExportedAt: timex.Now(),
			Source:     source,
			Format:     domain.EnvelopeFormat,
		},
		Domains: make(map[string][]*domain.Note),
	}

	for key, notes := range r.buckets {
		if len(wanted) > 0 && !wanted[key] {
			continue
		}
		exported := []*domain.Note{}
		for _, n := range notes {
			if n.IsDeleted {
				continue
			}
			exported = append(exported, n.ForExport())
		}
		if len(exported) > 0 {
			env.Domains[key] = exported
		}
	}
	return env, nil
}

// MergeBucket merges incoming notes into one domain with per-id
// last-write-wins. Incoming notes get a fresh UpdatedAt so the import
// wins subsequent comparisons; soft delete flags are cleared.
func (r *NoteRepository) MergeBucket(ctx context.Context, d string, incoming []*domain.Note) (*domain.MergeResult, error) {
	key := domain.NormalizeDomain(d)
	if key == "" {
		return nil, code.ErrorInvalidDomain
	}

	result := &domain.MergeResult{Domain: key}

	err := r.mutateBucket(ctx, key, func(notes []*domain.Note) ([]*domain.Note, error) {
		merged := make([]*domain.Note, len(notes))
		copy(merged, notes)

		byID := make(map[string]int, len(merged))
		for i, n := range merged {
			byID[n.ID] = i
		}

		// reset counts: the mutation can rerun after a version conflict
		result.Imported, result.Updated, result.Skipped = 0, 0, 0

		now := timex.Now()
		for _, in := range incoming {
			if in == nil || in.ID == "" {
				result.Skipped++
				continue
			}

			stored := in.Clone()
			stored.Domain = key
			if stored.CreatedAt.IsZero() {
				stored.CreatedAt = now
			}
			stored.UpdatedAt = now
			stored.IsDeleted = false
			stored.DeletedAt = nil
			stored.SyncPending = false

			if i, ok := byID[stored.ID]; ok {
				if !stored.UpdatedAt.After(merged[i].UpdatedAt) {
					stored.UpdatedAt = merged[i].UpdatedAt.Add(time.Millisecond)
				}
				merged[i] = stored
				result.Updated++
			} else {
				byID[stored.ID] = len(merged)
				merged = append(merged, stored)
				result.Imported++
			}
		}
		return merged, nil
	})
	if err != nil {
		return nil, err
	}

	// duplicate ids within one import: the later occurrence replaced
	// the earlier in place, so adjust the counts
	seen := map[string]int{}
	for _, in := range incoming {
		if in != nil && in.ID != "" {
			seen[in.ID]++
		}
	}
	for _, c := range seen {
		if c > 1 {
			result.Updated -= c - 1
			result.Skipped += c - 1
		}
	}

	return result, nil
}

// Purge physically drops soft-deleted notes older than the cutoff.
func (r *NoteRepository) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	r.mu.RLock()
	keys := make([]string, 0, len(r.buckets))
	for key := range r.buckets {
		keys = append(keys, key)
	}
	r.mu.RUnlock()

	total := 0
	for _, key := range keys {
		removed := 0
		err := r.mutateBucket(ctx, key, func(notes []*domain.Note) ([]*domain.Note, error) {
			removed = 0
			kept := make([]*domain.Note, 0, len(notes))
			for _, n := range notes {
				if n.IsDeleted && n.DeletedAt != nil && n.DeletedAt.Time().Before(olderThan) {
					removed++
					continue
				}
				kept = append(kept, n)
			}
			return kept, nil
		})
		if err != nil {
			return total, err
		}
		total += removed
	}
	return total, nil
}

// execute runs fn serialized against other writers of the same bucket.
func (r *NoteRepository) execute(ctx context.Context, key string, fn func() error) error {
	if r.queue == nil {
		return fn()
	}
	return r.queue.Execute(ctx, key, fn)
}

// mutateBucket applies fn to a fresh copy of one bucket and persists
// the result with CompareAndSwap, retrying against external writers.
// The cache and the domain index are updated after a successful swap.
func (r *NoteRepository) mutateBucket(ctx context.Context, key string, fn func([]*domain.Note) ([]*domain.Note, error)) error {
	return r.execute(ctx, key, func() error {
		for attempt := 0; attempt < casRetryLimit; attempt++ {
			r.mu.RLock()
			current := r.buckets[key]
			version := r.versions[key]
			r.mu.RUnlock()

			next, err := fn(current)
			if err != nil {
				return err
			}

			data, err := sonic.Marshal(next)
			if err != nil {
				return code.ErrorStorageWrite.WithDetails(err.Error())
			}

			newVersion, err := r.store.CompareAndSwap(ctx, key, data, version)
			if err == nil {
				r.commitBucket(key, next, newVersion)
				return r.persistIndex(ctx)
			}
			if !errors.Is(err, domain.ErrVersionConflict) {
				return code.ErrorStorageWrite.WithDetails(err.Error())
			}

			r.logger.Warn("bucket version conflict, reloading",
				zap.String(logger.FieldDomain, key),
				zap.Int("attempt", attempt+1))
			if err := r.reloadBucket(ctx, key); err != nil {
				return err
			}
		}
		return code.ErrorStorageConflict.WithDetails(key)
	})
}

// commitBucket replaces one cached bucket. Empty buckets stay cached
// with their version so follow-up swaps see the right expectation.
func (r *NoteRepository) commitBucket(key string, notes []*domain.Note, version int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.buckets[key] {
		if r.noteHome[n.ID] == key {
			delete(r.noteHome, n.ID)
		}
	}
	r.buckets[key] = notes
	r.versions[key] = version
	for _, n := range notes {
		r.noteHome[n.ID] = key
	}
}

// reloadBucket refreshes one bucket from the store after a conflict.
func (r *NoteRepository) reloadBucket(ctx context.Context, key string) error {
	values, err := r.store.Get(ctx, key)
	if err != nil {
		return code.ErrorStorageWrite.WithDetails(err.Error())
	}
	value, ok := values[key]
	if !ok {
		r.commitBucket(key, nil, 0)
		return nil
	}
	r.commitBucket(key, r.decodeBucket(key, value.Data), value.Version)
	return nil
}

// persistIndex writes the sorted domain list to the index key. The
// index is derived data; a plain overwrite is fine.
func (r *NoteRepository) persistIndex(ctx context.Context) error {
	r.mu.RLock()
	domains := make([]string, 0, len(r.buckets))
	for key := range r.buckets {
		domains = append(domains, key)
	}
	r.mu.RUnlock()
	sort.Strings(domains)

	data, err := sonic.Marshal(domains)
	if err != nil {
		return code.ErrorStorageWrite.WithDetails(err.Error())
	}
	if _, err := r.store.Set(ctx, domain.IndexKey, data); err != nil {
		return code.ErrorStorageWrite.WithDetails(err.Error())
	}
	return nil
}

func upsertNote(notes []*domain.Note, note *domain.Note) []*domain.Note {
	out := make([]*domain.Note, len(notes))
	copy(out, notes)
	for i, n := range out {
		if n.ID == note.ID {
			out[i] = note
			return out
		}
	}
	return append(out, note)
}

func removeNote(notes []*domain.Note, id string) []*domain.Note {
	out := make([]*domain.Note, 0, len(notes))
	for _, n := range notes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}

// sortNotes orders newest first, id ascending on equal timestamps.
func sortNotes(notes []*domain.Note) {
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].UpdatedAt.UnixNano() == notes[j].UpdatedAt.UnixNano() {
			return notes[i].ID < notes[j].ID
		}
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
}
