// Package localfs persists the store as a single JSON file. Writes go
// through a temp file plus rename so a crash never leaves a half
// written store behind.
package localfs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/pkg/fileurl"
)

// Config local file store configuration
type Config struct {
	// SavePath store file path
	SavePath string
}

type fileEntry struct {
	Value   json.RawMessage `json:"value"`
	Version int64           `json:"version"`
}

// Store holds the file contents in memory and flushes on every write.
type Store struct {
	mu      sync.RWMutex
	path    string
	entries map[string]fileEntry
	logger  *zap.Logger
}

// NewStore opens or creates the store file.
func NewStore(cfg *Config, logger *zap.Logger) (*Store, error) {
	if cfg == nil || cfg.SavePath == "" {
		return nil, errors.New("localfs: save path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := fileurl.CreatePath(cfg.SavePath, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "localfs: create store directory")
	}

	s := &Store{
		path:    cfg.SavePath,
		entries: make(map[string]fileEntry),
		logger:  logger,
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "localfs: read store file")
	}
	if len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, &s.entries); err != nil {
		return errors.Wrap(err, "localfs: store file is corrupt")
	}
	s.logger.Debug("loaded store file",
		zap.String("path", s.path),
		zap.Int("keys", len(s.entries)))
	return nil
}

// flush writes the whole map atomically. Caller holds the write lock.
func (s *Store) flush() error {
	data, err := sonic.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "localfs: marshal store")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".store-*.tmp")
	if err != nil {
		return errors.Wrap(err, "localfs: create temp file")
	}
	tmpName := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "localfs: write temp file")
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "localfs: close temp file")
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "localfs: replace store file")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, keys ...string) (map[string]domain.BucketValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.BucketValue)
	if len(keys) == 0 {
		for k, e := range s.entries {
			out[k] = domain.BucketValue{Data: cloneBytes(e.Value), Version: e.Version}
		}
		return out, nil
	}
	for _, k := range keys {
		if e, ok := s.entries[k]; ok {
			out[k] = domain.BucketValue{Data: cloneBytes(e.Value), Version: e.Version}
		}
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, key string, data []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.entries[key].Version + 1
	s.entries[key] = fileEntry{Value: cloneBytes(data), Version: next}
	if err := s.flush(); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key string, data []byte, expect int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.entries[key].Version
	if current != expect {
		return 0, domain.ErrVersionConflict
	}
	next := current + 1
	s.entries[key] = fileEntry{Value: cloneBytes(data), Version: next}
	if err := s.flush(); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, k := range keys {
		if _, ok := s.entries[k]; ok {
			delete(s.entries, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.flush()
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]fileEntry)
	return s.flush()
}

func (s *Store) Close() error {
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
