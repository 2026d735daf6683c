package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// entryFileExtension is the file extension used for on-disk entries.
const entryFileExtension = ".json"

// ErrNotFound reports a cache miss. Unreadable or corrupt entries also
// surface as ErrNotFound so a damaged cache never aborts a lookup.
var ErrNotFound = errors.New("cache entry not found")

// Store is the key/value contract the engine resolves through. Get
// returns entries regardless of freshness; callers apply their TTL.
// Put overwrites unconditionally. Clear deletes every entry.
type Store interface {
	Get(key string) (*Entry, error)
	Put(key string, payload json.RawMessage, storedAt time.Time) error
	Clear() error
}

// FileStore persists entries as one JSON file per key under a root
// directory. Safe for concurrent use.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates a file-backed store rooted at dir, creating the
// directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("cache directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Get reads the entry for key. Any failure to read or decode the entry
// is reported as ErrNotFound; corrupt files are removed on the way out.
func (s *FileStore) Get(key string) (*Entry, error) {
	if key == "" {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	path := s.keyToPath(key)
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrNotFound, filepath.Base(path), err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.mu.Lock()
		_ = os.Remove(path)
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: corrupt entry %s: %v", ErrNotFound, filepath.Base(path), err)
	}

	return &entry, nil
}

// Put writes or overwrites the entry for key. The entry is written to a
// temp file first and renamed into place, so readers never observe a
// partial entry.
func (s *FileStore) Put(key string, payload json.RawMessage, storedAt time.Time) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}

	entry := Entry{Key: key, Payload: payload, StoredAt: storedAt}
	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.keyToPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming cache file: %w", err)
	}

	return nil
}

// Clear deletes every entry. A missing or already-empty root is not an
// error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != entryFileExtension {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing cache file %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// keyToPath converts a key to a file path, sanitized for filesystem
// safety.
func (s *FileStore) keyToPath(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(s.dir, safe+entryFileExtension)
}

// MemoryStore keeps entries in a map. Used by tests and anywhere a
// process-local store is enough.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (s *MemoryStore) Put(key string, payload json.RawMessage, storedAt time.Time) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{Key: key, Payload: payload, StoredAt: storedAt}
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	return nil
}

// NullStore is the disabled-cache implementation: every Get misses and
// writes are dropped. Selecting it keeps the engine free of any
// cache-enabled branches.
type NullStore struct{}

func (NullStore) Get(string) (*Entry, error) {
	return nil, ErrNotFound
}

func (NullStore) Put(string, json.RawMessage, time.Time) error {
	return nil
}

func (NullStore) Clear() error {
	return nil
}
