// Package credstore persists the desk client's credentials: the session
// token and refresh credential, the cached user profile, the cached complaint
// summary and the staff ids staged between two steps of a verification flow.
//
// Values are plain strings at the Backend level; Store layers typed accessors
// and JSON encoding of structured values on top.
package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Backend is a durable string key/value map.
type Backend interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key. The write is durable once Set returns nil.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// FileBackend keeps all entries in one JSON document on disk.
type FileBackend struct {
	path    string
	mu      sync.Mutex
	entries map[string]string
}

// OpenFileBackend loads the document at path. A missing file yields an empty
// backend; the file is created on the first write.
func OpenFileBackend(path string) (*FileBackend, error) {
	fb := &FileBackend{path: path, entries: make(map[string]string)}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fb, nil
		}
		return nil, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&fb.entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if fb.entries == nil {
		fb.entries = make(map[string]string)
	}
	return fb, nil
}

// Get implements Backend.
func (fb *FileBackend) Get(_ context.Context, key string) (string, bool, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	v, ok := fb.entries[key]
	return v, ok, nil
}

// Set implements Backend. On a failed write the in-memory entry is restored.
func (fb *FileBackend) Set(_ context.Context, key, value string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	prev, had := fb.entries[key]
	fb.entries[key] = value
	if err := fb.save(); err != nil {
		if had {
			fb.entries[key] = prev
		} else {
			delete(fb.entries, key)
		}
		return err
	}
	return nil
}

// Delete implements Backend.
func (fb *FileBackend) Delete(_ context.Context, key string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	prev, had := fb.entries[key]
	if !had {
		return nil
	}
	delete(fb.entries, key)
	if err := fb.save(); err != nil {
		fb.entries[key] = prev
		return err
	}
	return nil
}

// save writes the document to a temp file and renames it over the target so
// readers never see a partial file. Callers hold fb.mu.
func (fb *FileBackend) save() error {
	dir := filepath.Dir(fb.path)
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(fb.entries); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fb.path)
}

// MemoryBackend is a process-local Backend.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]string)}
}

// Get implements Backend.
func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

// Set implements Backend.
func (m *MemoryBackend) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

// Delete implements Backend.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
