package secretstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// Container is the persistent backing for encrypted entries. Implementations
// must make each operation individually atomic; the Store never requires
// cross-entry transactions.
type Container interface {
	// Get returns the raw bytes stored under name, or ErrEntryNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put stores raw bytes under name, creating backing storage on first use.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes an entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, name string) error
}

// FileContainer persists entries in a single JSON file on the device. A
// per-container mutex enforces the single-writer discipline and writes go
// through a temp file plus rename so a crash never leaves a torn file.
type FileContainer struct {
	mu      sync.Mutex
	path    string
	entries map[string][]byte
	loaded  bool
}

// NewFileContainer creates a container backed by the file at path. The file
// is created lazily on the first Put.
func NewFileContainer(path string) *FileContainer {
	return &FileContainer{path: path}
}

func (c *FileContainer) Get(ctx context.Context, name string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return nil, err
	}
	data, ok := c.entries[name]
	if !ok {
		return nil, ErrEntryNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (c *FileContainer) Put(ctx context.Context, name string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return err
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	c.entries[name] = stored
	return c.flush()
}

func (c *FileContainer) Delete(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return err
	}
	if _, ok := c.entries[name]; !ok {
		return nil
	}
	delete(c.entries, name)
	return c.flush()
}

// load reads the file once per container lifetime. A missing file is an
// empty container, not an error.
func (c *FileContainer) load() error {
	if c.loaded {
		return nil
	}

	c.entries = make(map[string][]byte)
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		c.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read secret container: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.entries); err != nil {
			return errors.Join(ErrInvalidPayload, err)
		}
	}
	c.loaded = true
	return nil
}

// flush writes the whole container atomically.
func (c *FileContainer) flush() error {
	raw, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encode secret container: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create secret container dir: %w", err)
		}
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write secret container: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace secret container: %w", err)
	}
	return nil
}

// MemoryContainer is an in-memory Container for tests and ephemeral use.
type MemoryContainer struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryContainer() *MemoryContainer {
	return &MemoryContainer{entries: make(map[string][]byte)}
}

func (c *MemoryContainer) Get(ctx context.Context, name string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.entries[name]
	if !ok {
		return nil, ErrEntryNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (c *MemoryContainer) Put(ctx context.Context, name string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	c.entries[name] = stored
	return nil
}

func (c *MemoryContainer) Delete(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, name)
	return nil
}

// Snapshot returns a copy of all entries. Test helper.
func (c *MemoryContainer) Snapshot() map[string][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string][]byte, len(c.entries))
	maps.Copy(out, c.entries)
	return out
}
