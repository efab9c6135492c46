package watch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Cursor records the newest play timestamp seen per user, persisted to a
// JSON file so restarts do not re-announce plays
type Cursor struct {
	mu       sync.RWMutex
	seen     map[string]int64
	filePath string // empty disables persistence
}

// NewCursor creates a Cursor, restoring it from filePath if the file exists.
// A corrupt file yields an empty cursor and the decode error.
func NewCursor(filePath string) (*Cursor, error) {
	c := &Cursor{
		seen:     make(map[string]int64),
		filePath: filePath,
	}

	if filePath != "" {
		if err := c.restore(); err != nil && !os.IsNotExist(err) {
			return c, err
		}
	}

	return c, nil
}

// Get returns the last seen timestamp for user
func (c *Cursor) Get(user string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ts, ok := c.seen[user]
	return ts, ok
}

// Advance moves user's cursor forward to ts. Older timestamps are ignored.
func (c *Cursor) Advance(user string, ts int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.seen[user]; ok && ts <= cur {
		return nil
	}
	c.seen[user] = ts

	return c.persist()
}

// persist writes the cursor to disk. Caller must hold the lock.
func (c *Cursor) persist() error {
	if c.filePath == "" {
		return nil
	}

	data, err := json.MarshalIndent(c.seen, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return err
	}

	// Write atomically via temp file + rename
	tmpPath := c.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, c.filePath)
}

func (c *Cursor) restore() error {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		return err
	}

	seen := make(map[string]int64)
	if err := json.Unmarshal(data, &seen); err != nil {
		return err
	}
	if seen == nil {
		seen = make(map[string]int64)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = seen

	return nil
}
