package friend

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// SuggestionCache keeps the last suggestions page served per user on disk so
// that it can be returned before (or instead of) a fresh computation.
type SuggestionCache struct {
	dir string
	mu  sync.RWMutex
}

func NewSuggestionCache(dir string) (*SuggestionCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &SuggestionCache{dir: dir}, nil
}

func (c *SuggestionCache) path(userID string, page int) string {
	return filepath.Join(c.dir, filepath.Base(userID)+"_"+strconv.Itoa(page)+".json")
}

// Load returns the cached page; ok is false when nothing usable is stored.
func (c *SuggestionCache) Load(userID string, page int) ([]Suggestion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.path(userID, page))
	if err != nil {
		return nil, false
	}
	var out []Suggestion
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (c *SuggestionCache) Save(userID string, page int, suggestions []Suggestion) error {
	data, err := json.MarshalIndent(suggestions, "", "  ")
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tmp := c.path(userID, page) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path(userID, page))
}
