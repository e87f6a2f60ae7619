package engagement

import (
	"sync"
	"time"
)

const maxCommentLength = 300

type Counts struct {
	PostID    string `json:"post_id"`
	Views     int    `json:"views"`
	Reactions int    `json:"reactions"`
	Comments  int    `json:"comments"`
}

type Reaction struct {
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ViewCache remembers which (post, viewer) pairs have already been recorded
// by this process. Entries live for the lifetime of the process.
type ViewCache struct {
	mu   sync.Mutex
	seen map[viewKey]struct{}
}

type viewKey struct {
	postID string
	userID string
}

func NewViewCache() *ViewCache {
	return &ViewCache{seen: map[viewKey]struct{}{}}
}

func (c *ViewCache) Seen(postID, userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[viewKey{postID, userID}]
	return ok
}

func (c *ViewCache) Mark(postID, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[viewKey{postID, userID}] = struct{}{}
}

func (c *ViewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
