package feed

import (
	"context"
	"time"
)

// RecencyGate decides whether a viewer has posted recently enough to see
// friends' briefs unblurred.
type RecencyGate struct {
	posts  PostSource
	window time.Duration
	now    func() time.Time
}

func NewRecencyGate(posts PostSource, window time.Duration) *RecencyGate {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &RecencyGate{posts: posts, window: window, now: time.Now}
}

// Open is true when the viewer's newest brief is at most window old.
// A viewer who never posted is gated.
func (g *RecencyGate) Open(ctx context.Context, viewerID string) (bool, error) {
	latest, ok, err := g.posts.Latest(ctx, viewerID)
	if err != nil || !ok {
		return false, err
	}
	return withinWindow(latest.CreatedAt, g.now(), g.window), nil
}

func withinWindow(createdAt, now time.Time, window time.Duration) bool {
	return now.Sub(createdAt) <= window
}
