package feed

import (
	"time"

	"brief-backend/internal/post"
)

const (
	defaultChunkSize  = 10
	defaultFetchLimit = 5 * time.Second
)

// Audience is what a viewer is entitled to see: the friend list and the
// names of the circles the viewer created or belongs to.
type Audience struct {
	FriendIDs   []string
	friends     map[string]struct{}
	circleNames map[string]struct{}
}

func NewAudience(friendIDs, circleNames []string) Audience {
	a := Audience{
		FriendIDs:   friendIDs,
		friends:     make(map[string]struct{}, len(friendIDs)),
		circleNames: make(map[string]struct{}, len(circleNames)),
	}
	for _, id := range friendIDs {
		a.friends[id] = struct{}{}
	}
	for _, name := range circleNames {
		a.circleNames[name] = struct{}{}
	}
	return a
}

func (a Audience) IsFriend(userID string) bool {
	_, ok := a.friends[userID]
	return ok
}

func (a Audience) InCircle(name string) bool {
	_, ok := a.circleNames[name]
	return ok
}

// Item is a brief as presented in a feed. Blurred briefs are shown to viewers
// who have not posted recently.
type Item struct {
	post.Post
	Blurred    bool     `json:"blurred"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

type Feed struct {
	Items          []Item    `json:"items"`
	RecentlyPosted bool      `json:"recently_posted"`
	Partial        bool      `json:"partial"`
	FailedChunks   []int     `json:"failed_chunks,omitempty"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Options narrows a feed to briefs posted near a point.
type Options struct {
	Near     *post.Location
	RadiusKm float64
}
