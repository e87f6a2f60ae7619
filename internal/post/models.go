package post

import "time"

// AllFriends is the distribution target that shares a brief with every friend of its author.
const AllFriends = "all_friends"

const (
	maxTextLength = 500
	maxImages     = 2
)

type Post struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	Text                string    `json:"text"`
	ImageURLs           []string  `json:"image_urls"`
	AudioURL            string    `json:"audio_url,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`
	DistributionCircles []string  `json:"distribution_circles"`
	Location            *Location `json:"location,omitempty"`
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Expired reports whether the brief is past its expiry at now.
func (p Post) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

type CreateRequest struct {
	Text                string    `json:"text"`
	ImageURLs           []string  `json:"image_urls"`
	AudioURL            string    `json:"audio_url"`
	DistributionCircles []string  `json:"distribution_circles"`
	Location            *Location `json:"location"`
}

type Flag struct {
	PostID     string    `json:"post_id"`
	ReporterID string    `json:"reporter_id"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}
