package friend

import "time"

const suggestionsPageSize = 20

// Profile is the public card of a user shown in friend lists.
type Profile struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// Request is a pending friend request seen from one side. UserID is the other party.
type Request struct {
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	ProfileImageURL string    `json:"profile_image_url"`
	CreatedAt       time.Time `json:"created_at"`
}

type Suggestion struct {
	ID              string `json:"id"`
	MutualCount     int    `json:"mutualCount"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profileImageUrl"`
}
