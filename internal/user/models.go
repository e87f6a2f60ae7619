package user

import "time"

const (
	maxBioLength  = 160
	searchLimit   = 20
	searchKeyBase = "brief:search:"
)

type Profile struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	ProfileImageURL string    `json:"profile_image_url"`
	BannerImageURL  string    `json:"banner_image_url"`
	Bio             string    `json:"bio"`
	CreatedAt       time.Time `json:"created_at"`
}

// UpdateRequest changes only the fields that are set.
type UpdateRequest struct {
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
}

type PushTokenRequest struct {
	Token string `json:"token"`
}
