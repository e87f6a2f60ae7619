package notification

import "time"

const (
	TypeNewPost        = "new_post"
	TypeFriendRequest  = "friend_request"
	TypeFriendAccepted = "friend_accepted"
	TypeReaction       = "reaction"
	TypeComment        = "comment"
	TypePoke           = "poke"
)

const (
	defaultLimit = 20
	maxLimit     = 50
)

// Event is something ActorID did that UserID should hear about.
type Event struct {
	Type         string
	ActorID      string
	UserID       string
	PostID       string
	TargetUserID string
	Title        string
	Body         string
}

// Notification is a row of either the notifications feed (addressed to the
// recipient) or the activity feed (owned by the actor).
type Notification struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Type         string    `json:"type"`
	ActorID      string    `json:"actor_id"`
	PostID       string    `json:"post_id,omitempty"`
	TargetUserID string    `json:"target_user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	IsNew        bool      `json:"is_new"`
}
