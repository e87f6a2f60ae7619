package circle

import "time"

// Circle is a named group of friends a brief can be distributed to.
type Circle struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatorID string    `json:"creator_id"`
	MemberIDs []string  `json:"member_ids"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

type MembersRequest struct {
	MemberIDs []string `json:"member_ids"`
}
