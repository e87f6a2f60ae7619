package post

import (
	"fmt"
	"time"

	"brief-backend/internal/shared/geo"
)

const (
	ReasonMissing = "missing"
	ReasonInvalid = "invalid"
)

// DecodeError describes a stored brief that cannot be turned into a Post.
// Reason separates an absent field from one that is present but unusable.
type DecodeError struct {
	PostID string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("post %q: field %s %s", e.PostID, e.Field, e.Reason)
}

// row mirrors the nullable columns of the posts table.
type row struct {
	ID                  *string
	UserID              *string
	Text                *string
	ImageURLs           []string
	AudioURL            *string
	CreatedAt           *time.Time
	ExpiresAt           *time.Time
	DistributionCircles []string
	Lat                 *float64
	Lng                 *float64
}

func (r *row) dest() []any {
	return []any{&r.ID, &r.UserID, &r.Text, &r.ImageURLs, &r.AudioURL, &r.CreatedAt, &r.ExpiresAt, &r.DistributionCircles, &r.Lat, &r.Lng}
}

func decode(r row, ttl time.Duration) (Post, error) {
	id := deref(r.ID)
	fail := func(field, reason string) (Post, error) {
		return Post{}, &DecodeError{PostID: id, Field: field, Reason: reason}
	}

	if r.ID == nil {
		return fail("id", ReasonMissing)
	}
	if id == "" {
		return fail("id", ReasonInvalid)
	}
	if r.UserID == nil {
		return fail("user_id", ReasonMissing)
	}
	if *r.UserID == "" {
		return fail("user_id", ReasonInvalid)
	}
	if r.CreatedAt == nil {
		return fail("created_at", ReasonMissing)
	}
	if r.CreatedAt.IsZero() {
		return fail("created_at", ReasonInvalid)
	}
	if len(r.ImageURLs) > maxImages {
		return fail("image_urls", ReasonInvalid)
	}

	p := Post{
		ID:                  id,
		UserID:              *r.UserID,
		Text:                deref(r.Text),
		ImageURLs:           r.ImageURLs,
		AudioURL:            deref(r.AudioURL),
		CreatedAt:           *r.CreatedAt,
		DistributionCircles: r.DistributionCircles,
	}
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}
	if p.DistributionCircles == nil {
		p.DistributionCircles = []string{}
	}

	if r.ExpiresAt == nil {
		p.ExpiresAt = p.CreatedAt.Add(ttl)
	} else {
		if r.ExpiresAt.Before(p.CreatedAt) {
			return fail("expires_at", ReasonInvalid)
		}
		p.ExpiresAt = *r.ExpiresAt
	}

	switch {
	case r.Lat == nil && r.Lng == nil:
	case r.Lat == nil:
		return fail("lat", ReasonMissing)
	case r.Lng == nil:
		return fail("lng", ReasonMissing)
	default:
		if !geo.Valid(*r.Lat, *r.Lng) {
			return fail("location", ReasonInvalid)
		}
		p.Location = &Location{Lat: *r.Lat, Lng: *r.Lng}
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
