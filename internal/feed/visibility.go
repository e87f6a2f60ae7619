package feed

import (
	"time"

	"brief-backend/internal/post"
)

// Visible reports whether viewerID may see p at now. The author always sees
// their own live briefs; anyone else needs a shared circle name or, for
// all_friends briefs, friendship with the author. A brief with no targets is
// private to its author. Expired briefs are hidden from everyone.
func Visible(p post.Post, viewerID string, aud Audience, now time.Time) bool {
	if p.Expired(now) {
		return false
	}
	if p.UserID == viewerID {
		return true
	}
	for _, target := range p.DistributionCircles {
		if target == post.AllFriends {
			if aud.IsFriend(p.UserID) {
				return true
			}
			continue
		}
		if aud.InCircle(target) {
			return true
		}
	}
	return false
}
