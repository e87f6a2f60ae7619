package feed

import (
	"context"
	"errors"
	"log/slog"
)

type FriendSource interface {
	FriendIDs(ctx context.Context, userID string) ([]string, error)
}

type CircleSource interface {
	Names(ctx context.Context, userID string) ([]string, error)
}

type Resolver struct {
	friends FriendSource
	circles CircleSource
}

func NewResolver(friends FriendSource, circles CircleSource) *Resolver {
	return &Resolver{friends: friends, circles: circles}
}

// Resolve loads the viewer's audience. A source that fails contributes an
// empty set; the failure is logged and returned alongside the usable result.
func (r *Resolver) Resolve(ctx context.Context, viewerID string) (Audience, error) {
	friendIDs, friendErr := r.friends.FriendIDs(ctx, viewerID)
	if friendErr != nil {
		slog.Error("resolve friends", "viewer_id", viewerID, "error", friendErr)
		friendIDs = nil
	}
	names, circleErr := r.circles.Names(ctx, viewerID)
	if circleErr != nil {
		slog.Error("resolve circles", "viewer_id", viewerID, "error", circleErr)
		names = nil
	}
	return NewAudience(friendIDs, names), errors.Join(friendErr, circleErr)
}
