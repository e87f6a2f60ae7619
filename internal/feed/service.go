package feed

import (
	"context"
	"log/slog"
	"time"

	"brief-backend/internal/metrics"
	"brief-backend/internal/post"
	"brief-backend/internal/shared/geo"
)

type Service struct {
	resolver *Resolver
	fetcher  *Fetcher
	gate     *RecencyGate
	posts    PostSource
	now      func() time.Time
}

func NewService(resolver *Resolver, fetcher *Fetcher, gate *RecencyGate, posts PostSource) *Service {
	return &Service{resolver: resolver, fetcher: fetcher, gate: gate, posts: posts, now: time.Now}
}

// Feed assembles the viewer's feed: own briefs plus friends' briefs the
// viewer may see, newest first. The recency gate is evaluated once and every
// brief by someone else is blurred while it is closed.
func (s *Service) Feed(ctx context.Context, viewerID string, opts Options) (Feed, error) {
	start := time.Now()
	defer func() { metrics.ObserveFeed(time.Since(start)) }()

	now := s.now()
	out := Feed{Items: []Item{}, GeneratedAt: now.UTC()}

	aud, err := s.resolver.Resolve(ctx, viewerID)
	if err != nil {
		out.Partial = true
	}

	authors := append([]string{viewerID}, aud.FriendIDs...)
	fetched := s.fetcher.Fetch(ctx, authors)
	if len(fetched.failedChunks) > 0 {
		out.Partial = true
		out.FailedChunks = fetched.failedChunks
	}

	open, err := s.gate.Open(ctx, viewerID)
	if err != nil {
		slog.Error("recency gate", "viewer_id", viewerID, "error", err)
		out.Partial = true
	}
	out.RecentlyPosted = open

	for _, p := range fetched.posts {
		if !Visible(p, viewerID, aud, now) {
			continue
		}
		item := Item{Post: p, Blurred: p.UserID != viewerID && !open}
		if opts.Near != nil {
			if p.Location == nil {
				continue
			}
			d := geo.HaversineKm(opts.Near.Lat, opts.Near.Lng, p.Location.Lat, p.Location.Lng)
			if opts.RadiusKm > 0 && d > opts.RadiusKm {
				continue
			}
			item.DistanceKm = &d
		}
		out.Items = append(out.Items, item)
	}
	return out, ctx.Err()
}

// Recency reports whether the viewer's recency gate is open.
func (s *Service) Recency(ctx context.Context, viewerID string) (bool, error) {
	return s.gate.Open(ctx, viewerID)
}

// Post returns a single brief if viewerID may see it and post.ErrNotFound otherwise.
func (s *Service) Post(ctx context.Context, viewerID, postID string) (post.Post, error) {
	p, err := s.posts.Get(ctx, postID)
	if err != nil {
		return post.Post{}, err
	}
	if p.UserID == viewerID {
		if p.Expired(s.now()) {
			return post.Post{}, post.ErrNotFound
		}
		return p, nil
	}
	aud, err := s.resolver.Resolve(ctx, viewerID)
	if err != nil {
		return post.Post{}, err
	}
	if !Visible(p, viewerID, aud, s.now()) {
		return post.Post{}, post.ErrNotFound
	}
	return p, nil
}

// Item returns a single visible brief annotated like a feed entry.
func (s *Service) Item(ctx context.Context, viewerID, postID string) (Item, error) {
	p, err := s.Post(ctx, viewerID, postID)
	if err != nil {
		return Item{}, err
	}
	if p.UserID == viewerID {
		return Item{Post: p}, nil
	}
	open, err := s.gate.Open(ctx, viewerID)
	if err != nil {
		return Item{}, err
	}
	return Item{Post: p, Blurred: !open}, nil
}
