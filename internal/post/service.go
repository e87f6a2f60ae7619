package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"brief-backend/internal/db"
	"brief-backend/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound  = errors.New("post not found")
	ErrForbidden = errors.New("not the author of this post")
	ErrInvalid   = errors.New("invalid post")
)

const postColumns = `id, user_id, text, image_urls, audio_url, created_at, expires_at, distribution_circles, lat, lng`

// Notifier is told about every brief that was created.
type Notifier interface {
	PostCreated(ctx context.Context, p Post)
}

// Visibility resolves a brief as seen by one viewer and fails with
// ErrNotFound when the viewer may not see it.
type Visibility interface {
	Post(ctx context.Context, viewerID, postID string) (Post, error)
}

type Service struct {
	db         db.Querier
	ttl        time.Duration
	notifier   Notifier
	visibility Visibility
	now        func() time.Time
}

func NewService(db db.Querier, ttl time.Duration, notifier Notifier) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{db: db, ttl: ttl, notifier: notifier, now: time.Now}
}

// SetVisibility makes FlagPost only accept briefs the reporter can see.
func (s *Service) SetVisibility(v Visibility) {
	s.visibility = v
}

func (s *Service) Create(ctx context.Context, authorID string, req CreateRequest) (Post, error) {
	if err := validate(req); err != nil {
		return Post{}, err
	}

	targets := req.DistributionCircles
	if len(targets) == 0 {
		targets = []string{AllFriends}
	}
	images := req.ImageURLs
	if images == nil {
		images = []string{}
	}

	now := s.now().UTC()
	p := Post{
		ID:                  uuid.NewString(),
		UserID:              authorID,
		Text:                strings.TrimSpace(req.Text),
		ImageURLs:           images,
		AudioURL:            req.AudioURL,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.ttl),
		DistributionCircles: targets,
		Location:            req.Location,
	}

	var lat, lng *float64
	if p.Location != nil {
		lat, lng = &p.Location.Lat, &p.Location.Lng
	}
	var audio *string
	if p.AudioURL != "" {
		audio = &p.AudioURL
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO posts (id, user_id, text, image_urls, audio_url, created_at, expires_at, distribution_circles, lat, lng)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, p.ID, p.UserID, p.Text, p.ImageURLs, audio, p.CreatedAt, p.ExpiresAt, p.DistributionCircles, lat, lng)
	if err != nil {
		return Post{}, err
	}

	if s.notifier != nil {
		go s.notifier.PostCreated(context.WithoutCancel(ctx), p)
	}
	return p, nil
}

func validate(req CreateRequest) error {
	text := strings.TrimSpace(req.Text)
	if text == "" && len(req.ImageURLs) == 0 && req.AudioURL == "" {
		return fmt.Errorf("%w: text, image or audio required", ErrInvalid)
	}
	if utf8.RuneCountInString(text) > maxTextLength {
		return fmt.Errorf("%w: text must be at most %d characters", ErrInvalid, maxTextLength)
	}
	if len(req.ImageURLs) > maxImages {
		return fmt.Errorf("%w: at most %d images", ErrInvalid, maxImages)
	}
	for _, target := range req.DistributionCircles {
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("%w: empty distribution circle", ErrInvalid)
		}
	}
	if req.Location != nil && !geo.Valid(req.Location.Lat, req.Location.Lng) {
		return fmt.Errorf("%w: location out of range", ErrInvalid)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (Post, error) {
	var r row
	err := s.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id=$1`, id).Scan(r.dest()...)
	if err != nil {
		if db.IsNoRows(err) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}
	p, err := decode(r, s.ttl)
	if err != nil {
		slog.Warn("malformed post", "error", err)
		return Post{}, ErrNotFound
	}
	return p, nil
}

// ByAuthors returns the unexpired briefs of the given authors, newest first.
// Rows that cannot be decoded are logged and skipped.
func (s *Service) ByAuthors(ctx context.Context, authorIDs []string) ([]Post, error) {
	if len(authorIDs) == 0 {
		return []Post{}, nil
	}
	now := s.now().UTC()
	rows, err := s.db.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE user_id = ANY($1)
		  AND (expires_at > $2 OR (expires_at IS NULL AND created_at > $3))
		ORDER BY created_at DESC
	`, authorIDs, now, now.Add(-s.ttl))
	if err != nil {
		return nil, err
	}
	return s.collect(rows)
}

// ListByUser returns every brief of one author, expired ones included.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Post, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return s.collect(rows)
}

// Latest returns the newest brief by userID; ok is false when there is none.
func (s *Service) Latest(ctx context.Context, userID string) (Post, bool, error) {
	var r row
	err := s.db.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID).Scan(r.dest()...)
	if err != nil {
		if db.IsNoRows(err) {
			return Post{}, false, nil
		}
		return Post{}, false, err
	}
	p, err := decode(r, s.ttl)
	if err != nil {
		slog.Warn("malformed latest post", "user_id", userID, "error", err)
		return Post{}, false, nil
	}
	return p, true, nil
}

func (s *Service) collect(rows pgx.Rows) ([]Post, error) {
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var r row
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, err
		}
		p, err := decode(r, s.ttl)
		if err != nil {
			slog.Warn("dropping malformed post", "error", err)
			continue
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	var authorID *string
	err := s.db.QueryRow(ctx, `SELECT user_id FROM posts WHERE id=$1`, id).Scan(&authorID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		return err
	}
	if authorID == nil || *authorID != userID {
		return ErrForbidden
	}
	_, err = s.db.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	return err
}

// FlagPost records a report against a brief. A reporter can flag a brief once.
func (s *Service) FlagPost(ctx context.Context, reporterID, postID, reason string) (Flag, error) {
	var err error
	if s.visibility != nil {
		_, err = s.visibility.Post(ctx, reporterID, postID)
	} else {
		_, err = s.Get(ctx, postID)
	}
	if err != nil {
		return Flag{}, err
	}
	f := Flag{PostID: postID, ReporterID: reporterID, Reason: strings.TrimSpace(reason)}
	row := s.db.QueryRow(ctx, `
		INSERT INTO flagged_posts (post_id, reporter_id, reason)
		VALUES ($1,$2,$3)
		ON CONFLICT (post_id, reporter_id) DO UPDATE SET reason=EXCLUDED.reason
		RETURNING created_at
	`, f.PostID, f.ReporterID, f.Reason)
	if err := row.Scan(&f.CreatedAt); err != nil {
		return Flag{}, err
	}
	return f, nil
}
