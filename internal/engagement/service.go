package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"brief-backend/internal/db"
	"brief-backend/internal/metrics"
	"brief-backend/internal/notification"
	"brief-backend/internal/post"
	"brief-backend/internal/stream"

	"github.com/google/uuid"
)

var (
	ErrInvalid         = errors.New("invalid engagement")
	ErrCommentNotFound = errors.New("comment not found")
	ErrForbidden       = errors.New("not allowed to delete this comment")
)

// Posts returns a brief as seen by viewerID, failing when the viewer may not see it.
type Posts interface {
	Post(ctx context.Context, viewerID, postID string) (post.Post, error)
}

type Notifier interface {
	Notify(ctx context.Context, ev notification.Event) error
}

type Broadcaster interface {
	BroadcastJSON(channel string, v any)
}

type Service struct {
	db       db.Querier
	posts    Posts
	views    *ViewCache
	hub      Broadcaster
	notifier Notifier
	now      func() time.Time
}

func NewService(db db.Querier, posts Posts, views *ViewCache, hub Broadcaster, notifier Notifier) *Service {
	if views == nil {
		views = NewViewCache()
	}
	return &Service{db: db, posts: posts, views: views, hub: hub, notifier: notifier, now: time.Now}
}

// RecordView stores that userID has seen postID. A pair already known to the
// cache costs no I/O; otherwise visibility is checked and the store is read
// and written at most once. It reports whether a new view row was inserted.
func (s *Service) RecordView(ctx context.Context, postID, userID string) (bool, error) {
	if s.views.Seen(postID, userID) {
		metrics.RecordViewCache(true)
		return false, nil
	}
	metrics.RecordViewCache(false)

	if _, err := s.posts.Post(ctx, userID, postID); err != nil {
		return false, err
	}

	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM post_views WHERE post_id=$1 AND user_id=$2)
	`, postID, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists {
		s.views.Mark(postID, userID)
		return false, nil
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO post_views (post_id, user_id, viewed_at)
		VALUES ($1,$2,$3)
		ON CONFLICT DO NOTHING
	`, postID, userID, s.now().UTC())
	if err != nil {
		return false, err
	}
	s.views.Mark(postID, userID)
	s.publish(ctx, postID)
	return true, nil
}

// React sets userID's reaction on the brief, replacing any earlier one.
func (s *Service) React(ctx context.Context, postID, userID, emoji string) (Reaction, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || utf8.RuneCountInString(emoji) > 8 {
		return Reaction{}, fmt.Errorf("%w: emoji required", ErrInvalid)
	}
	p, err := s.posts.Post(ctx, userID, postID)
	if err != nil {
		return Reaction{}, err
	}

	r := Reaction{PostID: postID, UserID: userID, Emoji: emoji, CreatedAt: s.now().UTC()}
	_, err = s.db.Exec(ctx, `
		INSERT INTO post_reactions (post_id, user_id, emoji, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (post_id, user_id) DO UPDATE SET emoji=EXCLUDED.emoji, created_at=EXCLUDED.created_at
	`, r.PostID, r.UserID, r.Emoji, r.CreatedAt)
	if err != nil {
		return Reaction{}, err
	}

	s.publish(ctx, postID)
	s.notify(ctx, notification.Event{
		Type:    notification.TypeReaction,
		ActorID: userID,
		UserID:  p.UserID,
		PostID:  postID,
		Title:   "New reaction",
		Body:    "Someone reacted " + emoji + " to your brief",
	})
	return r, nil
}

func (s *Service) Unreact(ctx context.Context, postID, userID string) error {
	if _, err := s.posts.Post(ctx, userID, postID); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM post_reactions WHERE post_id=$1 AND user_id=$2`, postID, userID); err != nil {
		return err
	}
	s.publish(ctx, postID)
	return nil
}

func (s *Service) Reactions(ctx context.Context, postID, viewerID string) ([]Reaction, error) {
	if _, err := s.posts.Post(ctx, viewerID, postID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT post_id, user_id, emoji, created_at
		FROM post_reactions
		WHERE post_id=$1
		ORDER BY created_at DESC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reactions := []Reaction{}
	for rows.Next() {
		var r Reaction
		if err := rows.Scan(&r.PostID, &r.UserID, &r.Emoji, &r.CreatedAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}

func (s *Service) AddComment(ctx context.Context, postID, userID, text string) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, fmt.Errorf("%w: comment text required", ErrInvalid)
	}
	if utf8.RuneCountInString(text) > maxCommentLength {
		return Comment{}, fmt.Errorf("%w: comment must be at most %d characters", ErrInvalid, maxCommentLength)
	}
	p, err := s.posts.Post(ctx, userID, postID)
	if err != nil {
		return Comment{}, err
	}

	cm := Comment{ID: uuid.NewString(), PostID: postID, UserID: userID, Text: text, CreatedAt: s.now().UTC()}
	_, err = s.db.Exec(ctx, `
		INSERT INTO post_comments (id, post_id, user_id, text, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, cm.ID, cm.PostID, cm.UserID, cm.Text, cm.CreatedAt)
	if err != nil {
		return Comment{}, err
	}

	s.publish(ctx, postID)
	s.notify(ctx, notification.Event{
		Type:    notification.TypeComment,
		ActorID: userID,
		UserID:  p.UserID,
		PostID:  postID,
		Title:   "New comment",
		Body:    text,
	})
	return cm, nil
}

func (s *Service) Comments(ctx context.Context, postID, viewerID string) ([]Comment, error) {
	if _, err := s.posts.Post(ctx, viewerID, postID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, post_id, user_id, text, created_at
		FROM post_comments
		WHERE post_id=$1
		ORDER BY created_at ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var cm Comment
		if err := rows.Scan(&cm.ID, &cm.PostID, &cm.UserID, &cm.Text, &cm.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, cm)
	}
	return comments, rows.Err()
}

// DeleteComment removes a comment. Its author and the author of the brief may do so.
func (s *Service) DeleteComment(ctx context.Context, postID, commentID, userID string) error {
	var authorID string
	err := s.db.QueryRow(ctx, `SELECT user_id FROM post_comments WHERE id=$1 AND post_id=$2`, commentID, postID).Scan(&authorID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrCommentNotFound
		}
		return err
	}
	if authorID != userID {
		p, err := s.posts.Post(ctx, userID, postID)
		if err != nil {
			return err
		}
		if p.UserID != userID {
			return ErrForbidden
		}
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM post_comments WHERE id=$1`, commentID); err != nil {
		return err
	}
	s.publish(ctx, postID)
	return nil
}

// CountsFor returns the counters of a brief the viewer can see.
func (s *Service) CountsFor(ctx context.Context, postID, viewerID string) (Counts, error) {
	if _, err := s.posts.Post(ctx, viewerID, postID); err != nil {
		return Counts{}, err
	}
	return s.Counts(ctx, postID)
}

func (s *Service) Counts(ctx context.Context, postID string) (Counts, error) {
	c := Counts{PostID: postID}
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM post_views WHERE post_id=$1),
			(SELECT COUNT(*) FROM post_reactions WHERE post_id=$1),
			(SELECT COUNT(*) FROM post_comments WHERE post_id=$1)
	`, postID).Scan(&c.Views, &c.Reactions, &c.Comments)
	return c, err
}

// publish pushes fresh counters to subscribers of the brief's channel.
func (s *Service) publish(ctx context.Context, postID string) {
	if s.hub == nil {
		return
	}
	counts, err := s.Counts(ctx, postID)
	if err != nil {
		slog.Warn("load counts for broadcast", "post_id", postID, "error", err)
		return
	}
	s.hub.BroadcastJSON(stream.PostChannel(postID), counts)
}

func (s *Service) notify(ctx context.Context, ev notification.Event) {
	if s.notifier == nil {
		return
	}
	go func() {
		if err := s.notifier.Notify(context.WithoutCancel(ctx), ev); err != nil {
			slog.Error("notify", "type", ev.Type, "post_id", ev.PostID, "error", err)
		}
	}()
}
