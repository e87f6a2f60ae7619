package notification

import (
	"context"
	"log/slog"
	"time"

	"brief-backend/internal/db"
	"brief-backend/internal/post"
	"brief-backend/internal/push"
	"brief-backend/internal/stream"

	"github.com/google/uuid"
)

// Broadcaster delivers live payloads to subscribed clients.
type Broadcaster interface {
	BroadcastJSON(channel string, v any)
}

type Service struct {
	db     db.Querier
	sender push.Sender
	hub    Broadcaster
	now    func() time.Time
}

func NewService(db db.Querier, sender push.Sender, hub Broadcaster) *Service {
	if sender == nil {
		sender = push.Noop{}
	}
	return &Service{db: db, sender: sender, hub: hub, now: time.Now}
}

// Notify records ev in the recipient's notifications and the actor's activity,
// then pushes it to the recipient's devices. Users are never notified about
// their own actions.
func (s *Service) Notify(ctx context.Context, ev Event) error {
	if ev.UserID == "" || ev.UserID == ev.ActorID {
		return nil
	}
	n, err := s.insert(ctx, "notifications", ev.UserID, ev)
	if err != nil {
		return err
	}
	if _, err := s.insert(ctx, "activities", ev.ActorID, ev); err != nil {
		return err
	}
	s.announce(n)
	s.PushUsers(ctx, []string{ev.UserID}, message(ev))
	return nil
}

// PostCreated tells everyone the brief was shared with that it exists.
func (s *Service) PostCreated(ctx context.Context, p post.Post) {
	recipients, err := s.audience(ctx, p)
	if err != nil {
		slog.Error("resolve post audience", "post_id", p.ID, "error", err)
		return
	}
	if len(recipients) == 0 {
		return
	}

	ev := Event{Type: TypeNewPost, ActorID: p.UserID, PostID: p.ID, Title: "New brief", Body: "A friend just posted a brief"}
	for _, userID := range recipients {
		n, err := s.insert(ctx, "notifications", userID, ev)
		if err != nil {
			slog.Error("insert notification", "user_id", userID, "post_id", p.ID, "error", err)
			continue
		}
		s.announce(n)
	}
	if _, err := s.insert(ctx, "activities", p.UserID, ev); err != nil {
		slog.Error("insert activity", "user_id", p.UserID, "post_id", p.ID, "error", err)
	}
	s.PushUsers(ctx, recipients, message(ev))
}

// audience is every friend for all_friends briefs, otherwise the members of
// the author's circles named in the brief's targets.
func (s *Service) audience(ctx context.Context, p post.Post) ([]string, error) {
	for _, target := range p.DistributionCircles {
		if target == post.AllFriends {
			return s.strings(ctx, `SELECT friend_id FROM friends WHERE user_id=$1`, p.UserID)
		}
	}
	if len(p.DistributionCircles) == 0 {
		return nil, nil
	}
	return s.strings(ctx, `
		SELECT DISTINCT member_id
		FROM distribution_circles, unnest(member_ids) AS member_id
		WHERE creator_id=$1 AND name = ANY($2) AND member_id <> $1
	`, p.UserID, p.DistributionCircles)
}

// PushUsers sends msg to every registered device of userIDs. Failures are
// logged; tokens the provider reports as unregistered are deleted.
func (s *Service) PushUsers(ctx context.Context, userIDs []string, msg push.Message) {
	tokens, err := s.strings(ctx, `SELECT token FROM push_tokens WHERE user_id = ANY($1)`, userIDs)
	if err != nil {
		slog.Error("load push tokens", "error", err)
		return
	}
	if len(tokens) == 0 {
		return
	}
	res, err := s.sender.Send(ctx, tokens, msg)
	if err != nil {
		slog.Error("push send", "tokens", len(tokens), "error", err)
		return
	}
	if res.Failure > 0 {
		slog.Warn("push partially failed", "success", res.Success, "failure", res.Failure)
	}
	if len(res.Unregistered) > 0 {
		if _, err := s.db.Exec(ctx, `DELETE FROM push_tokens WHERE token = ANY($1)`, res.Unregistered); err != nil {
			slog.Error("delete unregistered push tokens", "error", err)
		}
	}
}

func (s *Service) List(ctx context.Context, userID string, before time.Time, limit int) ([]Notification, error) {
	return s.list(ctx, "notifications", userID, before, limit)
}

func (s *Service) ListActivities(ctx context.Context, userID string, before time.Time, limit int) ([]Notification, error) {
	return s.list(ctx, "activities", userID, before, limit)
}

// MarkRead clears the new flag on all of the user's notifications.
func (s *Service) MarkRead(ctx context.Context, userID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `UPDATE notifications SET is_new=false WHERE user_id=$1 AND is_new`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND is_new`, userID).Scan(&count)
	return count, err
}

func (s *Service) insert(ctx context.Context, table, owner string, ev Event) (Notification, error) {
	n := Notification{
		ID:           uuid.NewString(),
		UserID:       owner,
		Type:         ev.Type,
		ActorID:      ev.ActorID,
		PostID:       ev.PostID,
		TargetUserID: ev.TargetUserID,
		CreatedAt:    s.now().UTC(),
		IsNew:        true,
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO `+table+` (id, user_id, type, actor_id, post_id, target_user_id, created_at, is_new)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, n.ID, n.UserID, n.Type, n.ActorID, n.PostID, n.TargetUserID, n.CreatedAt, n.IsNew)
	return n, err
}

func (s *Service) list(ctx context.Context, table, userID string, before time.Time, limit int) ([]Notification, error) {
	if before.IsZero() {
		before = s.now()
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, actor_id, post_id, target_user_id, created_at, is_new
		FROM `+table+`
		WHERE user_id=$1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, before, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.ActorID, &n.PostID, &n.TargetUserID, &n.CreatedAt, &n.IsNew); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (s *Service) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Service) announce(n Notification) {
	if s.hub != nil {
		s.hub.BroadcastJSON(stream.UserChannel(n.UserID), n)
	}
}

func message(ev Event) push.Message {
	data := map[string]string{"type": ev.Type, "actor_id": ev.ActorID}
	if ev.PostID != "" {
		data["post_id"] = ev.PostID
	}
	return push.Message{Title: ev.Title, Body: ev.Body, Data: data}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}
