package friend

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"brief-backend/internal/db"
	"brief-backend/internal/notification"

	"github.com/jackc/pgx/v5"
)

var (
	ErrSelf            = errors.New("cannot befriend yourself")
	ErrUserNotFound    = errors.New("user not found")
	ErrAlreadyFriends  = errors.New("already friends")
	ErrBlocked         = errors.New("user is blocked")
	ErrRequestNotFound = errors.New("friend request not found")
)

type Notifier interface {
	Notify(ctx context.Context, ev notification.Event) error
}

type Service struct {
	db       db.Querier
	cache    *SuggestionCache
	notifier Notifier
	now      func() time.Time
	async    func(func())
}

func NewService(db db.Querier, cache *SuggestionCache, notifier Notifier) *Service {
	return &Service{
		db:       db,
		cache:    cache,
		notifier: notifier,
		now:      time.Now,
		async:    func(f func()) { go f() },
	}
}

// SendRequest files a pending request from sender to recipient. Sending the
// same request twice is harmless. If the recipient has already asked the
// sender, the two become friends instead.
func (s *Service) SendRequest(ctx context.Context, senderID, recipientID string) error {
	if senderID == recipientID {
		return ErrSelf
	}

	var exists, friends, blocked, reverse bool
	err := s.db.QueryRow(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM users WHERE id=$2),
			EXISTS (SELECT 1 FROM friends WHERE user_id=$1 AND friend_id=$2),
			EXISTS (SELECT 1 FROM blocked_users
			        WHERE (user_id=$1 AND $2 = ANY(blocked_ids)) OR (user_id=$2 AND $1 = ANY(blocked_ids))),
			EXISTS (SELECT 1 FROM friend_requests WHERE sender_id=$2 AND recipient_id=$1)
	`, senderID, recipientID).Scan(&exists, &friends, &blocked, &reverse)
	if err != nil {
		return err
	}
	switch {
	case !exists:
		return ErrUserNotFound
	case friends:
		return ErrAlreadyFriends
	case blocked:
		return ErrBlocked
	case reverse:
		return s.Accept(ctx, senderID, recipientID)
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO friend_requests (sender_id, recipient_id, created_at)
		VALUES ($1,$2,$3)
		ON CONFLICT DO NOTHING
	`, senderID, recipientID, s.now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		s.notify(ctx, notification.Event{
			Type:         notification.TypeFriendRequest,
			ActorID:      senderID,
			UserID:       recipientID,
			TargetUserID: recipientID,
			Title:        "New friend request",
			Body:         "Someone wants to be your friend on brief",
		})
	}
	return nil
}

// Accept turns sender's pending request into a friendship in one transaction.
// Accepting when the two are already friends is a no-op.
func (s *Service) Accept(ctx context.Context, recipientID, senderID string) error {
	accepted := false
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM friend_requests WHERE sender_id=$1 AND recipient_id=$2`, senderID, recipientID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var friends bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM friends WHERE user_id=$1 AND friend_id=$2)`, recipientID, senderID).Scan(&friends); err != nil {
				return err
			}
			if !friends {
				return ErrRequestNotFound
			}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO friends (user_id, friend_id, created_at)
			VALUES ($1,$2,$3), ($2,$1,$3)
			ON CONFLICT DO NOTHING
		`, recipientID, senderID, s.now().UTC())
		accepted = tag.RowsAffected() > 0
		return err
	})
	if err != nil {
		return err
	}
	if accepted {
		s.notify(ctx, notification.Event{
			Type:         notification.TypeFriendAccepted,
			ActorID:      recipientID,
			UserID:       senderID,
			TargetUserID: recipientID,
			Title:        "Friend request accepted",
			Body:         "You have a new friend on brief",
		})
	}
	return nil
}

func (s *Service) Decline(ctx context.Context, recipientID, senderID string) error {
	return s.deleteRequest(ctx, senderID, recipientID)
}

func (s *Service) Cancel(ctx context.Context, senderID, recipientID string) error {
	return s.deleteRequest(ctx, senderID, recipientID)
}

func (s *Service) deleteRequest(ctx context.Context, senderID, recipientID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM friend_requests WHERE sender_id=$1 AND recipient_id=$2`, senderID, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// Remove ends a friendship on both sides.
func (s *Service) Remove(ctx context.Context, userID, friendID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM friends
		WHERE (user_id=$1 AND friend_id=$2) OR (user_id=$2 AND friend_id=$1)
	`, userID, friendID)
	return err
}

// FriendIDs returns the ids on userID's friend list.
func (s *Service) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT friend_id FROM friends WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Service) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	var friends bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM friends WHERE user_id=$1 AND friend_id=$2)`, userID, otherID).Scan(&friends)
	return friends, err
}

func (s *Service) ListFriends(ctx context.Context, userID string) ([]Profile, error) {
	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.username, u.first_name, u.last_name, u.profile_image_url
		FROM friends f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id=$1
		ORDER BY u.username
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []Profile{}
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.FirstName, &p.LastName, &p.ProfileImageURL); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// ListIncoming returns requests waiting for userID's answer.
func (s *Service) ListIncoming(ctx context.Context, userID string) ([]Request, error) {
	return s.listRequests(ctx, `
		SELECT u.id, u.username, u.profile_image_url, r.created_at
		FROM friend_requests r
		JOIN users u ON u.id = r.sender_id
		WHERE r.recipient_id=$1
		ORDER BY r.created_at DESC
	`, userID)
}

// ListSent returns requests userID has sent that are still pending.
func (s *Service) ListSent(ctx context.Context, userID string) ([]Request, error) {
	return s.listRequests(ctx, `
		SELECT u.id, u.username, u.profile_image_url, r.created_at
		FROM friend_requests r
		JOIN users u ON u.id = r.recipient_id
		WHERE r.sender_id=$1
		ORDER BY r.created_at DESC
	`, userID)
}

func (s *Service) listRequests(ctx context.Context, query, userID string) ([]Request, error) {
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []Request{}
	for rows.Next() {
		var r Request
		if err := rows.Scan(&r.UserID, &r.Username, &r.ProfileImageURL, &r.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// Block adds targetID to userID's block list and drops any friendship or
// pending request between them.
func (s *Service) Block(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return ErrSelf
	}
	return db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO blocked_users (user_id) VALUES ($1) ON CONFLICT DO NOTHING`, userID); err != nil {
			return err
		}
		var blocked []string
		if err := tx.QueryRow(ctx, `SELECT blocked_ids FROM blocked_users WHERE user_id=$1 FOR UPDATE`, userID).Scan(&blocked); err != nil {
			return err
		}
		if !slices.Contains(blocked, targetID) {
			if _, err := tx.Exec(ctx, `UPDATE blocked_users SET blocked_ids = array_append(blocked_ids, $2) WHERE user_id=$1`, userID, targetID); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM friends
			WHERE (user_id=$1 AND friend_id=$2) OR (user_id=$2 AND friend_id=$1)
		`, userID, targetID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			DELETE FROM friend_requests
			WHERE (sender_id=$1 AND recipient_id=$2) OR (sender_id=$2 AND recipient_id=$1)
		`, userID, targetID)
		return err
	})
}

func (s *Service) Unblock(ctx context.Context, userID, targetID string) error {
	_, err := s.db.Exec(ctx, `UPDATE blocked_users SET blocked_ids = array_remove(blocked_ids, $2) WHERE user_id=$1`, userID, targetID)
	return err
}

func (s *Service) Blocked(ctx context.Context, userID string) ([]string, error) {
	blocked := []string{}
	err := s.db.QueryRow(ctx, `SELECT blocked_ids FROM blocked_users WHERE user_id=$1`, userID).Scan(&blocked)
	if err != nil && !db.IsNoRows(err) {
		return nil, err
	}
	return blocked, nil
}

// Suggestions returns people userID may know, ranked by mutual friends.
// A cached page is returned at once and refreshed in the background; when the
// store fails, the cached page is served if there is one.
func (s *Service) Suggestions(ctx context.Context, userID string, page int) ([]Suggestion, error) {
	if page < 1 {
		page = 1
	}
	if s.cache != nil {
		if cached, ok := s.cache.Load(userID, page); ok {
			s.async(func() {
				if _, err := s.refreshSuggestions(context.WithoutCancel(ctx), userID, page); err != nil {
					slog.Warn("refresh suggestions", "user_id", userID, "page", page, "error", err)
				}
			})
			return cached, nil
		}
	}
	return s.refreshSuggestions(ctx, userID, page)
}

func (s *Service) refreshSuggestions(ctx context.Context, userID string, page int) ([]Suggestion, error) {
	suggestions, err := s.querySuggestions(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Save(userID, page, suggestions); err != nil {
			slog.Warn("cache suggestions", "user_id", userID, "error", err)
		}
	}
	return suggestions, nil
}

func (s *Service) querySuggestions(ctx context.Context, userID string, page int) ([]Suggestion, error) {
	rows, err := s.db.Query(ctx, `
		SELECT u.id, COUNT(*) AS mutual_count, u.username, u.profile_image_url
		FROM friends mine
		JOIN friends theirs ON theirs.user_id = mine.friend_id
		JOIN users u ON u.id = theirs.friend_id
		WHERE mine.user_id = $1
		  AND theirs.friend_id <> $1
		  AND NOT EXISTS (SELECT 1 FROM friends f WHERE f.user_id = $1 AND f.friend_id = theirs.friend_id)
		  AND NOT EXISTS (SELECT 1 FROM friend_requests r WHERE r.sender_id = $1 AND r.recipient_id = theirs.friend_id)
		  AND NOT EXISTS (SELECT 1 FROM blocked_users b WHERE b.user_id = $1 AND theirs.friend_id = ANY(b.blocked_ids))
		GROUP BY u.id, u.username, u.profile_image_url
		ORDER BY mutual_count DESC, u.username ASC
		LIMIT $2 OFFSET $3
	`, userID, suggestionsPageSize, (page-1)*suggestionsPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suggestions := []Suggestion{}
	for rows.Next() {
		var sg Suggestion
		if err := rows.Scan(&sg.ID, &sg.MutualCount, &sg.Username, &sg.ProfileImageURL); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, sg)
	}
	return suggestions, rows.Err()
}

func (s *Service) notify(ctx context.Context, ev notification.Event) {
	if s.notifier == nil {
		return
	}
	go func() {
		if err := s.notifier.Notify(context.WithoutCancel(ctx), ev); err != nil {
			slog.Error("notify", "type", ev.Type, "user_id", ev.UserID, "error", err)
		}
	}()
}
