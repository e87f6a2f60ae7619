package poke

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"brief-backend/internal/db"
	"brief-backend/internal/notification"

	"github.com/google/uuid"
)

var (
	ErrSelf       = errors.New("cannot poke yourself")
	ErrNotFriends = errors.New("can only poke friends")
	ErrRateLimit  = errors.New("too many pokes")
)

// Friends reports friendship between two users.
type Friends interface {
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, ev notification.Event) error
}

type Poke struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Service struct {
	db       db.Querier
	friends  Friends
	limiter  *Limiter
	notifier Notifier
	now      func() time.Time
}

func NewService(db db.Querier, friends Friends, limiter *Limiter, notifier Notifier) *Service {
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	return &Service{db: db, friends: friends, limiter: limiter, notifier: notifier, now: time.Now}
}

func (s *Service) Poke(ctx context.Context, senderID, recipientID string) (Poke, error) {
	if senderID == recipientID {
		return Poke{}, ErrSelf
	}
	ok, err := s.friends.AreFriends(ctx, senderID, recipientID)
	if err != nil {
		return Poke{}, err
	}
	if !ok {
		return Poke{}, ErrNotFriends
	}
	if !s.limiter.Allow(senderID) {
		return Poke{}, ErrRateLimit
	}

	p := Poke{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		CreatedAt:   s.now().UTC(),
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO pokes (id, sender_id, recipient_id, created_at)
		VALUES ($1,$2,$3,$4)
	`, p.ID, p.SenderID, p.RecipientID, p.CreatedAt)
	if err != nil {
		return Poke{}, err
	}

	if s.notifier != nil {
		ev := notification.Event{
			Type:    notification.TypePoke,
			ActorID: senderID,
			UserID:  recipientID,
			Title:   "Poke",
			Body:    "You got poked",
		}
		go func() {
			if err := s.notifier.Notify(context.WithoutCancel(ctx), ev); err != nil {
				slog.Error("notify poke", "recipient_id", recipientID, "error", err)
			}
		}()
	}
	return p, nil
}
