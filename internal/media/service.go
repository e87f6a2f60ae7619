package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"brief-backend/internal/db"

	"github.com/google/uuid"
)

const (
	KindPhoto   = "photo"
	KindAudio   = "audio"
	KindProfile = "profile"
	KindBanner  = "banner"
)

const maxUploadBytes = 10 << 20

var (
	ErrInvalidKind = errors.New("unknown media kind")
	ErrInvalidType = errors.New("content type not allowed for this kind")
	ErrTooLarge    = errors.New("upload too large")
)

type Object struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	db    db.Querier
	store Store
	now   func() time.Time
}

func NewService(db db.Querier, store Store) *Service {
	return &Service{db: db, store: store, now: time.Now}
}

// Upload stores body under the path used for kind and records the object.
// Profile and banner images have one path per user, so a new upload replaces
// the previous one.
func (s *Service) Upload(ctx context.Context, userID, kind, contentType string, size int64, body io.Reader) (Object, error) {
	path, err := objectPath(kind, userID)
	if err != nil {
		return Object{}, err
	}
	if !allowedType(kind, contentType) {
		return Object{}, fmt.Errorf("%w: %s", ErrInvalidType, contentType)
	}
	if size > maxUploadBytes {
		return Object{}, ErrTooLarge
	}

	if err := s.store.Put(ctx, path, body, contentType); err != nil {
		return Object{}, err
	}

	obj := Object{
		ID:        uuid.NewString(),
		UserID:    userID,
		Path:      path,
		URL:       s.store.URL(ctx, path),
		Kind:      kind,
		CreatedAt: s.now().UTC(),
	}
	if err := s.SaveObject(ctx, obj); err != nil {
		return Object{}, err
	}
	return obj, nil
}

func (s *Service) SaveObject(ctx context.Context, obj Object) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, path, url, kind, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, obj.ID, obj.UserID, obj.Path, obj.URL, obj.Kind, obj.CreatedAt)
	return err
}

func objectPath(kind, userID string) (string, error) {
	switch kind {
	case KindPhoto:
		return "photos/" + uuid.NewString() + ".jpg", nil
	case KindAudio:
		return "audio/" + uuid.NewString() + ".m4a", nil
	case KindProfile:
		return "profileImages/" + userID + ".jpg", nil
	case KindBanner:
		return "bannerImages/" + userID + ".jpg", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
}

func allowedType(kind, contentType string) bool {
	if kind == KindAudio {
		return strings.HasPrefix(contentType, "audio/")
	}
	return strings.HasPrefix(contentType, "image/")
}
