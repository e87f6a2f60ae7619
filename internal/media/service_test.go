package media

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(mock pgxmock.PgxPoolIface, store Store) *Service {
	svc := NewService(mock, store)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestUploadProfileImage(t *testing.T) {
	mock := newMock(t)
	store := NewMemoryStore("https://cdn.test")
	svc := newTestService(mock, store)

	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", "profileImages/user-1.jpg", "https://cdn.test/profileImages/user-1.jpg", KindProfile, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	obj, err := svc.Upload(context.Background(), "user-1", KindProfile, "image/jpeg", 3, strings.NewReader("jpg"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if obj.URL != "https://cdn.test/profileImages/user-1.jpg" {
		t.Fatalf("unexpected url %q", obj.URL)
	}
	if b, ok := store.Object("profileImages/user-1.jpg"); !ok || string(b) != "jpg" {
		t.Fatalf("object not stored")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUploadPhotoPath(t *testing.T) {
	mock := newMock(t)
	svc := newTestService(mock, NewMemoryStore("https://cdn.test"))

	mock.ExpectExec(`INSERT INTO storage_objects`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	obj, err := svc.Upload(context.Background(), "user-1", KindPhoto, "image/png", 10, strings.NewReader("png"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(obj.Path, "photos/") || !strings.HasSuffix(obj.Path, ".jpg") {
		t.Fatalf("unexpected path %q", obj.Path)
	}
}

func TestUploadRejects(t *testing.T) {
	svc := newTestService(newMock(t), NewMemoryStore(""))
	ctx := context.Background()

	if _, err := svc.Upload(ctx, "u", "video", "video/mp4", 1, strings.NewReader("")); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	if _, err := svc.Upload(ctx, "u", KindPhoto, "audio/mpeg", 1, strings.NewReader("")); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if _, err := svc.Upload(ctx, "u", KindAudio, "audio/mp4", maxUploadBytes+1, strings.NewReader("")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestSaveObjectError(t *testing.T) {
	mock := newMock(t)
	svc := newTestService(mock, NewMemoryStore(""))

	mock.ExpectExec(`INSERT INTO storage_objects`).WillReturnError(errors.New("save error"))
	if err := svc.SaveObject(context.Background(), Object{ID: "1", UserID: "u"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestS3StoreURL(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Config{
		Region:    "us-east-1",
		Bucket:    "brief",
		AccessKey: "key",
		SecretKey: "secret",
		Endpoint:  "http://localhost:9000/",
	})
	if err != nil {
		t.Fatalf("new s3 store: %v", err)
	}
	if got := store.URL(context.Background(), "photos/a.jpg"); got != "http://localhost:9000/brief/photos/a.jpg" {
		t.Fatalf("unexpected url %q", got)
	}

	store.presignExpiry = time.Hour
	signed := store.URL(context.Background(), "photos/a.jpg")
	if !strings.Contains(signed, "X-Amz-Signature") {
		t.Fatalf("expected presigned url, got %q", signed)
	}
}
