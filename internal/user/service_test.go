package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"brief-backend/internal/media"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
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

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

var (
	fixedNow    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	profileCols = []string{"id", "username", "first_name", "last_name", "profile_image_url", "banner_image_url", "bio", "created_at"}
)

func newTestService(mock pgxmock.PgxPoolIface, rdb *redis.Client) *Service {
	svc := NewService(mock, rdb, time.Minute)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func profileRow(id, username string) *pgxmock.Rows {
	return pgxmock.NewRows(profileCols).AddRow(id, username, "", "", "", "", "", fixedNow)
}

func TestGet(t *testing.T) {
	mock := newMock(t)
	svc := newTestService(mock, nil)

	mock.ExpectQuery(`FROM users WHERE id=\$1`).WithArgs("u1").WillReturnRows(profileRow("u1", "ada"))
	p, err := svc.Get(context.Background(), "u1")
	if err != nil || p.Username != "ada" {
		t.Fatalf("get: %+v %v", p, err)
	}

	mock.ExpectQuery(`FROM users WHERE id=\$1`).WithArgs("nope").WillReturnRows(pgxmock.NewRows(profileCols))
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	mock := newMock(t)
	svc := newTestService(mock, nil)
	username, bio := " Ada ", "hello"

	mock.ExpectQuery(`FROM users WHERE id=\$1`).WithArgs("u1").WillReturnRows(profileRow("u1", "old"))
	mock.ExpectExec(`UPDATE users SET username`).
		WithArgs("u1", "ada", "", "", "hello", fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	p, err := svc.Update(context.Background(), "u1", UpdateRequest{Username: &username, Bio: &bio})
	if err != nil || p.Username != "ada" || p.Bio != "hello" {
		t.Fatalf("update: %+v %v", p, err)
	}

	mock.ExpectQuery(`FROM users WHERE id=\$1`).WithArgs("u1").WillReturnRows(profileRow("u1", "ada"))
	mock.ExpectExec(`UPDATE users SET username`).WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	if _, err := svc.Update(context.Background(), "u1", UpdateRequest{Username: &username}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	blank := " "
	mock.ExpectQuery(`FROM users WHERE id=\$1`).WithArgs("u1").WillReturnRows(profileRow("u1", "ada"))
	if _, err := svc.Update(context.Background(), "u1", UpdateRequest{Username: &blank}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestSetImage(t *testing.T) {
	mock := newMock(t)
	svc := newTestService(mock, nil)

	mock.ExpectExec(`UPDATE users SET banner_image_url=\$2`).
		WithArgs("u1", "https://cdn/b.jpg", fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := svc.SetImage(context.Background(), "u1", media.KindBanner, "https://cdn/b.jpg"); err != nil {
		t.Fatalf("set image: %v", err)
	}
	if err := svc.SetImage(context.Background(), "u1", media.KindPhoto, "x"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestSearchUsesCache(t *testing.T) {
	mock := newMock(t)
	mr, rdb := newRedis(t)
	svc := newTestService(mock, rdb)
	ctx := context.Background()

	mock.ExpectQuery(`WHERE username ILIKE \$1`).
		WithArgs("ad%", searchLimit).
		WillReturnRows(profileRow("u1", "ada"))

	first, err := svc.Search(ctx, " AD ")
	if err != nil || len(first) != 1 {
		t.Fatalf("search: %+v %v", first, err)
	}
	second, err := svc.Search(ctx, "ad")
	if err != nil || len(second) != 1 || second[0].ID != "u1" {
		t.Fatalf("cached search: %+v %v", second, err)
	}
	if ttl := mr.TTL(searchKeyBase + "ad"); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	mock.ExpectQuery(`WHERE username ILIKE \$1`).
		WithArgs("ad%", searchLimit).
		WillReturnRows(pgxmock.NewRows(profileCols))
	third, err := svc.Search(ctx, "ad")
	if err != nil || len(third) != 0 {
		t.Fatalf("expired cache search: %+v %v", third, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchEscapesAndHandlesEmpty(t *testing.T) {
	mock := newMock(t)
	svc := newTestService(mock, nil)

	out, err := svc.Search(context.Background(), "   ")
	if err != nil || out == nil || len(out) != 0 {
		t.Fatalf("empty search: %v %v", out, err)
	}

	mock.ExpectQuery(`ILIKE`).
		WithArgs(`a\_b\%%`, searchLimit).
		WillReturnRows(pgxmock.NewRows(profileCols))
	if _, err := svc.Search(context.Background(), "a_b%"); err != nil {
		t.Fatalf("search: %v", err)
	}
}

func TestPushTokens(t *testing.T) {
	mock := newMock(t)
	svc := newTestService(mock, nil)

	if err := svc.RegisterPushToken(context.Background(), "u1", " "); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	mock.ExpectExec(`INSERT INTO push_tokens`).
		WithArgs("u1", "tok", fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := svc.RegisterPushToken(context.Background(), "u1", "tok"); err != nil {
		t.Fatalf("register: %v", err)
	}
	mock.ExpectExec(`DELETE FROM push_tokens`).
		WithArgs("u1", "tok").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	if err := svc.DeletePushToken(context.Background(), "u1", "tok"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
