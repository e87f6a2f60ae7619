package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"brief-backend/internal/push"

	"github.com/pashagolub/pgxmock/v3"
)

var fixedNow = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

type fakePusher struct {
	users []string
	msg   push.Message
	calls int
}

func (f *fakePusher) PushUsers(_ context.Context, userIDs []string, msg push.Message) {
	f.calls++
	f.users = userIDs
	f.msg = msg
}

func newTestJob(mock pgxmock.PgxPoolIface, p Pusher) *Job {
	job := NewJob(mock, p, 24*time.Hour)
	job.now = func() time.Time { return fixedNow }
	return job
}

func TestRunPushesCandidates(t *testing.T) {
	mock := newMock(t)
	pusher := &fakePusher{}
	job := newTestJob(mock, pusher)

	mock.ExpectQuery(`SELECT DISTINCT f.user_id`).
		WithArgs(fixedNow.Add(-24 * time.Hour)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("u1").AddRow("u2"))

	n, err := job.Run(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("run: %d %v", n, err)
	}
	if pusher.calls != 1 || len(pusher.users) != 2 || pusher.msg.Body != body {
		t.Fatalf("unexpected push %+v", pusher)
	}
}

func TestRunNoCandidates(t *testing.T) {
	mock := newMock(t)
	pusher := &fakePusher{}
	job := newTestJob(mock, pusher)

	mock.ExpectQuery(`SELECT DISTINCT f.user_id`).WillReturnRows(pgxmock.NewRows([]string{"user_id"}))
	n, err := job.Run(context.Background())
	if err != nil || n != 0 || pusher.calls != 0 {
		t.Fatalf("run: %d %v calls=%d", n, err, pusher.calls)
	}
}

func TestRunQueryError(t *testing.T) {
	mock := newMock(t)
	job := newTestJob(mock, &fakePusher{})

	mock.ExpectQuery(`SELECT DISTINCT f.user_id`).WillReturnError(errors.New("boom"))
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSchedule(t *testing.T) {
	mock := newMock(t)
	job := newTestJob(mock, &fakePusher{})

	c, err := Schedule(context.Background(), job, "0 18 * * *")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Fatalf("expected one entry, got %d", len(c.Entries()))
	}
	if _, err := Schedule(context.Background(), job, "every tuesday-ish"); err == nil {
		t.Fatal("expected invalid schedule error")
	}
}
