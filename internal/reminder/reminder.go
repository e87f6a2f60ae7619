// Package reminder nudges users who have not posted recently while their
// friends have.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"brief-backend/internal/db"
	"brief-backend/internal/metrics"
	"brief-backend/internal/push"

	"github.com/robfig/cron/v3"
)

const (
	title = "Your friends are posting"
	body  = "Post a brief to see your friends' briefs"
)

// Pusher delivers a message to every device of the given users.
type Pusher interface {
	PushUsers(ctx context.Context, userIDs []string, msg push.Message)
}

type Job struct {
	db     db.Querier
	pusher Pusher
	window time.Duration
	now    func() time.Time
}

func NewJob(db db.Querier, pusher Pusher, window time.Duration) *Job {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Job{db: db, pusher: pusher, window: window, now: time.Now}
}

// Candidates returns users with no post inside the window who have at least
// one friend that posted inside it.
func (j *Job) Candidates(ctx context.Context) ([]string, error) {
	since := j.now().UTC().Add(-j.window)
	rows, err := j.db.Query(ctx, `
		SELECT DISTINCT f.user_id
		FROM friends f
		JOIN posts p ON p.user_id = f.friend_id AND p.created_at >= $1
		WHERE NOT EXISTS (
			SELECT 1 FROM posts mine
			WHERE mine.user_id = f.user_id AND mine.created_at >= $1
		)
		ORDER BY f.user_id
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Run sends one reminder round and returns the number of users reminded.
func (j *Job) Run(ctx context.Context) (int, error) {
	started := j.now()
	ids, err := j.Candidates(ctx)
	if err != nil {
		metrics.RecordReminderRun(false)
		return 0, fmt.Errorf("reminder candidates: %w", err)
	}
	if len(ids) > 0 {
		j.pusher.PushUsers(ctx, ids, push.Message{
			Title: title,
			Body:  body,
			Data:  map[string]string{"type": "reminder"},
		})
	}
	metrics.RecordReminderRun(true)
	slog.Info("reminder run finished", "reminded", len(ids), "duration", j.now().Sub(started))
	return len(ids), nil
}

// Schedule registers the job on a new cron scheduler. The caller starts and
// stops the returned scheduler.
func Schedule(ctx context.Context, job *Job, expr string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		if _, err := job.Run(ctx); err != nil {
			slog.Error("reminder run", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("reminder schedule %q: %w", expr, err)
	}
	return c, nil
}
