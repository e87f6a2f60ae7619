package circle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"brief-backend/internal/db"
	"brief-backend/internal/post"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound  = errors.New("circle not found")
	ErrForbidden = errors.New("only the creator can change a circle")
	ErrInvalid   = errors.New("invalid circle")
	ErrConflict  = errors.New("circle name already used")
)

const uniqueViolation = "23505"

type Service struct {
	db  db.Querier
	now func() time.Time
}

func NewService(db db.Querier) *Service {
	return &Service{db: db, now: time.Now}
}

func (s *Service) Create(ctx context.Context, creatorID string, req CreateRequest) (Circle, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Circle{}, fmt.Errorf("%w: name required", ErrInvalid)
	}
	if name == post.AllFriends {
		return Circle{}, fmt.Errorf("%w: %q is reserved", ErrInvalid, post.AllFriends)
	}

	c := Circle{
		ID:        uuid.NewString(),
		Name:      name,
		CreatorID: creatorID,
		MemberIDs: normalizeMembers(creatorID, req.MemberIDs),
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO distribution_circles (id, name, creator_id, member_ids, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, c.ID, c.Name, c.CreatorID, c.MemberIDs, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Circle{}, ErrConflict
		}
		return Circle{}, err
	}
	return c, nil
}

// ListMine returns the circles userID created or belongs to.
func (s *Service) ListMine(ctx context.Context, userID string) ([]Circle, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, creator_id, member_ids, created_at
		FROM distribution_circles
		WHERE creator_id=$1 OR $1 = ANY(member_ids)
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	circles := []Circle{}
	for rows.Next() {
		var c Circle
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatorID, &c.MemberIDs, &c.CreatedAt); err != nil {
			return nil, err
		}
		circles = append(circles, c)
	}
	return circles, rows.Err()
}

// Names returns the names of circles where userID is the creator followed by
// those where userID is a member.
func (s *Service) Names(ctx context.Context, userID string) ([]string, error) {
	created, err := s.names(ctx, `SELECT name FROM distribution_circles WHERE creator_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	member, err := s.names(ctx, `SELECT name FROM distribution_circles WHERE $1 = ANY(member_ids)`, userID)
	if err != nil {
		return nil, err
	}
	return append(created, member...), nil
}

func (s *Service) names(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Service) UpdateMembers(ctx context.Context, userID, circleID string, memberIDs []string) (Circle, error) {
	c, err := s.get(ctx, circleID)
	if err != nil {
		return Circle{}, err
	}
	if c.CreatorID != userID {
		return Circle{}, ErrForbidden
	}
	c.MemberIDs = normalizeMembers(userID, memberIDs)
	if _, err := s.db.Exec(ctx, `UPDATE distribution_circles SET member_ids=$2 WHERE id=$1`, circleID, c.MemberIDs); err != nil {
		return Circle{}, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, userID, circleID string) error {
	c, err := s.get(ctx, circleID)
	if err != nil {
		return err
	}
	if c.CreatorID != userID {
		return ErrForbidden
	}
	_, err = s.db.Exec(ctx, `DELETE FROM distribution_circles WHERE id=$1`, circleID)
	return err
}

func (s *Service) get(ctx context.Context, circleID string) (Circle, error) {
	var c Circle
	err := s.db.QueryRow(ctx, `
		SELECT id, name, creator_id, member_ids, created_at
		FROM distribution_circles
		WHERE id=$1
	`, circleID).Scan(&c.ID, &c.Name, &c.CreatorID, &c.MemberIDs, &c.CreatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return Circle{}, ErrNotFound
		}
		return Circle{}, err
	}
	return c, nil
}

// normalizeMembers drops blanks, duplicates and the creator.
func normalizeMembers(creatorID string, ids []string) []string {
	out := []string{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == creatorID || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
