package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"brief-backend/internal/db"
	"brief-backend/internal/media"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrInvalid  = errors.New("invalid profile")
	ErrConflict = errors.New("username already taken")
)

const (
	profileColumns  = `id, username, first_name, last_name, profile_image_url, banner_image_url, bio, created_at`
	uniqueViolation = "23505"
)

type Service struct {
	db        db.Querier
	redis     *redis.Client
	searchTTL time.Duration
	now       func() time.Time
}

func NewService(db db.Querier, redisClient *redis.Client, searchTTL time.Duration) *Service {
	if searchTTL <= 0 {
		searchTTL = 5 * time.Minute
	}
	return &Service{db: db, redis: redisClient, searchTTL: searchTTL, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	var p Profile
	err := s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE id=$1`, id).
		Scan(&p.ID, &p.Username, &p.FirstName, &p.LastName, &p.ProfileImageURL, &p.BannerImageURL, &p.Bio, &p.CreatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Profile, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if req.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*req.Username))
		if username == "" {
			return Profile{}, fmt.Errorf("%w: username required", ErrInvalid)
		}
		p.Username = username
	}
	if req.FirstName != nil {
		p.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		p.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Bio != nil {
		bio := strings.TrimSpace(*req.Bio)
		if utf8.RuneCountInString(bio) > maxBioLength {
			return Profile{}, fmt.Errorf("%w: bio must be at most %d characters", ErrInvalid, maxBioLength)
		}
		p.Bio = bio
	}

	_, err = s.db.Exec(ctx, `
		UPDATE users SET username=$2, first_name=$3, last_name=$4, bio=$5, updated_at=$6
		WHERE id=$1
	`, p.ID, p.Username, p.FirstName, p.LastName, p.Bio, s.now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Profile{}, ErrConflict
		}
		return Profile{}, err
	}
	return p, nil
}

// SetImage points the profile or banner image of userID at url.
func (s *Service) SetImage(ctx context.Context, userID, kind, url string) error {
	var column string
	switch kind {
	case media.KindProfile:
		column = "profile_image_url"
	case media.KindBanner:
		column = "banner_image_url"
	default:
		return fmt.Errorf("%w: unknown image kind %q", ErrInvalid, kind)
	}
	tag, err := s.db.Exec(ctx, `UPDATE users SET `+column+`=$2, updated_at=$3 WHERE id=$1`, userID, url, s.now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Search finds users whose username starts with query. Results are cached in
// redis per normalized query.
func (s *Service) Search(ctx context.Context, query string) ([]Profile, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []Profile{}, nil
	}

	key := searchKeyBase + query
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var out []Profile
			if err := json.Unmarshal(cached, &out); err == nil {
				return out, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			slog.Warn("search cache read", "error", err)
		}
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+profileColumns+`
		FROM users
		WHERE username ILIKE $1
		ORDER BY username
		LIMIT $2
	`, escapeLike(query)+"%", searchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Profile{}
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.FirstName, &p.LastName, &p.ProfileImageURL, &p.BannerImageURL, &p.Bio, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.redis != nil {
		if payload, err := json.Marshal(out); err == nil {
			if err := s.redis.Set(ctx, key, payload, s.searchTTL).Err(); err != nil {
				slog.Warn("search cache write", "error", err)
			}
		}
	}
	return out, nil
}

func (s *Service) RegisterPushToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token required", ErrInvalid)
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO push_tokens (user_id, token, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id, token) DO UPDATE SET updated_at=EXCLUDED.updated_at
	`, userID, token, s.now().UTC())
	return err
}

func (s *Service) DeletePushToken(ctx context.Context, userID, token string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM push_tokens WHERE user_id=$1 AND token=$2`, userID, token)
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
