package contacts

import (
	"context"
	"errors"
	"strings"
	"time"

	"brief-backend/internal/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrInvalidNumber = errors.New("invalid phone number")
	ErrNumberTaken   = errors.New("phone number already registered")
)

const (
	minDigits       = 7
	maxDigits       = 15
	maxContacts     = 5000
	uniqueViolation = "23505"
)

// Match is a contact that belongs to a registered user.
type Match struct {
	PhoneNumber     string `json:"phone_number"`
	UserID          string `json:"user_id"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
}

type Service struct {
	db  db.Querier
	now func() time.Time
}

func NewService(db db.Querier) *Service {
	return &Service{db: db, now: time.Now}
}

// Normalize strips everything but digits and prefixes a '+'. It reports false
// when the result is not a plausible E.164 number.
func Normalize(raw string) (string, bool) {
	var b strings.Builder
	b.WriteByte('+')
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n := b.Len() - 1
	if n < minDigits || n > maxDigits {
		return "", false
	}
	return b.String(), true
}

// NormalizeAll normalizes numbers, dropping invalid entries and duplicates.
func NormalizeAll(numbers []string) []string {
	seen := make(map[string]struct{}, len(numbers))
	out := make([]string, 0, len(numbers))
	for _, raw := range numbers {
		n, ok := Normalize(raw)
		if !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
		if len(out) == maxContacts {
			break
		}
	}
	return out
}

// Upload replaces userID's contact list and returns the contacts that are on brief.
func (s *Service) Upload(ctx context.Context, userID string, numbers []string) ([]Match, error) {
	normalized := NormalizeAll(numbers)
	_, err := s.db.Exec(ctx, `
		INSERT INTO contact_lists (user_id, phone_numbers, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id) DO UPDATE SET phone_numbers=EXCLUDED.phone_numbers, updated_at=EXCLUDED.updated_at
	`, userID, normalized, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return s.match(ctx, userID, normalized)
}

// Matches re-runs matching against the stored contact list.
func (s *Service) Matches(ctx context.Context, userID string) ([]Match, error) {
	var numbers []string
	err := s.db.QueryRow(ctx, `SELECT phone_numbers FROM contact_lists WHERE user_id=$1`, userID).Scan(&numbers)
	if err != nil {
		if db.IsNoRows(err) {
			return []Match{}, nil
		}
		return nil, err
	}
	return s.match(ctx, userID, numbers)
}

// RegisterNumber claims number for userID, replacing any number they held.
func (s *Service) RegisterNumber(ctx context.Context, userID, raw string) (string, error) {
	number, ok := Normalize(raw)
	if !ok {
		return "", ErrInvalidNumber
	}
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM phone_numbers WHERE user_id=$1`, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO phone_numbers (phone_number, user_id) VALUES ($1,$2)`, number, userID)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", ErrNumberTaken
		}
		return "", err
	}
	return number, nil
}

func (s *Service) match(ctx context.Context, userID string, numbers []string) ([]Match, error) {
	matches := []Match{}
	if len(numbers) == 0 {
		return matches, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT pn.phone_number, u.id, u.username, u.profile_image_url
		FROM phone_numbers pn
		JOIN users u ON u.id = pn.user_id
		WHERE pn.phone_number = ANY($1) AND pn.user_id <> $2
		ORDER BY u.username
	`, numbers, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.PhoneNumber, &m.UserID, &m.Username, &m.ProfileImageURL); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
