package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"brief-backend/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL    = 15 * time.Minute
	refreshTokenTTL   = 30 * 24 * time.Hour
	minPasswordLength = 8
	uniqueViolation   = "23505"
)

var (
	ErrMissingFields      = errors.New("email, username, password required")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidUsername    = errors.New("username must be 3-30 characters of a-z, 0-9, '.' or '_'")
	ErrTaken              = errors.New("email or username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token invalid")
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9._]{3,30}$`)

type Service struct {
	secret []byte
	db     db.Querier
	now    func() time.Time
}

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

func NewService(secret string, db db.Querier) *Service {
	return &Service{secret: []byte(secret), db: db, now: time.Now}
}

// SignUp creates an account and opens its first session.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (Account, Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if email == "" || username == "" || req.Password == "" {
		return Account{}, Session{}, ErrMissingFields
	}
	if !usernamePattern.MatchString(username) {
		return Account{}, Session{}, ErrInvalidUsername
	}
	if len(req.Password) < minPasswordLength {
		return Account{}, Session{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, Session{}, err
	}

	acc := Account{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		CreatedAt:    s.now().UTC(),
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO users (id, email, username, password_hash, first_name, last_name, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
	`, acc.ID, acc.Email, acc.Username, acc.PasswordHash, acc.FirstName, acc.LastName, acc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Account{}, Session{}, ErrTaken
		}
		return Account{}, Session{}, err
	}

	sess, err := s.issue(ctx, s.db, acc.ID)
	if err != nil {
		return Account{}, Session{}, err
	}
	return acc, sess, nil
}

// SignIn checks the password of the account whose email or username is req.Login.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (Account, Session, error) {
	login := strings.ToLower(strings.TrimSpace(req.Login))
	if login == "" || req.Password == "" {
		return Account{}, Session{}, ErrInvalidCredentials
	}

	var acc Account
	err := s.db.QueryRow(ctx, `
		SELECT id, email, username, password_hash, first_name, last_name, created_at
		FROM users WHERE email = $1 OR username = $1
	`, login).Scan(&acc.ID, &acc.Email, &acc.Username, &acc.PasswordHash, &acc.FirstName, &acc.LastName, &acc.CreatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return Account{}, Session{}, ErrInvalidCredentials
		}
		return Account{}, Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)); err != nil {
		return Account{}, Session{}, ErrInvalidCredentials
	}

	sess, err := s.issue(ctx, s.db, acc.ID)
	if err != nil {
		return Account{}, Session{}, err
	}
	return acc, sess, nil
}

// Refresh consumes a refresh token and returns a new session. A token can be
// used once; the old one is revoked in the same transaction that stores the
// new one.
func (s *Service) Refresh(ctx context.Context, token string) (Session, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return Session{}, ErrTokenInvalid
	}

	var sess Session
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var owner string
		err := tx.QueryRow(ctx, `
			UPDATE refresh_tokens SET revoked_at = $2
			WHERE token = $1 AND revoked_at IS NULL AND expires_at > $2
			RETURNING user_id
		`, token, s.now().UTC()).Scan(&owner)
		if err != nil {
			if db.IsNoRows(err) {
				return ErrTokenInvalid
			}
			return err
		}
		if owner != claims.UserID {
			return ErrTokenInvalid
		}
		sess, err = s.issue(ctx, tx, owner)
		return err
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Verify returns the user of a valid access token.
func (s *Service) Verify(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", ErrTokenInvalid
	}
	return claims.UserID, nil
}

// Revoke invalidates a refresh token.
func (s *Service) Revoke(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = $2
		WHERE token = $1 AND revoked_at IS NULL
	`, token, s.now().UTC())
	return err
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Service) issue(ctx context.Context, q execer, userID string) (Session, error) {
	access, err := s.signToken(userID, accessTokenTTL)
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.signToken(userID, refreshTokenTTL)
	if err != nil {
		return Session{}, err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, refresh, s.now().UTC().Add(refreshTokenTTL))
	if err != nil {
		return Session{}, err
	}

	return Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) signToken(userID string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
