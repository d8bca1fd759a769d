package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"backend-twitter/internal/db"
	"backend-twitter/internal/form"
	"backend-twitter/internal/session"
	"backend-twitter/internal/shared/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

var (
	errInvalidCredentials = fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthenticated)
	errTokenInvalid       = fmt.Errorf("%w: token invalid", apperr.ErrUnauthenticated)
)

var (
	hashPasswordFn = bcrypt.GenerateFromPassword
	signTokenFn    = func(token *jwt.Token, secret []byte) (string, error) { return token.SignedString(secret) }
)

type Service struct {
	secret   []byte
	db       db.Querier
	sessions session.Store
	logger   *slog.Logger
}

// Claims binds a token to a user and, through the JWT id, to a session.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func NewService(secret string, db db.Querier, sessions session.Store, logger *slog.Logger) *Service {
	if sessions == nil {
		sessions = session.NewMemoryStore(refreshTokenTTL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		secret:   []byte(secret),
		db:       db,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *Service) Sessions() session.Store { return s.sessions }

func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, TokenResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := form.LoginFrom(nil, req.Email, req.Password).Validate(); err != nil {
		return User{}, TokenResponse{}, err
	}
	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, photo_url)
		VALUES ($1,$2,$3,$4,'')
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.PasswordHash, user.DisplayName)
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, TokenResponse{}, apperr.Invalid("email", "email already registered")
		}
		return User{}, TokenResponse{}, err
	}

	tokens, err := s.startSession(ctx, user)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

// SignIn checks credentials and starts a new session.
func (s *Service) SignIn(ctx context.Context, req LoginRequest) (User, TokenResponse, error) {
	user, err := s.userByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, apperr.ErrNotFound) {
		return User{}, TokenResponse{}, errInvalidCredentials
	}
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return User{}, TokenResponse{}, errInvalidCredentials
	}

	tokens, err := s.startSession(ctx, user)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

// SignOut ends the session and revokes its refresh tokens.
func (s *Service) SignOut(ctx context.Context, sess session.Session) error {
	if err := s.sessions.End(ctx, sess.ID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE session_id = $1 AND revoked_at IS NULL
	`, sess.ID)
	return err
}

// Refresh rotates a refresh token within its still-active session.
func (s *Service) Refresh(ctx context.Context, token string) (TokenResponse, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return TokenResponse{}, err
	}

	userID, expiresAt, err := s.lookupRefreshToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenResponse{}, errTokenInvalid
		}
		return TokenResponse{}, err
	}
	if userID != claims.UserID || time.Now().After(expiresAt) {
		return TokenResponse{}, errTokenInvalid
	}

	sess, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		return TokenResponse{}, err
	}
	if _, err := s.db.Exec(ctx, `UPDATE refresh_tokens SET revoked_at = now() WHERE token = $1`, token); err != nil {
		return TokenResponse{}, err
	}
	return s.GenerateTokens(ctx, sess)
}

// Authenticate resolves an access token to its live session.
func (s *Service) Authenticate(ctx context.Context, token string) (session.Session, error) {
	return authenticate(ctx, s.secret, s.sessions, token)
}

func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, display_name, photo_url, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
	return scanUser(row)
}

// UpdateProfile changes the display name and/or photo URL of uid.
func (s *Service) UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (User, error) {
	var name, photo any
	if update.DisplayName != nil {
		name = strings.TrimSpace(*update.DisplayName)
	}
	if update.PhotoURL != nil {
		photo = *update.PhotoURL
	}
	row := s.db.QueryRow(ctx, `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
		    photo_url = COALESCE($3, photo_url),
		    updated_at = now()
		WHERE id = $1
		RETURNING id, email, display_name, photo_url, password_hash, created_at, updated_at
	`, uid, name, photo)
	return scanUser(row)
}

func (s *Service) GenerateTokens(ctx context.Context, sess session.Session) (TokenResponse, error) {
	access, err := s.signToken(sess, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	refresh, err := s.signToken(sess, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, sess, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) startSession(ctx context.Context, user User) (TokenResponse, error) {
	sess, err := s.sessions.Start(ctx, user.ID, user.Email)
	if err != nil {
		return TokenResponse{}, err
	}
	tokens, err := s.GenerateTokens(ctx, sess)
	if err != nil {
		if endErr := s.sessions.End(ctx, sess.ID); endErr != nil {
			s.logger.Warn("end session after token failure", "session_id", sess.ID, "error", endErr)
		}
		return TokenResponse{}, err
	}
	return tokens, nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, display_name, photo_url, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`, email)
	return scanUser(row)
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	if err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PhotoURL, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("%w: user", apperr.ErrNotFound)
		}
		return User{}, err
	}
	return user, nil
}

func (s *Service) signToken(sess session.Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: sess.UID,
		Email:  sess.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if ttl == refreshTokenTTL {
		// Distinguishes tokens minted in the same second.
		claims.Subject = uuid.NewString()
	}

	return signTokenFn(jwt.NewWithClaims(jwt.SigningMethodHS256, claims), s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	return parseClaims(s.secret, token)
}

func (s *Service) saveRefreshToken(ctx context.Context, token string, sess session.Session, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, session_id, token, expires_at)
		VALUES ($1,$2,$3,$4,$5)
	`, uuid.NewString(), sess.UID, sess.ID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) lookupRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token)
	var userID string
	var expiresAt time.Time
	if err := row.Scan(&userID, &expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return userID, expiresAt, nil
}
