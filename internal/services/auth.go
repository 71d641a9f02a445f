package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/vzalabardo/tomorrowmanyers/internal/apperrors"
	"github.com/vzalabardo/tomorrowmanyers/internal/models"
	"github.com/vzalabardo/tomorrowmanyers/internal/validation"
)

const (
	// bcryptCost puts a hash at roughly 100ms on current hardware.
	bcryptCost = 10
	// DefaultSessionTTL is the lifetime of a session token.
	DefaultSessionTTL = 30 * 24 * time.Hour
)

// errInvalidToken is returned for any token that fails verification.
var errInvalidToken = apperrors.New(apperrors.ErrUnauthenticated, "invalid session")

// maxPasswordBytes is the bcrypt input limit. Validator lengths count
// runes, so multibyte passwords are checked separately.
const maxPasswordBytes = 72

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// AuthService handles password hashing, session tokens and the
// register/login flows.
type AuthService struct {
	users     UserStore
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
	dummyHash []byte
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithClock overrides the time source used for token issue and expiry.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithSessionTTL overrides DefaultSessionTTL.
func WithSessionTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, jwtSecret string, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		ttl:       DefaultSessionTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Compared against when the email is unknown so both login failures
	// cost one bcrypt verification.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	return s
}

// TTL returns the session lifetime.
func (s *AuthService) TTL() time.Duration {
	return s.ttl
}

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken creates a signed session token for userID and returns it with
// its expiry.
func (s *AuthService) IssueToken(userID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateToken verifies the signature and expiry of a session token and
// returns its user ID.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", errInvalidToken
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.jwtSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	if claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// Register creates a new user. A duplicate email is a validation error.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := checkPasswordBytes(req.Password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID).Msg("User registered")
	user.PasswordHash = ""
	return user, nil
}

// Login checks the credentials and returns the user. Unknown emails and
// wrong passwords both yield apperrors.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := checkPasswordBytes(req.Password); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !VerifyPassword(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	user.PasswordHash = ""
	return user, nil
}

// CurrentUser resolves a session token to its user. It returns nil without
// error when the token is invalid or the user no longer exists.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.ValidateToken(token)
	if err != nil {
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func checkPasswordBytes(password string) error {
	if len(password) > maxPasswordBytes {
		return apperrors.Validation(map[string]string{"password": "must be at most 72 bytes"})
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
