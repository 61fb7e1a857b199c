package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/orgchart/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Subject identifies the account a token was issued for.
type Subject struct {
	Username string
	UserID   string
}

// Claims carries the registered claims plus the account ID. The username
// travels in "sub".
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// TokenService issues and verifies session tokens.
type TokenService interface {
	Issue(subject Subject) (string, error)
	// Verify returns common.ErrTokenMalformed, common.ErrInvalidToken or
	// common.ErrTokenExpired for tokens that must be rejected. Any other
	// error is an unexpected fault.
	Verify(token string) (Subject, error)
	Valid(token string) (Subject, bool)
}

// JWTService signs HS256 tokens. Its policy is fixed at construction, so a
// single instance is shared by every request goroutine.
type JWTService struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	now      func() time.Time
}

type Option func(*JWTService)

// WithIssuer sets the "iss" claim and requires it on verification.
func WithIssuer(issuer string) Option {
	return func(s *JWTService) { s.issuer = issuer }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) { s.now = now }
}

func NewJWTService(secret []byte, lifetime time.Duration, opts ...Option) (*JWTService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %s", lifetime)
	}

	s := &JWTService{
		secret:   append([]byte(nil), secret...),
		lifetime: lifetime,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *JWTService) Issue(subject Subject) (string, error) {
	if subject.Username == "" {
		return "", errors.New("token subject must not be empty")
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.Username,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			ID:        uuid.NewString(),
		},
		UserID: subject.UserID,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *JWTService) Verify(tokenString string) (Subject, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithStrictDecoding(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return Subject{}, mapJWTError(err)
	}

	if !token.Valid || claims.Subject == "" {
		return Subject{}, common.ErrInvalidToken
	}

	return Subject{Username: claims.Subject, UserID: claims.UserID}, nil
}

func (s *JWTService) Valid(tokenString string) (Subject, bool) {
	subject, err := s.Verify(tokenString)
	if err != nil {
		return Subject{}, false
	}
	return subject, true
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return common.ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return common.ErrInvalidToken
	default:
		return fmt.Errorf("verify token: %w", err)
	}
}

// IsRejection reports whether err is one of the verification outcomes that
// mean "bad token" rather than "verifier broke".
func IsRejection(err error) bool {
	return errors.Is(err, common.ErrInvalidToken) ||
		errors.Is(err, common.ErrTokenExpired) ||
		errors.Is(err, common.ErrTokenMalformed)
}
