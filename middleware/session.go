package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kendall-kelly/labtest-api/models"
)

const (
	// SessionCookie holds the signed session token
	SessionCookie = "session"

	sessionIssuer   = "labtest"
	sessionAudience = "labtest-web"
)

// SessionClaims are the custom claims carried in a session token
type SessionClaims struct {
	Role string `json:"role"`
}

// Validate satisfies validator.CustomClaims
func (c *SessionClaims) Validate(ctx context.Context) error {
	if !models.Role(c.Role).Valid() {
		return fmt.Errorf("session carries unknown role %q", c.Role)
	}
	return nil
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Sessions issues and validates the HS256 session tokens kept in the session cookie
type Sessions struct {
	secret    []byte
	ttl       time.Duration
	secure    bool
	validator *validator.Validator
}

// NewSessions creates a session manager. secure marks cookies Secure, which
// browsers only honour over HTTPS.
func NewSessions(secret string, ttl time.Duration, secure bool) (*Sessions, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	key := []byte(secret)

	jwtValidator, err := validator.New(
		func(ctx context.Context) (interface{}, error) { return key, nil },
		validator.HS256,
		sessionIssuer,
		[]string{sessionAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &SessionClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the session validator: %w", err)
	}

	return &Sessions{secret: key, ttl: ttl, secure: secure, validator: jwtValidator}, nil
}

// Token signs a session token for user valid from now for the session TTL
func (s *Sessions) Token(user *models.User, now time.Time) (string, error) {
	claims := tokenClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    sessionIssuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{sessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate checks a session token and returns its claims
func (s *Sessions) Validate(ctx context.Context, token string) (*validator.ValidatedClaims, error) {
	claims, err := s.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	validated, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, errors.New("unexpected session claims type")
	}
	return validated, nil
}

// Issue logs user in by setting the session cookie
func (s *Sessions) Issue(c *gin.Context, user *models.User) error {
	token, err := s.Token(user, time.Now())
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(s.ttl.Seconds()), "/", "", s.secure, true)
	return nil
}

// Clear logs the client out
func (s *Sessions) Clear(c *gin.Context) {
	s.clearCookie(c.Writer)
}

func (s *Sessions) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
