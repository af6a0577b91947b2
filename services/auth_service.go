package services

import (
	"context"
	"errors"
	"strings"

	"github.com/kendall-kelly/labtest-api/metrics"
	"github.com/kendall-kelly/labtest-api/models"
	"github.com/kendall-kelly/labtest-api/store"
	"github.com/rs/zerolog/log"
)

// RegisterInput is the registration form
type RegisterInput struct {
	Username string `form:"username" binding:"required"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
	Role     string `form:"role"`
}

// AuthService registers, authenticates and loads users
type AuthService struct {
	users   store.UserRepository
	hasher  PasswordHasher
	metrics *metrics.Metrics
}

// NewAuthService creates a new auth service instance
func NewAuthService(users store.UserRepository, hasher PasswordHasher, m *metrics.Metrics) *AuthService {
	return &AuthService{users: users, hasher: hasher, metrics: m}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new account. A taken email fails with ErrEmailExists and creates nothing.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if email == "" || username == "" || in.Password == "" {
		return nil, ErrValidation.with(nil, "Username, email and password are required")
	}

	role, ok := models.ParseRole(in.Role)
	if !ok {
		return nil, ErrValidation.with(nil, "Unknown role")
	}

	if _, err := s.users.ByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailExists.with(err, "")
		}
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("User registered")
	return user, nil
}

// Authenticate checks credentials and returns the matching user
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.ByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.LoginFailed()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.metrics.LoginFailed()
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Load returns the user with the given id
func (s *AuthService) Load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// UpdateProfile replaces the user's profile fields and returns the stored user
func (s *AuthService) UpdateProfile(ctx context.Context, id string, p models.Profile) (*models.User, error) {
	p = models.Profile{
		FullName: strings.TrimSpace(p.FullName),
		Phone:    strings.TrimSpace(p.Phone),
		DOB:      strings.TrimSpace(p.DOB),
		Address:  strings.TrimSpace(p.Address),
		Gender:   strings.TrimSpace(p.Gender),
	}
	if err := s.users.UpdateProfile(ctx, id, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.Load(ctx, id)
}
