package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"sweet_shop/internal/model"
	"sweet_shop/internal/repository"
	"sweet_shop/internal/utils"

	"github.com/rs/zerolog"
)

// AuthService provides authentication related services
type AuthService interface {
	Register(ctx context.Context, email, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Authenticate(token string) (string, error)
	IsAdmin(ctx context.Context, username string) (bool, error)
	Profile(ctx context.Context, username string) (*model.User, error)
	SetRole(ctx context.Context, username, role string) error
	ListUsers(ctx context.Context) ([]model.User, error)
}

// AdminChecker is the admin predicate the catalog services depend on
type AdminChecker interface {
	IsAdmin(ctx context.Context, username string) (bool, error)
}

// AuthOptions configures registration
type AuthOptions struct {
	// AdminUsernames receive the admin role when they register
	AdminUsernames []string
	BcryptCost     int
}

type authService struct {
	userRepo   repository.UserRepository
	jwtUtil    *utils.JWTUtil
	admins     map[string]struct{}
	bcryptCost int
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, jwtUtil *utils.JWTUtil, opts AuthOptions, logger zerolog.Logger) AuthService {
	admins := make(map[string]struct{}, len(opts.AdminUsernames))
	for _, name := range opts.AdminUsernames {
		admins[name] = struct{}{}
	}
	return &authService{
		userRepo:   userRepo,
		jwtUtil:    jwtUtil,
		admins:     admins,
		bcryptCost: opts.BcryptCost,
		logger:     logger.With().Str("component", "auth").Logger(),
	}
}

// Register creates a new user account
func (s *authService) Register(ctx context.Context, email, username, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidInput("invalid email address")
	}
	if n := len([]rune(username)); n < 3 || n > 50 {
		return nil, invalidInput("username must be between 3 and 50 characters")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if existing == nil {
		existing, err = s.userRepo.FindByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing username: %w", err)
		}
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	if !utils.IsStrongPassword(password) {
		return nil, ErrWeakPassword
	}

	hashedPassword, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := model.RoleUser
	if _, ok := s.admins[username]; ok {
		role = model.RoleAdmin
		s.logger.Info().Str("username", username).Msg("registering bootstrap admin")
	}

	user := &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user in repository: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", username).Str("role", role).Msg("user registered")
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("error finding user by username: %w", err)
	}
	if user == nil || !utils.CheckPasswordHash(password, user.PasswordHash) {
		// Same error for both cases so usernames cannot be probed
		return "", ErrInvalidCredentials
	}

	token, err := s.jwtUtil.GenerateToken(user.Username)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// Authenticate returns the username a valid token was issued for
func (s *authService) Authenticate(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	claims, err := s.jwtUtil.ValidateToken(token)
	if err != nil {
		s.logger.Debug().Err(err).Msg("token rejected")
		return "", ErrInvalidToken
	}
	return claims.Username(), nil
}

// IsAdmin looks up the stored role; unknown users are not admins
func (s *authService) IsAdmin(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("failed to look up user role: %w", err)
	}
	return user.IsAdmin(), nil
}

func (s *authService) Profile(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// SetRole grants or revokes the admin role
func (s *authService) SetRole(ctx context.Context, username, role string) error {
	if !model.ValidRole(role) {
		return invalidInput(fmt.Sprintf("unknown role %q", role))
	}
	if err := s.userRepo.SetRole(ctx, username, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to set role: %w", err)
	}
	s.logger.Info().Str("username", username).Str("role", role).Msg("user role changed")
	return nil
}

func (s *authService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
