package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pcpartshop/storefront/internal/core/domain"
	"github.com/pcpartshop/storefront/internal/port"
)

// AuthService resolves identities for the HTTP layer. It issues no
// sessions; registration returns the created user and the caller
// decides what to do with it.
type AuthService struct {
	users  port.UserRepository
	cost   int
	logger *zap.Logger
}

func NewAuthService(users port.UserRepository, bcryptCost int, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, cost: bcryptCost, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, username, password, fullName, shippingAddress string) (*domain.User, error) {
	if username == "" {
		return nil, &domain.ValidationError{Field: "username", Reason: "must not be empty"}
	}
	if len(password) < 8 {
		return nil, &domain.ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:        username,
		PasswordHash:    string(hash),
		FullName:        fullName,
		ShippingAddress: shippingAddress,
	}
	id, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id

	s.logger.Info("user registered", zap.Int64("user_id", id), zap.String("username", username))
	return user, nil
}

func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrBadCredentials
	}
	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetUser(ctx, id)
}

// EnsureAdmin creates the default admin account on first boot.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.users.GetUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.users.CreateUser(ctx, &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      true,
	})
	if err != nil {
		return err
	}
	s.logger.Info("default admin user created", zap.String("username", username))
	return nil
}
