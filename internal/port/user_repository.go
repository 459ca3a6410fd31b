package port

import (
	"context"

	"github.com/pcpartshop/storefront/internal/core/domain"
)

type UserRepository interface {
	// CreateUser returns domain.ErrUsernameTaken on a duplicate username.
	CreateUser(ctx context.Context, u *domain.User) (int64, error)

	// GetUser returns domain.ErrNotFound for an unknown id.
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}
