package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/pcpartshop/storefront/internal/core/domain"
)

func (m *MySQLAdapter) CreateUser(ctx context.Context, u *domain.User) (int64, error) {
	res, err := m.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, full_name, shipping_address, is_admin)
		VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, u.FullName, u.ShippingAddress, u.IsAdmin,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == erDupEntry {
			return 0, domain.ErrUsernameTaken
		}
		return 0, fmt.Errorf("insert user: %w", mapStoreErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (m *MySQLAdapter) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return m.getUser(ctx, `WHERE id = ?`, id)
}

func (m *MySQLAdapter) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return m.getUser(ctx, `WHERE username = ?`, username)
}

func (m *MySQLAdapter) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	var u domain.User
	err := m.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, full_name, shipping_address, is_admin, created_at
		FROM users `+where,
		arg,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.ShippingAddress, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
