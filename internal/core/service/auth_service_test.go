package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pcpartshop/storefront/internal/core/domain"
)

// Mock UserRepository
type mockUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{nextID: 1, users: make(map[int64]*domain.User)}
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u *domain.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return 0, domain.ErrUsernameTaken
		}
	}
	id := m.nextID
	m.nextID++
	cp := *u
	cp.ID = id
	m.users[id] = &cp
	return id, nil
}

func (m *mockUserRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func newTestAuth(users *mockUserRepo) *AuthService {
	return NewAuthService(users, bcrypt.MinCost, zap.NewNop())
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestAuth(newMockUserRepo())

	user, err := svc.Register(context.Background(), "alice", "hunter2hunter2", "Alice", "1 Main St")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.ID == 0 {
		t.Error("expected assigned user id")
	}
	if user.PasswordHash == "hunter2hunter2" {
		t.Error("password stored in plaintext")
	}

	got, err := svc.Authenticate(context.Background(), "alice", "hunter2hunter2")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, got.ID)
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	svc := newTestAuth(newMockUserRepo())
	if _, err := svc.Register(context.Background(), "alice", "hunter2hunter2", "", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err := svc.Authenticate(context.Background(), "alice", "wrong-password")
	if !errors.Is(err, domain.ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials, got: %v", err)
	}
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	svc := newTestAuth(newMockUserRepo())

	// Unknown user and wrong password are indistinguishable to the caller.
	_, err := svc.Authenticate(context.Background(), "nobody", "whatever")
	if !errors.Is(err, domain.ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials, got: %v", err)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := newTestAuth(newMockUserRepo())
	if _, err := svc.Register(context.Background(), "alice", "hunter2hunter2", "", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err := svc.Register(context.Background(), "alice", "different-pass", "", "")
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got: %v", err)
	}
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	svc := newTestAuth(newMockUserRepo())

	_, err := svc.Register(context.Background(), "alice", "short", "", "")
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
	if validation.Field != "password" {
		t.Errorf("expected password field, got %s", validation.Field)
	}
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuth(users)

	if err := svc.EnsureAdmin(context.Background(), "admin", "password"); err != nil {
		t.Fatalf("first EnsureAdmin failed: %v", err)
	}
	if err := svc.EnsureAdmin(context.Background(), "admin", "password"); err != nil {
		t.Fatalf("second EnsureAdmin failed: %v", err)
	}

	admin, err := users.GetUserByUsername(context.Background(), "admin")
	if err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if !admin.IsAdmin {
		t.Error("expected admin flag set")
	}
	if len(users.users) != 1 {
		t.Errorf("expected exactly one user, got %d", len(users.users))
	}
}
