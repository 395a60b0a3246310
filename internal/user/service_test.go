package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/shophub/internal/user"
	"golang.org/x/crypto/bcrypt"
)

type mockRepository struct {
	createFunc        func(ctx context.Context, u *user.User) (uuid.UUID, error)
	getByIDFunc       func(ctx context.Context, id uuid.UUID) (*user.User, error)
	getByEmailFunc    func(ctx context.Context, email string) (*user.User, error)
	listFunc          func(ctx context.Context) ([]user.User, error)
	deleteFunc        func(ctx context.Context, id uuid.UUID) error
	createSessionFunc func(ctx context.Context, s *user.Session) error
	getSessionFunc    func(ctx context.Context, tokenHash string) (*user.Session, error)
	deleteSessionFunc func(ctx context.Context, tokenHash string) error
}

func (m *mockRepository) Create(ctx context.Context, u *user.User) (uuid.UUID, error) {
	if m.createFunc == nil {
		return uuid.Must(uuid.NewV4()), nil
	}
	return m.createFunc(ctx, u)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.getByEmailFunc(ctx, email)
}

func (m *mockRepository) List(ctx context.Context) ([]user.User, error) {
	return m.listFunc(ctx)
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockRepository) CreateSession(ctx context.Context, s *user.Session) error {
	if m.createSessionFunc == nil {
		return nil
	}
	return m.createSessionFunc(ctx, s)
}

func (m *mockRepository) GetSession(ctx context.Context, tokenHash string) (*user.Session, error) {
	return m.getSessionFunc(ctx, tokenHash)
}

func (m *mockRepository) DeleteSession(ctx context.Context, tokenHash string) error {
	if m.deleteSessionFunc == nil {
		return nil
	}
	return m.deleteSessionFunc(ctx, tokenHash)
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		email    string
		password string
		wantErr  error
	}{
		{"empty name", "", "test@example.com", "secret123", user.ErrInvalidInput},
		{"bad email", "Test User", "not-an-email", "secret123", user.ErrInvalidInput},
		{"short password", "Test User", "test@example.com", "abc", user.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := user.NewService(&mockRepository{})
			_, err := svc.Register(context.Background(), tt.userName, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("success normalizes email", func(t *testing.T) {
		var created *user.User
		repo := &mockRepository{
			createFunc: func(ctx context.Context, u *user.User) (uuid.UUID, error) {
				created = u
				return uuid.Must(uuid.NewV4()), nil
			},
		}

		svc := user.NewService(repo)
		u, err := svc.Register(context.Background(), "Test User", "  Test@Example.COM ", "secret123")
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "test@example.com", u.Email)
		assert.Equal(t, user.RoleUser, u.Role)
		assert.NotEqual(t, "secret123", u.PasswordHash)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := &mockRepository{
			createFunc: func(ctx context.Context, u *user.User) (uuid.UUID, error) {
				return uuid.Nil, user.ErrEmailExists
			},
		}

		svc := user.NewService(repo)
		_, err := svc.Register(context.Background(), "Test User", "test@example.com", "secret123")
		assert.ErrorIs(t, err, user.ErrEmailExists)
	})
}

func TestService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	existing := &user.User{
		ID:           uuid.Must(uuid.NewV4()),
		Email:        "test@example.com",
		PasswordHash: string(hash),
	}

	t.Run("success creates session", func(t *testing.T) {
		var session *user.Session
		repo := &mockRepository{
			getByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
				assert.Equal(t, "test@example.com", email)
				return existing, nil
			},
			createSessionFunc: func(ctx context.Context, s *user.Session) error {
				session = s
				return nil
			},
		}

		svc := user.NewService(repo)
		token, u, err := svc.Login(context.Background(), "Test@Example.com", "secret123")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, existing.ID, u.ID)

		require.NotNil(t, session)
		assert.Equal(t, existing.ID, session.UserID)
		// The raw token must never be persisted.
		assert.NotEqual(t, token, session.TokenHash)
		assert.True(t, session.ExpiresAt.After(time.Now()))
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := &mockRepository{
			getByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
				return existing, nil
			},
		}

		svc := user.NewService(repo)
		_, _, err := svc.Login(context.Background(), "test@example.com", "wrong")
		assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		repo := &mockRepository{
			getByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
				return nil, user.ErrNotFound
			},
		}

		svc := user.NewService(repo)
		_, _, err := svc.Login(context.Background(), "nobody@example.com", "secret123")
		assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	})
}

func TestService_Authenticate(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())

	t.Run("expired session", func(t *testing.T) {
		deleted := false
		repo := &mockRepository{
			getSessionFunc: func(ctx context.Context, tokenHash string) (*user.Session, error) {
				return &user.Session{
					TokenHash: tokenHash,
					UserID:    userID,
					ExpiresAt: time.Now().UTC().Add(-time.Hour),
				}, nil
			},
			deleteSessionFunc: func(ctx context.Context, tokenHash string) error {
				deleted = true
				return nil
			},
		}

		svc := user.NewService(repo)
		_, err := svc.Authenticate(context.Background(), "some-token")
		assert.ErrorIs(t, err, user.ErrSessionExpired)
		assert.True(t, deleted)
	})

	t.Run("unknown token", func(t *testing.T) {
		repo := &mockRepository{
			getSessionFunc: func(ctx context.Context, tokenHash string) (*user.Session, error) {
				return nil, user.ErrSessionNotFound
			},
		}

		svc := user.NewService(repo)
		_, err := svc.Authenticate(context.Background(), "bogus")
		assert.ErrorIs(t, err, user.ErrSessionNotFound)
	})

	t.Run("valid session resolves user", func(t *testing.T) {
		repo := &mockRepository{
			getSessionFunc: func(ctx context.Context, tokenHash string) (*user.Session, error) {
				return &user.Session{
					TokenHash: tokenHash,
					UserID:    userID,
					ExpiresAt: time.Now().UTC().Add(time.Hour),
				}, nil
			},
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*user.User, error) {
				assert.Equal(t, userID, id)
				return &user.User{ID: userID, Email: "test@example.com"}, nil
			},
		}

		svc := user.NewService(repo)
		u, err := svc.Authenticate(context.Background(), "some-token")
		require.NoError(t, err)
		assert.Equal(t, userID, u.ID)
	})
}

func TestService_Delete(t *testing.T) {
	t.Run("admin cannot be deleted", func(t *testing.T) {
		adminID := uuid.Must(uuid.NewV4())
		repo := &mockRepository{
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*user.User, error) {
				return &user.User{ID: adminID, Role: user.RoleAdmin}, nil
			},
		}

		svc := user.NewService(repo)
		err := svc.Delete(context.Background(), adminID)
		assert.ErrorIs(t, err, user.ErrCannotDeleteAdmin)
	})

	t.Run("regular user deleted", func(t *testing.T) {
		id := uuid.Must(uuid.NewV4())
		repo := &mockRepository{
			getByIDFunc: func(ctx context.Context, gotID uuid.UUID) (*user.User, error) {
				return &user.User{ID: id, Role: user.RoleUser}, nil
			},
			deleteFunc: func(ctx context.Context, gotID uuid.UUID) error {
				assert.Equal(t, id, gotID)
				return nil
			},
		}

		svc := user.NewService(repo)
		assert.NoError(t, svc.Delete(context.Background(), id))
	})
}
