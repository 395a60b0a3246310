package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/shophub/internal/handler"
	"github.com/vasiliy-maslov/shophub/internal/user"
)

type mockAuthenticator struct {
	authenticateFunc func(ctx context.Context, token string) (*user.User, error)
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (*user.User, error) {
	return m.authenticateFunc(ctx, token)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	auth := &mockAuthenticator{
		authenticateFunc: func(ctx context.Context, token string) (*user.User, error) {
			if token == "good-token" {
				return &user.User{ID: uuid.Must(uuid.NewV4()), Role: user.RoleUser}, nil
			}
			return nil, errors.New("session not found")
		},
	}
	protected := handler.RequireAuth(auth)(okHandler())

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer bad-token", http.StatusUnauthorized},
		{"valid token", "Bearer good-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			protected.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	protected := handler.RequireAdmin(okHandler())

	t.Run("regular user rejected", func(t *testing.T) {
		u := &user.User{ID: uuid.Must(uuid.NewV4()), Role: user.RoleUser}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		protected.ServeHTTP(rec, req.WithContext(handler.WithUser(req.Context(), u)))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin allowed", func(t *testing.T) {
		u := &user.User{ID: uuid.Must(uuid.NewV4()), Role: user.RoleAdmin}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		protected.ServeHTTP(rec, req.WithContext(handler.WithUser(req.Context(), u)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no user in context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
