package user

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost  = 12
	sessionTTL  = 30 * 24 * time.Hour
	minPassword = 6
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionExpired     = errors.New("session expired")
	ErrCannotDeleteAdmin  = errors.New("cannot delete an admin user")
)

type Service interface {
	Register(ctx context.Context, name, email, password string) (*User, error)
	Login(ctx context.Context, email, password string) (string, *User, error)
	Authenticate(ctx context.Context, token string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, name, email, password string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(password) < minPassword {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: failed to hash password: %w", err)
	}

	u := &User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         RoleUser,
	}

	if _, err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("service: failed to create user: %w", err)
	}

	log.Info().Stringer("user_id", u.ID).Msg("service: user registered")
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("service: failed to fetch user by email")
		return "", nil, fmt.Errorf("service: failed to fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return "", nil, fmt.Errorf("service: failed to generate token: %w", err)
	}

	session := &Session{
		TokenHash: hashToken(token),
		UserID:    u.ID,
		ExpiresAt: time.Now().UTC().Add(sessionTTL),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to create session")
		return "", nil, fmt.Errorf("service: failed to create session: %w", err)
	}

	return token, u, nil
}

func (s *service) Authenticate(ctx context.Context, token string) (*User, error) {
	session, err := s.repo.GetSession(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch session: %w", err)
	}

	if time.Now().UTC().After(session.ExpiresAt) {
		if err := s.repo.DeleteSession(ctx, session.TokenHash); err != nil {
			log.Warn().Err(err).Msg("service: failed to delete expired session")
		}
		return nil, ErrSessionExpired
	}

	u, err := s.repo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch session user: %w", err)
	}

	return u, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to fetch user by id")
		return nil, fmt.Errorf("service: failed to fetch user by id: %w", err)
	}
	return u, nil
}

func (s *service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list users")
		return nil, fmt.Errorf("service: failed to list users: %w", err)
	}
	return users, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to fetch user for delete: %w", err)
	}
	if u.IsAdmin() {
		return ErrCannotDeleteAdmin
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to delete user")
		return fmt.Errorf("service: failed to delete user: %w", err)
	}

	log.Info().Stringer("user_id", id).Msg("service: user deleted")
	return nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Tokens are stored hashed so a leaked sessions table does not leak
// usable bearer tokens.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
