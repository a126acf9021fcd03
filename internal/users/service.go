package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docmanager-backend/internal/shared/auth"
)

const defaultSearchLimit = 20

type Service struct {
	Repo       Repo
	Sessions   *auth.Issuer
	BcryptCost int
}

func NewService(repo Repo, sessions *auth.Issuer, bcryptCost int) *Service {
	return &Service{Repo: repo, Sessions: sessions, BcryptCost: bcryptCost}
}

// Register creates an account with the user role. No token is issued.
func (s *Service) Register(ctx context.Context, email, fullName, password string) (User, error) {
	email = strings.TrimSpace(email)
	fullName = strings.TrimSpace(fullName)
	if email == "" || password == "" {
		return User{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	return s.create(ctx, email, fullName, password, RoleUser)
}

func (s *Service) create(ctx context.Context, email, fullName, password, role string) (User, error) {
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return User{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := auth.HashPassword(password, s.BcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return User{}, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, auth.MaxPasswordBytes)
	}
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login verifies credentials and issues an access token. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (auth.Token, User, error) {
	if s.Sessions == nil {
		return auth.Token{}, User{}, errors.New("session issuer not configured")
	}
	user, err := s.Repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.Token{}, User{}, ErrInvalidCredentials
		}
		return auth.Token{}, User{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return auth.Token{}, User{}, ErrInvalidCredentials
	}
	tok, err := s.Sessions.Issue(user.Email)
	if err != nil {
		return auth.Token{}, User{}, err
	}
	return tok, user, nil
}

// Logout revokes the presented token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if s.Sessions == nil {
		return errors.New("session issuer not configured")
	}
	return s.Sessions.Revoke(ctx, token)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	if strings.TrimSpace(email) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByEmail(ctx, email)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

// Search returns users whose email or full name contains query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []User{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = defaultSearchLimit
	}
	return s.Repo.Search(ctx, query, limit)
}

// EnsureAdmin creates an admin account unless one already exists.
// The boolean reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, fullName, password string) (User, bool, error) {
	exists, err := s.Repo.HasAdmin(ctx)
	if err != nil {
		return User{}, false, err
	}
	if exists {
		return User{}, false, nil
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return User{}, false, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	user, err := s.create(ctx, email, strings.TrimSpace(fullName), password, RoleAdmin)
	if err != nil {
		return User{}, false, err
	}
	return user, true, nil
}
