package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/store"
)

const minPasswordLength = 8

type Service struct {
	users  store.UserStore
	tokens *Issuer
	log    zerolog.Logger
}

func NewService(users store.UserStore, tokens *Issuer, log zerolog.Logger) *Service {
	return &Service{users: users, tokens: tokens, log: log.With().Str("component", "auth").Logger()}
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, email, password string, fullName *string) (*domain.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{Email: email, FullName: fullName, PasswordHash: hash}
	if err := s.users.InsertUser(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", u.ID.String()).Msg("user registered")
	return u, nil
}

// Login checks credentials and returns a token, its expiry and the user.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, *domain.User, error) {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return "", time.Time{}, nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", time.Time{}, nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		s.log.Warn().Str("user_id", u.ID.String()).Msg("login rejected")
		return "", time.Time{}, nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	s.log.Info().Str("user_id", u.ID.String()).Msg("user logged in")
	return token, expiresAt, u, nil
}

// Me returns the caller's profile.
func (s *Service) Me(ctx context.Context) (*domain.User, error) {
	id, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.users.GetUser(ctx, id)
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
