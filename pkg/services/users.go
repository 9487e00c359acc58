package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/repositories"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("Invalid credentials")

// dummyHash keeps Login timing the same for unknown emails.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z2aGxN1QnKp0Y2F1bY0kX5aK"

// TokenIssuer signs access tokens for a subject.
type TokenIssuer interface {
	Issue(subject string) (string, time.Time, error)
}

// AccessToken is the login response body.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

// UserService handles account creation and login.
type UserService interface {
	SignUp(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*AccessToken, error)
	List(ctx context.Context, offset, limit int) ([]*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type userService struct {
	repo   repositories.UserRepository
	tokens TokenIssuer
	logger *zap.Logger
}

// NewUserService creates a user service.
func NewUserService(repo repositories.UserRepository, tokens TokenIssuer, logger *zap.Logger) UserService {
	return &userService{
		repo:   repo,
		tokens: tokens,
		logger: logger.Named("users"),
	}
}

func (s *userService) SignUp(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, apperrors.BadRequest("username and email are required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperrors.BadRequest(fmt.Sprintf("Invalid email address: %s", email))
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.BadRequest("User with this username or email already exists")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.BadRequest("User with this username or email already exists")
		}
		return nil, err
	}

	s.logger.Info("User signed up", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*AccessToken, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, apperrors.ErrNotFound) {
		auth.VerifyPassword(dummyHash, password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		s.logger.Info("Login rejected", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return &AccessToken{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt.Unix()}, nil
}

func (s *userService) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

var (
	_ UserService       = (*userService)(nil)
	_ auth.UserResolver = (*userService)(nil)
)
