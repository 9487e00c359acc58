package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
)

// TokenCookieName is the cookie browser clients may use instead of the header.
const TokenCookieName = "lakehouse_token"

// AuthService extracts and validates tokens from HTTP requests.
type AuthService interface {
	// ValidateRequest reads the token from the Authorization header
	// (Bearer scheme) or, failing that, the lakehouse_token cookie.
	ValidateRequest(r *http.Request) (*Claims, error)
}

type authService struct {
	tokens *TokenManager
	logger *zap.Logger
}

// NewAuthService creates an AuthService backed by the token manager.
func NewAuthService(tokens *TokenManager, logger *zap.Logger) AuthService {
	return &authService{
		tokens: tokens,
		logger: logger,
	}
}

func (s *authService) ValidateRequest(r *http.Request) (*Claims, error) {
	var tokenString string

	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			s.logger.Debug("Invalid Authorization header format",
				zap.String("path", r.URL.Path))
			return nil, ErrInvalidAuthFormat
		}
		tokenString = parts[1]
	} else if cookie, err := r.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		tokenString = cookie.Value
	} else {
		s.logger.Debug("No token found in request",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method))
		return nil, ErrMissingAuthorization
	}

	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		s.logger.Debug("Token validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path))
		return nil, err
	}
	return claims, nil
}

var _ AuthService = (*authService)(nil)
