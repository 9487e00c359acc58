package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

func TestAuthHandler_SignUp(t *testing.T) {
	handler := NewAuthHandler(&mockUserService{}, zap.NewNop())
	body := `{"username": "ana", "email": "ana@example.com", "password": "Sup3rSecret"}`

	rec := httptest.NewRecorder()
	handler.SignUp(rec, httptest.NewRequest(http.MethodPost, "/auth/sign_up", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "User(email=ana@example.com) created", message(t, rec))
}

func TestAuthHandler_SignUp_WeakPassword(t *testing.T) {
	msg := "Password must: be at least 8 characters long, contain an uppercase letter"
	handler := NewAuthHandler(&mockUserService{err: apperrors.BadRequest(msg)}, zap.NewNop())
	body := `{"username": "ana", "email": "ana@example.com", "password": "short"}`

	rec := httptest.NewRecorder()
	handler.SignUp(rec, httptest.NewRequest(http.MethodPost, "/auth/sign_up", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msg, message(t, rec))
}

func TestAuthHandler_Login(t *testing.T) {
	token := &services.AccessToken{AccessToken: "abc.def.ghi", TokenType: "bearer", ExpiresAt: 1700000000}
	handler := NewAuthHandler(&mockUserService{token: token}, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email": "ana@example.com", "password": "Sup3rSecret"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"access_token": "abc.def.ghi", "token_type": "bearer", "expires_at": 1700000000}`, rec.Body.String())
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	handler := NewAuthHandler(&mockUserService{err: services.ErrInvalidCredentials}, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email": "ana@example.com", "password": "nope"}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", message(t, rec))
}
