// Package testhelpers provides shared fixtures for ekaya-lakehouse tests.
package testhelpers

import (
	"testing"
	"time"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
)

// TestJWTSecret signs tokens minted by the helpers below.
const TestJWTSecret = "test-jwt-secret"

// NewTestTokenManager returns a token manager using TestJWTSecret.
func NewTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager(TestJWTSecret, 30*time.Minute)
}

// BearerToken returns an Authorization header value for email.
func BearerToken(t *testing.T, email string) string {
	t.Helper()

	token, _, err := NewTestTokenManager().Issue(email)
	if err != nil {
		t.Fatalf("failed to issue test token: %v", err)
	}
	return "Bearer " + token
}
