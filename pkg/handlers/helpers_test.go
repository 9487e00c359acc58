package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

var testUser = &models.User{ID: uuid.New(), Username: "ana", Email: "ana@example.com"}

// authedRequest builds a request already carrying testUser, as RequireAuth would leave it.
func authedRequest(method, target string, body any) *http.Request {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	claims := &auth.Claims{}
	claims.Subject = testUser.Email
	return req.WithContext(auth.WithUser(req.Context(), testUser, claims))
}

// details decodes the response envelope into dst and returns the status code.
func details(t *testing.T, rec *httptest.ResponseRecorder, dst any) int {
	t.Helper()
	var envelope struct {
		Details json.RawMessage `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Details, dst))
	return rec.Code
}

// message returns the string details of a response.
func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var msg string
	details(t, rec, &msg)
	return msg
}
