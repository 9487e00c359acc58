package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBadRequest_MatchesSentinel(t *testing.T) {
	err := BadRequest("name is required")

	assert.True(t, errors.Is(err, ErrBadRequest))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "name is required", err.Error())
}

func TestExternal_KeepsUpstreamMessage(t *testing.T) {
	upstream := errors.New("dial tcp 10.0.0.1:5432: connect: connection refused")

	err := External(upstream)

	assert.True(t, errors.Is(err, ErrBadRequest))
	assert.True(t, errors.Is(err, upstream))
	assert.Equal(t, upstream.Error(), err.Error())
}

func TestExternal_Nil(t *testing.T) {
	assert.NoError(t, External(nil))
}

func TestExternal_DoesNotDoubleWrap(t *testing.T) {
	original := BadRequest("bad config")
	wrapped := fmt.Errorf("create datasource: %w", original)

	err := External(wrapped)

	assert.Same(t, wrapped, err)
	msg, ok := Message(err)
	assert.True(t, ok)
	assert.Equal(t, "bad config", msg)
}

func TestMessage_PlainError(t *testing.T) {
	_, ok := Message(errors.New("boom"))
	assert.False(t, ok)
}
