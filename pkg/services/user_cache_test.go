package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewCachedUserResolver_NilClientIsPassthrough(t *testing.T) {
	next := memUserRepo{newMemStore()}

	resolver := NewCachedUserResolver(next, nil, time.Minute, zap.NewNop())

	assert.Equal(t, next, resolver)
}
