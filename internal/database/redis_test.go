package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-redis-url")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse Redis URL")
}
