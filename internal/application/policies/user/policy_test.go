package policies

import (
	"context"
	"testing"

	"daloamarket-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRoleAssignment(t *testing.T) {
	assert.Equal(t, ErrInvalidRole, ValidateRoleAssignment("a", "b", "superadmin"))
	assert.Equal(t, ErrSelfAction, ValidateRoleAssignment("a", "a", "user"))
	assert.NoError(t, ValidateRoleAssignment("a", "b", "admin"))
}

func TestValidateBan(t *testing.T) {
	assert.Equal(t, ErrSelfAction, ValidateBan("a", "a"))
	assert.NoError(t, ValidateBan("a", "b"))
}

func TestDestroyUserSessions(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, middleware.SessionRedisPrefix+"s1", "{}", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.SessionRedisPrefix+"s2", "{}", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.SessionRedisPrefix+"other", "{}", 0).Err())
	require.NoError(t, TrackSession(ctx, rdb, "u1", "s1"))
	require.NoError(t, TrackSession(ctx, rdb, "u1", "s2"))

	DestroyUserSessions(ctx, rdb, "u1")

	assert.False(t, mr.Exists(middleware.SessionRedisPrefix+"s1"))
	assert.False(t, mr.Exists(middleware.SessionRedisPrefix+"s2"))
	assert.False(t, mr.Exists(middleware.UserSessionsPrefix+"u1"))
	assert.True(t, mr.Exists(middleware.SessionRedisPrefix+"other"))
}
