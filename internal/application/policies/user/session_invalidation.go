package policies

import (
	"context"

	"daloamarket-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// TrackSession records sid in the user's session set so it can be revoked later.
func TrackSession(ctx context.Context, rdb *redis.Client, userID, sid string) error {
	return rdb.SAdd(ctx, middleware.UserSessionsPrefix+userID, sid).Err()
}

// DestroyUserSessions removes all sessions for a user (ban, role change).
// Deletes each session key (session:<sid>) and the user_sessions:<user_id> set.
func DestroyUserSessions(ctx context.Context, rdb *redis.Client, userID string) {
	if rdb == nil || userID == "" {
		return
	}
	key := middleware.UserSessionsPrefix + userID
	sessionIDs, err := rdb.SMembers(ctx, key).Result()
	if err != nil || len(sessionIDs) == 0 {
		rdb.Del(ctx, key)
		return
	}
	keys := make([]string, 0, len(sessionIDs)+1)
	for _, sid := range sessionIDs {
		keys = append(keys, middleware.SessionRedisPrefix+sid)
	}
	keys = append(keys, key)
	rdb.Del(ctx, keys...)
}
