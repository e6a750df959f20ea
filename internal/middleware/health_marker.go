package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys shared by the health marker, the health service and the reset endpoint.
const (
	KeyReqTotal  = "health:global:req_total"
	KeyReqErrors = "health:global:req_errors"
	KeyResTime   = "health:global:res_time_total"
	KeyResCount  = "health:global:res_count"
	KeyStartTime = "health:global:start_time"
	KeyLastReq   = "health:global:last_request"
	KeyErrorLog  = "health:global:error_log"

	errorLogSize = 50
)

// HealthKeys lists every counter key (used by the reset endpoint).
var HealthKeys = []string{KeyReqTotal, KeyReqErrors, KeyResTime, KeyResCount, KeyStartTime, KeyLastReq, KeyErrorLog}

func skipHealthMarker(path string) bool {
	return path == "/" || path == "/reset" || path == "/metrics" ||
		strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon") ||
		strings.HasSuffix(path, "/messages/stream")
}

// HealthMarker records request stats in Redis and keeps the last 50 server errors.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if skipHealthMarker(path) {
			return c.Next()
		}

		start := time.Now()
		lastReq := map[string]interface{}{
			"time":   start,
			"ip":     c.IP(),
			"path":   c.OriginalURL(),
			"method": c.Method(),
		}
		b, _ := json.Marshal(lastReq)
		ctx := context.Background()
		_, _ = rdb.Set(ctx, KeyLastReq, b, 0).Result()
		_, _ = rdb.Incr(ctx, KeyReqTotal).Result()

		err := c.Next()

		ms := time.Since(start).Milliseconds()
		_, _ = rdb.Incr(ctx, KeyResCount).Result()
		_, _ = rdb.IncrByFloat(ctx, KeyResTime, float64(ms)).Result()
		status := c.Response().StatusCode()
		if err != nil || status >= fiber.StatusInternalServerError {
			_, _ = rdb.Incr(ctx, KeyReqErrors).Result()
			entry := map[string]interface{}{
				"time":     time.Now(),
				"method":   c.Method(),
				"path":     path,
				"status":   status,
				"trace_id": GetTraceID(c),
			}
			if err != nil {
				entry["error"] = err.Error()
			}
			eb, _ := json.Marshal(entry)
			pipe := rdb.TxPipeline()
			pipe.LPush(ctx, KeyErrorLog, eb)
			pipe.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
			_, _ = pipe.Exec(ctx)
		}
		return err
	}
}
