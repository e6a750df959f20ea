package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"daloamarket-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping() error { return p.err }

func setupRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb
}

func TestCollect_NothingConnected(t *testing.T) {
	s := &Service{Probes: []Probe{}}
	res := s.Collect(context.Background())
	assert.Equal(t, "issue", res.Status)
	assert.Equal(t, "disconnected", res.Dependencies["database"].Status)
	assert.Equal(t, "disconnected", res.Dependencies["redis"].Status)
	assert.Equal(t, 0, res.Traffic.TotalRequests)
	assert.Equal(t, "100", res.Traffic.SuccessRate)
}

func TestCollect_Traffic(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	s := &Service{Rdb: rdb, DB: pinger{}, Probes: []Probe{}}

	res := s.Collect(ctx)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "connected", res.Dependencies["redis"].Status)
	assert.NotNil(t, res.Dependencies["database"].PingMs)

	require.NoError(t, rdb.Set(ctx, middleware.KeyReqTotal, "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.KeyReqErrors, "2", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.KeyResTime, "150.5", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.KeyResCount, "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.KeyLastReq, `{"method":"GET","path":"/api/listings"}`, 0).Err())

	res = s.Collect(ctx)
	assert.Equal(t, 8, res.Traffic.SuccessCount)
	assert.Equal(t, "80.0", res.Traffic.SuccessRate)
	assert.Equal(t, "15.05", res.Traffic.AvgResponseTime)
	assert.Equal(t, "/api/listings", res.Traffic.LastRequest.(map[string]interface{})["path"])
}

func TestCollect_DatabaseError(t *testing.T) {
	s := &Service{Rdb: setupRedis(t), DB: pinger{err: errors.New("down")}, Probes: []Probe{}}
	res := s.Collect(context.Background())
	assert.Equal(t, "error", res.Dependencies["database"].Status)
	assert.Equal(t, "issue", res.Status)
}

func TestCollect_Probes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := &Service{Probes: []Probe{
		{Name: "frontend", URL: srv.URL},
		{Name: "email", URL: "http://127.0.0.1:1"},
	}}
	res := s.Collect(context.Background())
	assert.Equal(t, "reachable", res.Dependencies["frontend"].Status)
	assert.Equal(t, "unreachable", res.Dependencies["email"].Status)
	assert.Nil(t, res.Dependencies["email"].PingMs)
}

func TestResetAndErrorLog(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	s := &Service{Rdb: rdb}

	require.NoError(t, rdb.LPush(ctx, middleware.KeyErrorLog, `{"path":"/api/x","status":500}`, "not json").Err())
	entries, err := s.ErrorLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/api/x", entries[0]["path"])

	require.NoError(t, rdb.Set(ctx, middleware.KeyReqTotal, "5", 0).Err())
	require.NoError(t, s.Reset(ctx))
	_, err = rdb.Get(ctx, middleware.KeyReqTotal).Result()
	assert.Equal(t, redis.Nil, err)
	_, err = rdb.Get(ctx, middleware.KeyStartTime).Result()
	assert.NoError(t, err)
}

func TestRenderDashboard(t *testing.T) {
	s := &Service{Probes: []Probe{}}
	html, err := RenderDashboard(s.Collect(context.Background()))
	require.NoError(t, err)
	assert.Contains(t, html, "DaloaMarket")
	assert.Contains(t, html, "Incident en cours")
	assert.Contains(t, html, "/health/json")
	assert.Contains(t, html, "dep-redis")
}
