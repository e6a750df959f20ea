package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"daloamarket-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// DBPinger is optional. If nil, the database is reported as disconnected.
type DBPinger interface {
	Ping() error
}

// Probe is an external HTTP dependency checked on every collection.
type Probe struct {
	Name string
	URL  string
}

// DefaultProbes are the storefront and the transactional email API.
var DefaultProbes = []Probe{
	{Name: "frontend", URL: "https://daloamarket.shop"},
	{Name: "email", URL: "https://api.resend.com"},
}

type Result struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"alloc"`
	HeapUsed int `json:"heapUsed"`
}

type TrafficInfo struct {
	TotalRequests   int         `json:"totalRequests"`
	SuccessCount    int         `json:"successCount"`
	FailedCount     int         `json:"failedCount"`
	SuccessRate     string      `json:"successRate"`
	AvgResponseTime string      `json:"avgResponseTime"`
	LastRequest     interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

// Service collects liveness data. Probes default to DefaultProbes when nil.
type Service struct {
	Rdb    *redis.Client
	DB     DBPinger
	Probes []Probe
	Client *http.Client
}

// Collect gathers dependency status, traffic counters and runtime info.
// Status is "ok" only when both the database and Redis answer.
func (s *Service) Collect(ctx context.Context) Result {
	res := Result{Dependencies: make(map[string]DepStatus)}

	dbDep := DepStatus{Status: "disconnected"}
	if s.DB != nil {
		start := time.Now()
		if err := s.DB.Ping(); err == nil {
			dbDep = DepStatus{Status: "connected", PingMs: since(start)}
		} else {
			dbDep.Status = "error"
		}
	}
	res.Dependencies["database"] = dbDep

	redisDep := DepStatus{Status: "disconnected"}
	startMs := time.Now().UnixMilli()
	res.Traffic = TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"}
	if s.Rdb != nil {
		start := time.Now()
		if err := s.Rdb.Ping(ctx).Err(); err == nil {
			redisDep = DepStatus{Status: "connected", PingMs: since(start)}
			startMs = s.traffic(ctx, &res.Traffic, startMs)
		} else {
			redisDep.Status = "error"
		}
	}
	res.Dependencies["redis"] = redisDep

	for name, dep := range s.probe(ctx) {
		res.Dependencies[name] = dep
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (time.Now().UnixMilli() - startMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	res.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc / 1024 / 1024), HeapUsed: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	res.Status = "issue"
	if dbDep.Status == "connected" && redisDep.Status == "connected" {
		res.Status = "ok"
	}
	return res
}

func (s *Service) traffic(ctx context.Context, t *TrafficInfo, startMs int64) int64 {
	vals, _ := s.Rdb.MGet(ctx,
		middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq).Result()
	str := func(i int) string {
		if i < len(vals) {
			if v, ok := vals[i].(string); ok {
				return v
			}
		}
		return ""
	}

	if v, err := strconv.ParseInt(str(4), 10, 64); err == nil {
		startMs = v
	} else {
		s.Rdb.Set(ctx, middleware.KeyStartTime, startMs, 0)
	}

	t.TotalRequests, _ = strconv.Atoi(str(0))
	t.FailedCount, _ = strconv.Atoi(str(1))
	t.SuccessCount = t.TotalRequests - t.FailedCount
	if t.TotalRequests > 0 {
		t.SuccessRate = strconv.FormatFloat(float64(t.SuccessCount)/float64(t.TotalRequests)*100, 'f', 1, 64)
	}
	sum, _ := strconv.ParseFloat(str(2), 64)
	if n, _ := strconv.Atoi(str(3)); n > 0 {
		t.AvgResponseTime = strconv.FormatFloat(sum/float64(n), 'f', 2, 64)
	}
	if raw := str(5); raw != "" {
		var last map[string]interface{}
		if json.Unmarshal([]byte(raw), &last) == nil {
			t.LastRequest = last
		}
	}
	return startMs
}

func (s *Service) probe(ctx context.Context) map[string]DepStatus {
	probes := s.Probes
	if probes == nil {
		probes = DefaultProbes
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}

	out := make(map[string]DepStatus, len(probes))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			dep := DepStatus{Status: "unreachable"}
			if ms := httpPing(ctx, client, p.URL); ms != nil {
				dep = DepStatus{Status: "reachable", PingMs: ms}
			}
			mu.Lock()
			out[p.Name] = dep
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return out
}

func httpPing(ctx context.Context, client *http.Client, url string) *int64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	resp.Body.Close()
	return since(start)
}

func since(t time.Time) *int64 {
	ms := time.Since(t).Milliseconds()
	return &ms
}

// ErrorLog returns the recorded server errors, newest first.
func (s *Service) ErrorLog(ctx context.Context) ([]map[string]interface{}, error) {
	entries, err := s.Rdb.LRange(ctx, middleware.KeyErrorLog, 0, 49).Result()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		var m map[string]interface{}
		if json.Unmarshal([]byte(e), &m) == nil && m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

// Reset clears the counters and restarts the uptime clock.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.Rdb.Del(ctx, middleware.HealthKeys...).Err(); err != nil {
		return err
	}
	return s.Rdb.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0).Err()
}
