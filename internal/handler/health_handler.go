package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peterskelv123-tech/backend-offline/internal/config"
	"github.com/peterskelv123-tech/backend-offline/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const healthTimeout = 3 * time.Second

// Probe checks one backing service.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// PostgresProbe pings the connection pool.
func PostgresProbe(pool *pgxpool.Pool) Probe {
	return Probe{Name: "postgres", Check: pool.Ping}
}

// RedisProbe pings the live-session store.
func RedisProbe(rdb *redis.Client) Probe {
	return Probe{Name: "redis", Check: func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}}
}

// HealthHandler reports whether the server can reach its stores.
type HealthHandler struct {
	probes     []Probe
	queueDepth func(ctx context.Context) (int64, error)
	startTime  time.Time
	log        zerolog.Logger
}

// NewHealthHandler creates a new HealthHandler. rdb may be nil, in which
// case the attendance queue depth is not reported.
func NewHealthHandler(rdb *redis.Client, log zerolog.Logger, probes ...Probe) *HealthHandler {
	h := &HealthHandler{
		probes:    probes,
		startTime: time.Now(),
		log:       log.With().Str("component", "health_handler").Logger(),
	}
	if rdb != nil {
		h.queueDepth = func(ctx context.Context) (int64, error) {
			return rdb.LLen(ctx, config.WorkerKey.PersistAttendanceQueue).Result()
		}
	}
	return h
}

type healthReport struct {
	Status          string            `json:"status"`
	Uptime          string            `json:"uptime"`
	Checks          map[string]string `json:"checks"`
	Goroutines      int               `json:"goroutines"`
	HeapAlloc       uint64            `json:"heapAlloc"`
	AttendanceQueue *int64            `json:"attendanceQueue,omitempty"`
}

// Health godoc
// GET /health
// 200 when every store answers, 503 otherwise.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{
		Status: "ok",
		Uptime: formatDuration(time.Since(h.startTime)),
		Checks: make(map[string]string, len(h.probes)),
	}

	for _, p := range h.probes {
		if err := p.Check(ctx); err != nil {
			h.log.Warn().Err(err).Str("probe", p.Name).Msg("health check failed")
			report.Checks[p.Name] = "down"
			report.Status = "degraded"
			continue
		}
		report.Checks[p.Name] = "up"
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	report.Goroutines = runtime.NumGoroutine()
	report.HeapAlloc = ms.HeapAlloc

	if h.queueDepth != nil {
		if n, err := h.queueDepth(ctx); err == nil {
			report.AttendanceQueue = &n
		}
	}

	if report.Status != "ok" {
		response.FailWithData(c, http.StatusServiceUnavailable, response.ErrServiceUnavailable, report)
		return
	}
	response.Success(c, http.StatusOK, "Service healthy", report)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
