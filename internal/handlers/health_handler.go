package handlers

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"materialhub/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CheckFunc 依赖探活，返回 nil 表示健康
type CheckFunc func(ctx context.Context) error

// HealthHandler 健康与就绪检查
type HealthHandler struct {
	version string
	checks  map[string]CheckFunc
	extras  map[string]func() interface{}
	logger  *logrus.Logger
}

func NewHealthHandler(version string, logger *logrus.Logger) *HealthHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HealthHandler{
		version: version,
		checks:  make(map[string]CheckFunc),
		extras:  make(map[string]func() interface{}),
		logger:  logger,
	}
}

// AddCheck 注册一个依赖探活；不健康的依赖让 /ready 返回 503
func (h *HealthHandler) AddCheck(name string, fn CheckFunc) *HealthHandler {
	h.checks[name] = fn
	return h
}

// AddDetail 注册 /health 中附带的运行时数据
func (h *HealthHandler) AddDetail(name string, fn func() interface{}) *HealthHandler {
	h.extras[name] = fn
	return h
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]ServiceInfo `json:"services"`
	System    SystemInfo             `json:"system"`
	RateLimit RateLimitInfo          `json:"rate_limit"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// ServiceInfo 单个依赖的状态
type ServiceInfo struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SystemInfo struct {
	Uptime    string `json:"uptime"`
	GoVersion string `json:"go_version"`
}

type RateLimitInfo struct {
	Dropped  uint64            `json:"dropped"`
	ByPrefix map[string]uint64 `json:"by_prefix"`
}

var startTime = time.Now()

func (h *HealthHandler) run(ctx context.Context) (map[string]ServiceInfo, bool) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]ServiceInfo, len(names))
	healthy := true
	for _, name := range names {
		start := time.Now()
		info := ServiceInfo{Status: "healthy"}
		if err := h.checks[name](ctx); err != nil {
			info.Status = "unhealthy"
			info.Error = err.Error()
			healthy = false
			h.logger.WithError(err).WithField("service", name).Warn("health check failed")
		}
		info.Latency = time.Since(start).String()
		out[name] = info
	}
	return out, healthy
}

// Health 依赖异常时状态为 degraded，但仍返回 200
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	services, healthy := h.run(ctx)
	total, by := metrics.RateLimitSnapshot()
	resp := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now(),
		Services:  services,
		System: SystemInfo{
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			GoVersion: runtime.Version(),
		},
		RateLimit: RateLimitInfo{Dropped: total, ByPrefix: by},
	}
	if !healthy {
		resp.Status = "degraded"
	}
	if len(h.extras) > 0 {
		resp.Details = make(map[string]interface{}, len(h.extras))
		for name, fn := range h.extras {
			resp.Details[name] = fn()
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	services, ready := h.run(ctx)
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "timestamp": time.Now(), "services": services})
}
