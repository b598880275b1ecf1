package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"materialhub/internal/config"
	"materialhub/internal/metrics"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	maxTrackedKeys = 10000
	limiterIdleTTL = 10 * time.Minute
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// keyedLimiter 每个客户端 key 一个令牌桶，最多保留 maxKeys 个
type keyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	prefix   string
	limit    rate.Limit
	burst    int
	maxKeys  int
	idleTTL  time.Duration
	now      func() time.Time
}

func newKeyedLimiter(prefix string, rpm, burst int) *keyedLimiter {
	if burst <= 0 {
		burst = rpm
	}
	return &keyedLimiter{
		limiters: make(map[string]*limiterEntry),
		prefix:   prefix,
		limit:    rate.Limit(float64(rpm) / 60.0),
		burst:    burst,
		maxKeys:  maxTrackedKeys,
		idleTTL:  limiterIdleTTL,
		now:      time.Now,
	}
}

func (l *keyedLimiter) allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	e, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= l.maxKeys {
			l.evict(now)
		}
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()
	return e.lim.Allow()
}

// evict 先清理空闲超时的 key，仍然满时淘汰最久未访问的一个；调用方持有锁
func (l *keyedLimiter) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.limiters, k)
			continue
		}
		if oldestKey == "" || e.lastSeen.Before(oldest) {
			oldestKey, oldest = k, e.lastSeen
		}
	}
	if len(l.limiters) >= l.maxKeys && oldestKey != "" {
		delete(l.limiters, oldestKey)
	}
}

func (l *keyedLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimit 按客户端限流；Paths 中第一个匹配前缀的配置优先，其余走全局配置
func RateLimit(rl config.RateLimitingConfig) gin.HandlerFunc {
	if !rl.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	var paths []*keyedLimiter
	for _, p := range rl.Paths {
		if !p.Enabled || p.Prefix == "" || p.RequestsPerMinute <= 0 {
			continue
		}
		paths = append(paths, newKeyedLimiter(p.Prefix, p.RequestsPerMinute, p.Burst))
	}
	var global *keyedLimiter
	if rl.RequestsPerMinute > 0 {
		global = newKeyedLimiter("global", rl.RequestsPerMinute, rl.Burst)
	}
	whitelist := make(map[string]bool, len(rl.WhitelistIPs))
	for _, ip := range rl.WhitelistIPs {
		whitelist[ip] = true
	}

	return func(c *gin.Context) {
		if whitelist[c.ClientIP()] {
			c.Next()
			return
		}
		key := clientKey(c, rl.KeyHeader)
		path := c.Request.URL.Path

		limiter := global
		for _, l := range paths {
			if strings.HasPrefix(path, l.prefix) {
				limiter = l
				break
			}
		}
		if limiter != nil && !limiter.allow(key) {
			metrics.IncRateLimitDrop(limiter.prefix)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too Many Requests",
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// clientKey X-Forwarded-For 取第一个地址；header 缺失时退回客户端 IP
func clientKey(c *gin.Context, header string) string {
	if header != "" {
		if v := c.GetHeader(header); v != "" {
			if strings.EqualFold(header, "X-Forwarded-For") {
				first, _, _ := strings.Cut(v, ",")
				return strings.TrimSpace(first)
			}
			return v
		}
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}
