package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateRule は "5/minute" 形式のルール。
type RateRule struct {
	Limit  int
	Window time.Duration
}

// ParseRateRule は "5/minute" や "100/hour" を解釈する。
func ParseRateRule(s string) (RateRule, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return RateRule{}, fmt.Errorf("invalid rate rule: %s", s)
	}
	limit, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || limit <= 0 {
		return RateRule{}, fmt.Errorf("invalid rate limit: %s", s)
	}
	var window time.Duration
	switch strings.TrimSpace(parts[1]) {
	case "second":
		window = time.Second
	case "minute":
		window = time.Minute
	case "hour":
		window = time.Hour
	case "day":
		window = 24 * time.Hour
	default:
		return RateRule{}, fmt.Errorf("invalid rate window: %s", s)
	}
	return RateRule{Limit: limit, Window: window}, nil
}

func (r RateRule) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(r.Window/time.Duration(r.Limit)), r.Limit)
}

// RateLimiter はpath+client IP単位でtoken bucketを持つ。
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rules    map[string]RateRule
	fallback RateRule
}

func NewRateLimiter(defaultRule RateRule, rules map[string]RateRule) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rules:    rules,
		fallback: defaultRule,
	}
}

func (l *RateLimiter) ruleFor(path string) RateRule {
	if rule, ok := l.rules[path]; ok {
		return rule
	}
	return l.fallback
}

func (l *RateLimiter) allow(path, ip string) bool {
	key := path + ":" + ip

	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = l.ruleFor(path).limiter()
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// Middleware は超過時に429を返す。
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if !l.allow(path, clientIP(c.Request())) {
				return c.JSON(http.StatusTooManyRequests, detailJSON("RATE_LIMIT_EXCEEDED"))
			}
			return next(c)
		}
	}
}

// X-Forwarded-Forの先頭を優先し、なければRemoteAddr。
func clientIP(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
