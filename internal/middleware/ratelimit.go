package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/ecommerce-backend/internal/config"
	"github.com/iliyamo/ecommerce-backend/internal/metrics"
)

// bucketScript refills a bucket for the elapsed whole intervals and takes
// one token from it.  KEYS[1] is the bucket; ARGV is now_ms, capacity,
// refill, interval_ms and ttl_s.  It replies {taken, left, wait_ms}.
var bucketScript = redis.NewScript(`
local now, cap = tonumber(ARGV[1]), tonumber(ARGV[2])
local refill, every = tonumber(ARGV[3]), tonumber(ARGV[4])
local b = redis.call('HMGET', KEYS[1], 'n', 'at')
local n, at = tonumber(b[1]) or cap, tonumber(b[2]) or now
local steps = math.floor(math.max(0, now - at) / every)
n = math.min(cap, n + steps * refill)
at = at + steps * every
local taken, wait = 0, 0
if n >= 1 then
  taken, n = 1, n - 1
else
  wait = every - (now - at)
end
redis.call('HSET', KEYS[1], 'n', n, 'at', at)
redis.call('EXPIRE', KEYS[1], ARGV[5])
return {taken, n, wait}
`)

type bucketReply struct {
	taken bool
	left  int64
	wait  time.Duration
}

func take(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string) (bucketReply, error) {
	vals, err := bucketScript.Run(ctx, rdb, []string{key},
		time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(), int64(cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return bucketReply{}, err
	}
	if len(vals) != 3 {
		return bucketReply{}, redis.Nil
	}
	return bucketReply{taken: vals[0] == 1, left: vals[1], wait: time.Duration(vals[2]) * time.Millisecond}, nil
}

// RateLimit returns a Redis-backed token bucket middleware.  Redis
// failures let the request through.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client, m *metrics.Metrics, log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !cfg.Enabled || rdb == nil {
			return next
		}
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			r, err := take(c.Request().Context(), rdb, cfg, key)
			if err != nil {
				log.WithError(err).WithField("key", key).Warn("rate limit unavailable; request allowed")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(r.left, 10))
			if r.taken {
				return next(c)
			}

			// round up so clients never retry early
			secs := int64((r.wait + time.Second - 1) / time.Second)
			if secs < 1 {
				secs = 1
			}
			h.Set("Retry-After", strconv.FormatInt(secs, 10))
			if m != nil {
				m.RateLimitedTotal.WithLabelValues(c.Path()).Inc()
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests", "retry_after": secs})
		}
	}
}

// rateKey names the bucket for this request under cfg.Prefix.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()

	var b strings.Builder
	b.WriteString(cfg.Prefix)
	add := func(kv ...string) {
		for _, s := range kv {
			b.WriteByte(':')
			b.WriteString(s)
		}
	}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		add("ip", ip)
	case "route":
		add("route", route)
	case "ip_user_route":
		add("ip", ip, "user", userID(c), "route", route)
	default:
		add("ip", ip, "route", route)
	}
	return b.String()
}
