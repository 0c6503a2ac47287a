package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ecommerce-backend/internal/config"
	"github.com/iliyamo/ecommerce-backend/internal/metrics"
)

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

func (r cachedResponse) marshal() ([]byte, error) { return json.Marshal(r) }

func unmarshalCached(bs []byte) (cachedResponse, bool) {
	var r cachedResponse
	if err := json.Unmarshal(bs, &r); err != nil || r.Status == 0 {
		return cachedResponse{}, false
	}
	return r, true
}

// teeWriter passes the response through and keeps a copy of the body
// while it stays under limit bytes.
type teeWriter struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	limit    int
	overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	switch {
	case w.overflow:
	case w.limit > 0 && w.body.Len()+len(b) > w.limit:
		w.overflow = true
		w.body.Reset()
	default:
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// cacheKey hashes the request parts selected by the key strategy.  Keys
// live under cfg.Prefix so PurgeCache can drop them with one pattern.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	u := c.Request().URL
	var id string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		id = c.Path()
	case "method_route":
		id = c.Request().Method + " " + c.Path()
	case "method_route_query":
		id = c.Request().Method + " " + u.Path + "?" + u.RawQuery
	default: // route_query
		id = u.Path + "?" + u.RawQuery
	}
	sum := sha256.Sum256([]byte(id))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:16])
}

// ResponseCache serves repeated reads from Redis.  Only 200 responses
// are stored; X-Cache reports HIT or MISS.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client, m *metrics.Metrics) echo.MiddlewareFunc {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !cfg.Enabled || rdb == nil {
			return next
		}
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if hit, ok := unmarshalCached(bs); ok {
					if m != nil {
						m.CacheHitsTotal.WithLabelValues(c.Path()).Inc()
					}
					return replay(c, hit)
				}
			}
			if m != nil {
				m.CacheMissesTotal.WithLabelValues(c.Path()).Inc()
			}

			w := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = w
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if w.status != http.StatusOK || w.overflow {
				return nil
			}

			hdr := c.Response().Header().Clone()
			for _, h := range []string{"X-Cache", echo.HeaderXRequestID, echo.HeaderContentLength} {
				hdr.Del(h)
			}
			if bs, err := (cachedResponse{Status: w.status, Header: hdr, Body: w.body.Bytes()}).marshal(); err == nil {
				// the request context may already be done once the body is written
				_ = rdb.Set(context.WithoutCancel(ctx), key, bs, ttl).Err()
			}
			return nil
		}
	}
}

func replay(c echo.Context, r cachedResponse) error {
	h := c.Response().Header()
	for k, vals := range r.Header {
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", "HIT")
	return c.Blob(r.Status, r.Header.Get(echo.HeaderContentType), r.Body)
}

// PurgeCache deletes every cached response under prefix.
func PurgeCache(ctx context.Context, rdb *redis.Client, prefix string) error {
	if rdb == nil {
		return nil
	}
	var keys []string
	iter := rdb.Scan(ctx, 0, prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil || len(keys) == 0 {
		return err
	}
	return rdb.Del(ctx, keys...).Err()
}
