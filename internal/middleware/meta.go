package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const metaContextKey = "response_meta"

// Keys surfaced under "meta" in the response envelope.
const (
	MetaCacheHit   = "cache_hit"
	MetaCount      = "count"
	MetaWindowDays = "window_days"
	MetaElapsedMS  = "elapsed_ms"
)

type responseMeta struct {
	started time.Time
	values  map[string]interface{}
}

// WithResponseMeta starts request timing and collects envelope meta values.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(metaContextKey, &responseMeta{started: time.Now(), values: map[string]interface{}{}})
		c.Next()
	}
}

// SetMeta records one meta value for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if m := metaOf(c, true); m != nil {
		m.values[key] = value
	}
}

// SetCacheHit records whether the payload was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, MetaCacheHit, hit)
}

// ExtractMeta snapshots the recorded values. elapsed_ms is added when
// WithResponseMeta timed the request. Returns nil when nothing was recorded.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	m := metaOf(c, false)
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m.values)+1)
	for k, v := range m.values {
		out[k] = v
	}
	if !m.started.IsZero() {
		out[MetaElapsedMS] = time.Since(m.started).Milliseconds()
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func metaOf(c *gin.Context, create bool) *responseMeta {
	if c == nil {
		return nil
	}
	if v, ok := c.Get(metaContextKey); ok {
		if m, ok := v.(*responseMeta); ok {
			return m
		}
	}
	if !create {
		return nil
	}
	m := &responseMeta{values: map[string]interface{}{}}
	c.Set(metaContextKey, m)
	return m
}
