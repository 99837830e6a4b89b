package cache

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetrics struct {
	hits   int64
	misses int64
}

func (m *fakeMetrics) IncrementCacheHit()  { atomic.AddInt64(&m.hits, 1) }
func (m *fakeMetrics) IncrementCacheMiss() { atomic.AddInt64(&m.misses, 1) }

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)

	_, found := c.Get("missing")
	assert.False(t, found)

	c.Set("key", []byte("value"))
	data, found := c.Get("key")
	require.True(t, found)
	assert.Equal(t, []byte("value"), data)
	assert.Equal(t, 1, c.Size())
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(10 * time.Millisecond)
	c.Set("key", []byte("value"))

	time.Sleep(20 * time.Millisecond)

	_, found := c.Get("key")
	assert.False(t, found)
}

func TestCacheClear(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	c.Clear()

	assert.Equal(t, 0, c.Size())
}

func TestCacheStats(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", []byte("1"))

	stats := c.Stats()
	assert.Equal(t, 1, stats["total_items"])
	assert.Equal(t, 0, stats["expired_items"])
	assert.Equal(t, 1, stats["active_items"])
	assert.Equal(t, 60.0, stats["ttl_seconds"])
}

func newCachedRouter(c *Cache, metrics Metrics, handlerCalls *int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(c.Middleware("/api/v1/benchmark", metrics))
	r.POST("/api/v1/benchmark", func(ctx *gin.Context) {
		atomic.AddInt64(handlerCalls, 1)
		ctx.JSON(http.StatusOK, gin.H{"rows": []string{}})
	})
	r.POST("/api/v1/simulate", func(ctx *gin.Context) {
		atomic.AddInt64(handlerCalls, 1)
		ctx.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareServesSecondRequestFromCache(t *testing.T) {
	c := NewCache(time.Minute)
	metrics := &fakeMetrics{}
	var handlerCalls int64
	r := newCachedRouter(c, metrics, &handlerCalls)

	body := `{"repositories":[{"repository":"org/a"}]}`

	first := post(r, "/api/v1/benchmark", body)
	second := post(r, "/api/v1/benchmark", body)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int64(1), atomic.LoadInt64(&handlerCalls))
	assert.Equal(t, int64(1), atomic.LoadInt64(&metrics.hits))
	assert.Equal(t, int64(1), atomic.LoadInt64(&metrics.misses))
}

func TestMiddlewareKeysOnRequestBody(t *testing.T) {
	c := NewCache(time.Minute)
	metrics := &fakeMetrics{}
	var handlerCalls int64
	r := newCachedRouter(c, metrics, &handlerCalls)

	post(r, "/api/v1/benchmark", `{"repositories":[{"repository":"org/a"}]}`)
	post(r, "/api/v1/benchmark", `{"repositories":[{"repository":"org/b"}]}`)

	assert.Equal(t, int64(2), atomic.LoadInt64(&handlerCalls))
	assert.Equal(t, int64(0), atomic.LoadInt64(&metrics.hits))
}

func TestMiddlewareIgnoresOtherPaths(t *testing.T) {
	c := NewCache(time.Minute)
	metrics := &fakeMetrics{}
	var handlerCalls int64
	r := newCachedRouter(c, metrics, &handlerCalls)

	post(r, "/api/v1/simulate", `{"repository":"org/a"}`)
	post(r, "/api/v1/simulate", `{"repository":"org/a"}`)

	assert.Equal(t, int64(2), atomic.LoadInt64(&handlerCalls))
	assert.Equal(t, int64(0), atomic.LoadInt64(&metrics.hits))
	assert.Equal(t, int64(0), atomic.LoadInt64(&metrics.misses))
	assert.Equal(t, 0, c.Size())
}
