package http_middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type countingLimiter struct {
	max  int
	hits map[string]int
	err  error
}

func (l *countingLimiter) Allow(_ context.Context, subject string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.hits[subject]++
	return l.hits[subject] <= l.max, nil
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(mw...)
	engine.GET("/ping", func(ctx *gin.Context) { ctx.String(http.StatusOK, "pong") })
	return engine
}

func get(engine *gin.Engine, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := newEngine(RateLimit(&countingLimiter{max: 2, hits: map[string]int{}}, logger))

	assert.Equal(t, http.StatusOK, get(engine, nil).Code)
	assert.Equal(t, http.StatusOK, get(engine, nil).Code)
	w := get(engine, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "too many requests")
}

func TestRateLimitFailsOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := newEngine(RateLimit(&countingLimiter{err: errors.New("redis down")}, logger))

	assert.Equal(t, http.StatusOK, get(engine, nil).Code)
}

func TestCORS(t *testing.T) {
	engine := newEngine(CORS([]string{"http://localhost:3000"}))

	w := get(engine, http.Header{"Origin": {"http://localhost:3000"}})
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(engine, http.Header{"Origin": {"http://evil.example"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
