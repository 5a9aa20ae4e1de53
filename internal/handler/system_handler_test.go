package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runMetricsOnce(t *testing.T, backlog BacklogFunc) systemMetrics {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewSystemHandler(backlog, zerolog.Nop())
	r := gin.New()
	r.GET("/metrics", h.SystemMetricsSSE)

	// A canceled request gets the initial frame and then returns.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	require.True(t, strings.HasPrefix(body, "data: "), body)
	require.True(t, strings.HasSuffix(body, "\n\n"), body)

	var m systemMetrics
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(body, "data: "))), &m))
	return m
}

func TestSystemMetricsSSEReportsBacklog(t *testing.T) {
	m := runMetricsOnce(t, func(context.Context) (int64, error) { return 3, nil })

	assert.Equal(t, int64(3), m.NotifyBacklog)
	assert.Positive(t, m.Goroutines)
	assert.NotEmpty(t, m.GoVersion)
	assert.Equal(t, "0m 0s", m.Uptime)

	// Heap is a part of everything the runtime holds, never all of it.
	assert.Positive(t, m.HeapSys)
	assert.Less(t, m.HeapSys, m.Sys)
}

func TestSystemMetricsSSEBacklogUnavailable(t *testing.T) {
	m := runMetricsOnce(t, func(context.Context) (int64, error) { return 0, errors.New("redis down") })
	assert.Equal(t, int64(-1), m.NotifyBacklog)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "2m 5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h 0m 1s", formatDuration(time.Hour+time.Second))
	assert.Equal(t, "1d 2h 0m 0s", formatDuration(26*time.Hour))
}
