package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/logger"
)

const metricsInterval = 7 * time.Second

// BacklogFunc reports the depth of a background queue.
type BacklogFunc func(ctx context.Context) (int64, error)

// SystemHandler streams Go runtime and queue metrics to admins via SSE.
type SystemHandler struct {
	backlog   BacklogFunc
	startTime time.Time
	interval  time.Duration
	log       zerolog.Logger
}

func NewSystemHandler(backlog BacklogFunc, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		backlog:   backlog,
		startTime: time.Now(),
		interval:  metricsInterval,
		log:       logger.Component(log, "system_handler"),
	}
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`

	// -1 when the queue could not be read.
	NotifyBacklog int64 `json:"notify_backlog"`
}

// SystemMetricsSSE godoc
// GET /api/admin/system/metrics
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.log.Info().Msg("Admin connected to system metrics SSE")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	// Send immediately on connect, then every tick
	h.writeMetrics(c)

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Admin disconnected from system metrics SSE")
			return
		case <-ticker.C:
			h.writeMetrics(c)
		}
	}
}

func (h *SystemHandler) writeMetrics(c *gin.Context) {
	data, err := json.Marshal(h.collect(c.Request.Context()))
	if err != nil {
		return
	}
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(data)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m := systemMetrics{
		Timestamp:     time.Now().Unix(),
		Uptime:        formatDuration(time.Since(h.startTime)),
		Goroutines:    runtime.NumGoroutine(),
		HeapAlloc:     ms.HeapAlloc,
		HeapSys:       ms.HeapSys,
		Sys:           ms.Sys,
		NumGC:         ms.NumGC,
		GoVersion:     runtime.Version(),
		NumCPU:        runtime.NumCPU(),
		NotifyBacklog: -1,
	}

	if h.backlog != nil {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if n, err := h.backlog(qctx); err == nil {
			m.NotifyBacklog = n
		} else {
			h.log.Warn().Err(err).Msg("Failed to read notify backlog")
		}
	}

	return m
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
