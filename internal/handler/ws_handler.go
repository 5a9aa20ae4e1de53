package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/logger"
	"github.com/sistec/enquiry-backend/internal/middleware"
	"github.com/sistec/enquiry-backend/internal/notify"
	"github.com/sistec/enquiry-backend/internal/response"
	"github.com/sistec/enquiry-backend/internal/service"
	ws "github.com/sistec/enquiry-backend/internal/websocket"
)

const pingInterval = 30 * time.Second

// EventSubscriber opens a feed of moderation events.
type EventSubscriber interface {
	Subscribe(ctx context.Context) (*notify.Subscription, error)
}

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams moderation queue changes to admins.
type WSHandler struct {
	events     EventSubscriber
	moderation *service.ModerationService
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(events EventSubscriber, moderation *service.ModerationService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		events:     events,
		moderation: moderation,
		log:        logger.Component(log, "ws_handler"),
		upgrader:   buildUpgrader(allowedOrigins),
	}
}

// AdminStream godoc
// WS /api/admin/stream
// Sends a snapshot of the pending queue, then every pending/answered event.
// The client may send {"action":"ping"} or {"action":"refresh"}.
func (h *WSHandler) AdminStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub, err := h.events.Subscribe(ctx)
	if err != nil {
		failInternal(c, h.log, err, "Subscribe to moderation events failed")
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int("admin_id", claims.UserID).Logger()
	wsLog.Info().Msg("Admin connected")

	if err := h.sendSnapshot(ctx, conn); err != nil {
		wsLog.Warn().Err(err).Msg("Snapshot failed")
		return
	}

	// gorilla/websocket allows one concurrent reader and one writer: the reader
	// goroutine only forwards actions, all writes happen below.
	actions := make(chan ws.Action, 4)
	go func() {
		defer cancel()
		defer close(actions)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			select {
			case actions <- msg.Action:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			wsLog.Info().Msg("Admin disconnected")
			return

		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			err = ws.WriteTyped(conn, ws.ModerationResponse{Event: ws.EventModeration, Data: ev})

		case action, ok := <-actions:
			if !ok {
				return
			}
			switch action {
			case ws.ActionPing:
				err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			case ws.ActionRefresh:
				err = h.sendSnapshot(ctx, conn)
			default:
				err = ws.WriteError(conn, "unknown action: "+string(action))
			}

		case <-ticker.C:
			err = ws.WritePing(conn)
		}

		if err != nil {
			wsLog.Debug().Err(err).Msg("Write failed, closing stream")
			return
		}
	}
}

func (h *WSHandler) sendSnapshot(ctx context.Context, conn *websocket.Conn) error {
	pending, err := h.moderation.ListPending(ctx)
	if err != nil {
		_ = ws.WriteError(conn, "could not load pending queries")
		return err
	}
	stats, err := h.moderation.Stats(ctx)
	if err != nil {
		_ = ws.WriteError(conn, "could not load stats")
		return err
	}
	return ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Pending: pending, Stats: stats})
}
