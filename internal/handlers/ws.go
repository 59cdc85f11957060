package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mugisha-web/igihozo-server/internal/api/middleware"
	"github.com/mugisha-web/igihozo-server/internal/chat"
	"github.com/mugisha-web/igihozo-server/internal/models"
)

// wsCommand is a client frame. "select" switches the conversation:
// an empty peer selects the broadcast room.
type wsCommand struct {
	Type string `json:"type"`
	Peer string `json:"peer,omitempty"`
}

// wsEvent is a server frame. Every "snapshot" carries the complete
// ordered member set of the current channel, not a delta.
type wsEvent struct {
	Type     string           `json:"type"` // "snapshot" or "error"
	Channel  string           `json:"channel,omitempty"`
	Messages []models.Message `json:"messages,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// newUpgrader builds a WebSocket upgrader with the configured allowed
// origins. An empty list allows same-host connections only.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(allowed) == 0 {
				return origin == "http://"+r.Host || origin == "https://"+r.Host
			}
			return allowed[origin]
		},
	}
}

// LiveStream handles GET /ws: a live subscription to the caller's
// current channel. The initial channel comes from the peer query
// parameter; subsequent "select" frames resubscribe without dropping
// the connection.
func (h *Handler) LiveStream(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetUserFromContext(r.Context())
	if caller == nil {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	upgrader := newUpgrader(h.allowedOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	connLogger := h.logger.With().
		Str("conn_id", uuid.NewString()).
		Str("user_id", caller.ID).
		Logger()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	stream := chat.NewStream(h.log, connLogger)
	defer stream.Close()

	sel := selectorFromPeer(r.URL.Query().Get("peer"))
	if err := stream.Resubscribe(ctx, chat.Resolve(sel, caller.ID)); err != nil {
		connLogger.Error().Err(err).Msg("initial subscription failed")
		conn.WriteJSON(wsEvent{Type: "error", Error: "subscription failed"})
		return
	}

	connLogger.Info().Str("channel", stream.Channel().Label()).Msg("live stream connected")

	// Reader: channel switches arrive as frames; a read error ends the
	// session.
	selects := make(chan chat.Selector)
	go func() {
		defer cancel()
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			if cmd.Type != "select" {
				continue
			}
			select {
			case selects <- selectorFromPeer(cmd.Peer):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case sel := <-selects:
			if err := stream.Resubscribe(ctx, chat.Resolve(sel, caller.ID)); err != nil {
				connLogger.Error().Err(err).Msg("resubscribe failed")
				conn.WriteJSON(wsEvent{Type: "error", Error: "subscription failed"})
				return
			}
		case snap := <-stream.Updates():
			event := wsEvent{
				Type:     "snapshot",
				Channel:  stream.Channel().Label(),
				Messages: snap,
			}
			if err := conn.WriteJSON(event); err != nil {
				connLogger.Info().Err(err).Msg("live stream client gone")
				return
			}
		case err := <-stream.Err():
			connLogger.Error().Err(err).Msg("live stream terminated")
			conn.WriteJSON(wsEvent{Type: "error", Error: "stream failed"})
			return
		case <-ctx.Done():
			return
		}
	}
}
