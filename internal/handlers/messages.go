package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mugisha-web/igihozo-server/internal/api/middleware"
	"github.com/mugisha-web/igihozo-server/internal/chat"
	"github.com/mugisha-web/igihozo-server/internal/models"
)

const maxMessageBytes = 4096

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Text string `json:"text"`
	Peer string `json:"peer,omitempty"` // empty = broadcast room
}

// MessageListResponse represents a channel snapshot response.
type MessageListResponse struct {
	Channel  string           `json:"channel"` // "broadcast" or "direct"
	Messages []models.Message `json:"messages"`
}

// selectorFromPeer maps the optional peer parameter to a selector.
func selectorFromPeer(peer string) chat.Selector {
	if peer == "" {
		return chat.Broadcast()
	}
	return chat.DirectWith(peer)
}

// GetMessages handles a one-shot ordered snapshot of the caller's
// current channel. Live delivery happens over /ws.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetUserFromContext(r.Context())
	if caller == nil {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	sel := selectorFromPeer(r.URL.Query().Get("peer"))
	ch := chat.Resolve(sel, caller.ID)

	messages, err := h.log.Snapshot(r.Context(), ch)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	h.JSON(w, http.StatusOK, MessageListResponse{
		Channel:  ch.Label(),
		Messages: messages,
	})
}

// SendMessage handles posting a message into the selected channel.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetUserFromContext(r.Context())
	if caller == nil {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if len(req.Text) > maxMessageBytes {
		h.Error(w, http.StatusUnprocessableEntity, "text too long (max 4096 bytes)")
		return
	}

	// Validate the peer before committing anything.
	if req.Peer != "" {
		peer, err := h.users.GetUser(r.Context(), req.Peer)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "database error")
			return
		}
		if peer == nil {
			h.Error(w, http.StatusNotFound, "recipient not found")
			return
		}
	}

	if h.redis != nil {
		allowed, err := h.redis.AllowSend(r.Context(), caller.ID, h.sendRateLimit)
		if err != nil {
			h.logger.Warn().Err(err).Msg("send rate limit check failed")
		} else if !allowed {
			h.Error(w, http.StatusTooManyRequests, "sending too fast, slow down")
			return
		}
	}

	msg, err := h.composer.Send(r.Context(), req.Text, selectorFromPeer(req.Peer), chat.Identity{
		ID:    caller.ID,
		Name:  caller.Name,
		Photo: caller.PhotoURL,
	})
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			h.Error(w, http.StatusBadRequest, "text is required")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	h.JSON(w, http.StatusCreated, msg)
}
