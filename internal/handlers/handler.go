package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mugisha-web/igihozo-server/internal/chat"
	"github.com/mugisha-web/igihozo-server/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	users     store.UserStore
	log       chat.Log
	redis     *store.RedisLog // nil in development (memory log)
	composer  *chat.Composer
	directory *chat.Directory

	sendRateLimit  int
	allowedOrigins []string
	logger         zerolog.Logger
}

// NewHandler creates a new Handler with the given collaborators.
func NewHandler(users store.UserStore, log chat.Log, redis *store.RedisLog, composer *chat.Composer, directory *chat.Directory, sendRateLimit int, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		users:          users,
		log:            log,
		redis:          redis,
		composer:       composer,
		directory:      directory,
		sendRateLimit:  sendRateLimit,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
