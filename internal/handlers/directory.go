package handlers

import (
	"net/http"

	"github.com/mugisha-web/igihozo-server/internal/api/middleware"
)

// DirectoryEntry represents a contact in the directory response.
type DirectoryEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// DirectoryResponse represents the contact list response.
type DirectoryResponse struct {
	Users []DirectoryEntry `json:"users"`
}

// Directory handles the contact list for the identified caller:
// every addressable user except the caller, sorted by name.
func (h *Handler) Directory(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetUserFromContext(r.Context())
	if caller == nil {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	others, err := h.directory.ListOthers(r.Context(), caller.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	entries := make([]DirectoryEntry, len(others))
	for i, user := range others {
		entries[i] = DirectoryEntry{
			ID:       user.ID,
			Name:     user.Name,
			Role:     string(user.Role),
			PhotoURL: user.PhotoURL,
		}
	}

	h.JSON(w, http.StatusOK, DirectoryResponse{Users: entries})
}
