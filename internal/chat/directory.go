package chat

import (
	"context"
	"sort"
	"strings"

	"github.com/mugisha-web/igihozo-server/internal/models"
)

// UserLister supplies the addressable staff accounts for the contact
// list. Implemented by the user stores in internal/store.
type UserLister interface {
	ListUsers(ctx context.Context) ([]models.UserProfile, error)
}

// Directory builds the direct-message contact list. It is a one-shot
// read per view: the list may go stale relative to concurrent account
// edits, which is accepted.
type Directory struct {
	users UserLister
}

// NewDirectory creates a directory over the given user source.
func NewDirectory(users UserLister) *Directory {
	return &Directory{users: users}
}

// ListOthers returns every addressable user except the caller, sorted
// by display name ascending.
func (d *Directory) ListOthers(ctx context.Context, callerID string) ([]models.UserProfile, error) {
	users, err := d.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	others := make([]models.UserProfile, 0, len(users))
	for _, u := range users {
		if u.ID == callerID {
			continue
		}
		others = append(others, u)
	}
	sort.SliceStable(others, func(i, j int) bool {
		return strings.ToLower(others[i].Name) < strings.ToLower(others[j].Name)
	})
	return others, nil
}
