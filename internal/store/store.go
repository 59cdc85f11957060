package store

import (
	"context"

	"github.com/mugisha-web/igihozo-server/internal/models"
)

// UserStore is the read interface over staff accounts that the
// messaging core consumes. Account creation and role assignment happen
// elsewhere; this is a projection. Both PostgresUserStore and
// SQLiteUserStore implement it.
type UserStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Directory operations
	GetUser(ctx context.Context, id string) (*models.UserProfile, error)
	ListUsers(ctx context.Context) ([]models.UserProfile, error)
	CountUsers(ctx context.Context) (int64, error)
}
