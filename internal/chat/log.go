package chat

import (
	"context"

	"github.com/mugisha-web/igihozo-server/internal/models"
)

// Log is the append-only message log the chat core runs on. The store
// assigns ids and commit timestamps; commit order defines delivery
// order within a channel. Implementations live in internal/store.
type Log interface {
	// Append commits a message and fills in its ID and CreatedAt.
	Append(ctx context.Context, msg *models.Message) (string, error)

	// Snapshot returns the complete ordered member set of a channel.
	Snapshot(ctx context.Context, ch Channel) ([]models.Message, error)

	// Subscribe returns a live feed for a channel. The first delivery
	// carries the current snapshot; every subsequent commit into the
	// channel triggers redelivery of the full updated snapshot.
	Subscribe(ctx context.Context, ch Channel) (*Subscription, error)
}

// Subscription is a live feed of channel snapshots. Updates carries
// complete ordered snapshots, not deltas. Err delivers at most one
// terminal error, after which no further updates arrive. Cancel must be
// called when the subscriber is done.
type Subscription struct {
	updates <-chan []models.Message
	errs    <-chan error
	cancel  func()
}

// NewSubscription wraps store-provided channels into a Subscription.
func NewSubscription(updates <-chan []models.Message, errs <-chan error, cancel func()) *Subscription {
	return &Subscription{updates: updates, errs: errs, cancel: cancel}
}

// Updates returns the snapshot delivery channel.
func (s *Subscription) Updates() <-chan []models.Message {
	return s.updates
}

// Err returns the terminal error channel.
func (s *Subscription) Err() <-chan error {
	return s.errs
}

// Cancel tears down the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}
