package store

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mugisha-web/igihozo-server/internal/chat"
	"github.com/mugisha-web/igihozo-server/internal/models"
)

// MemoryLog is an in-process message log with the same append-only and
// snapshot-delivery semantics as RedisLog. It backs development mode
// (no REDIS_URL) and the core's tests.
type MemoryLog struct {
	mu       sync.Mutex
	messages []models.Message
	subs     map[int]*memorySub
	nextSub  int
}

type memorySub struct {
	channel chat.Channel
	updates chan []models.Message
	errs    chan error
}

// NewMemoryLog creates an empty in-process log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{subs: make(map[int]*memorySub)}
}

// Append commits a message and redelivers snapshots to every subscriber
// whose channel the message belongs to.
func (l *MemoryLog) Append(ctx context.Context, msg *models.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().UnixMilli()
	}
	l.messages = append(l.messages, *msg)

	for _, sub := range l.subs {
		if sub.channel.Contains(*msg) {
			offer(sub.updates, l.snapshotLocked(sub.channel))
		}
	}
	return msg.ID, nil
}

// Snapshot returns the complete ordered member set of a channel.
func (l *MemoryLog) Snapshot(ctx context.Context, ch chat.Channel) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked(ch), nil
}

// snapshotLocked filters the log in commit order. Caller holds l.mu.
func (l *MemoryLog) snapshotLocked(ch chat.Channel) []models.Message {
	snap := make([]models.Message, 0)
	for _, msg := range l.messages {
		if ch.Contains(msg) {
			snap = append(snap, msg)
		}
	}
	return snap
}

// Subscribe registers a live subscriber and delivers the current
// snapshot immediately.
func (l *MemoryLog) Subscribe(ctx context.Context, ch chat.Channel) (*chat.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	sub := &memorySub{
		channel: ch,
		updates: make(chan []models.Message, 1),
		errs:    make(chan error, 1),
	}
	l.subs[id] = sub
	offer(sub.updates, l.snapshotLocked(ch))
	l.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
			close(sub.updates)
		})
	}

	return chat.NewSubscription(sub.updates, sub.errs, cancel), nil
}

// Fail surfaces a terminal error on every active subscription. Used to
// exercise the error path.
func (l *MemoryLog) Fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, sub := range l.subs {
		select {
		case sub.errs <- err:
		default:
		}
	}
}

// Len returns the number of committed messages across all channels.
func (l *MemoryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}
