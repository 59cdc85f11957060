package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mugisha-web/igihozo-server/internal/chat"
	"github.com/mugisha-web/igihozo-server/internal/metrics"
	"github.com/mugisha-web/igihozo-server/internal/models"
)

const (
	logKey        = "chat:messages"
	commitChannel = "chat:commits"

	sendRateWindow = time.Minute
)

// RedisLog is the production message log: a single sorted set scored by
// commit timestamp, with a pub/sub channel signalling every commit.
// Commit timestamps are assigned here, not by clients, so all writers
// share one ordering authority.
type RedisLog struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisLog connects to Redis and verifies the connection.
func NewRedisLog(ctx context.Context, redisURL string, logger zerolog.Logger) (*RedisLog, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisLog{client: client, logger: logger}, nil
}

// Close closes the Redis connection.
func (l *RedisLog) Close() error {
	return l.client.Close()
}

// Ping checks the Redis connection.
func (l *RedisLog) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Append commits a message: assigns a ULID and a commit timestamp, adds
// it to the log, and publishes a commit signal for subscribers.
func (l *RedisLog) Append(ctx context.Context, msg *models.Message) (string, error) {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().UnixMilli()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	start := time.Now()
	err = l.client.ZAdd(ctx, logKey, redis.Z{
		Score:  float64(msg.CreatedAt),
		Member: string(data),
	}).Err()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}

	if err := l.client.Publish(ctx, commitChannel, msg.ID).Err(); err != nil {
		// Subscribers will pick the message up on the next commit
		// signal; the write itself succeeded.
		l.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("commit signal publish failed")
	}

	return msg.ID, nil
}

// Snapshot returns the complete ordered member set of a channel.
func (l *RedisLog) Snapshot(ctx context.Context, ch chat.Channel) ([]models.Message, error) {
	start := time.Now()
	results, err := l.client.ZRange(ctx, logKey, 0, -1).Result()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for _, data := range results {
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		if ch.Contains(msg) {
			messages = append(messages, msg)
		}
	}

	// ZRange already orders by score; make timestamp ties stable by id
	// so snapshots never reorder between deliveries.
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt != messages[j].CreatedAt {
			return messages[i].CreatedAt < messages[j].CreatedAt
		}
		return messages[i].ID < messages[j].ID
	})

	return messages, nil
}

// Subscribe delivers the current channel snapshot, then redelivers the
// full updated snapshot on every commit signal from any writer. A
// failing re-query surfaces a terminal error; recovery is a fresh
// Subscribe, not a silent retry.
func (l *RedisLog) Subscribe(ctx context.Context, ch chat.Channel) (*chat.Subscription, error) {
	pubsub := l.client.Subscribe(ctx, commitChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	updates := make(chan []models.Message, 1)
	errs := make(chan error, 1)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			pubsub.Close()
		})
	}

	go func() {
		defer close(updates)

		snap, err := l.Snapshot(ctx, ch)
		if err != nil {
			errs <- err
			cancel()
			return
		}
		offer(updates, snap)

		for range pubsub.Channel() {
			snap, err := l.Snapshot(ctx, ch)
			if err != nil {
				errs <- err
				cancel()
				return
			}
			offer(updates, snap)
		}
	}()

	return chat.NewSubscription(updates, errs, cancel), nil
}

// offer replaces any buffered snapshot with the latest one. The buffer
// has capacity 1 and this goroutine is the only sender.
func offer(updates chan []models.Message, snap []models.Message) {
	for {
		select {
		case updates <- snap:
			return
		default:
			select {
			case <-updates:
			default:
			}
		}
	}
}

// sendRateKey returns the key for a sender's rate limit counter.
func sendRateKey(senderID string) string {
	return fmt.Sprintf("ratelimit:send:%s", senderID)
}

// AllowSend counts a send attempt against the per-sender limit and
// reports whether it is within budget.
func (l *RedisLog) AllowSend(ctx context.Context, senderID string, limit int) (bool, error) {
	key := sendRateKey(senderID)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, sendRateWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return incr.Val() <= int64(limit), nil
}
