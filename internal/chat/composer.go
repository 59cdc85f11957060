package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mugisha-web/igihozo-server/internal/metrics"
	"github.com/mugisha-web/igihozo-server/internal/models"
)

// ErrEmptyMessage is returned when the trimmed message text is empty.
// Nothing reaches the store in that case.
var ErrEmptyMessage = errors.New("chat: empty message")

// Identity is the caller's profile snapshot stamped onto outgoing
// messages. It is captured at send time: later profile edits do not
// retroactively alter old messages.
type Identity struct {
	ID    string
	Name  string
	Photo string
}

// Composer validates outgoing text and appends it to the shared log.
// The subscriber-visible update arrives via the stream, not via the
// return value.
type Composer struct {
	log     Log
	trigger *Trigger
	logger  zerolog.Logger
}

// NewComposer creates a composer. trigger may be nil when no assistant
// backend is configured.
func NewComposer(log Log, trigger *Trigger, logger zerolog.Logger) *Composer {
	return &Composer{log: log, trigger: trigger, logger: logger}
}

// Send validates and commits a user message into the selected channel.
// On success the assistant trigger is evaluated as a detached task: a
// caller that goes away cannot cancel a reply already in flight. On
// failure the caller keeps its staged text and may retry.
func (c *Composer) Send(ctx context.Context, text string, sel Selector, from Identity) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	msg := &models.Message{
		Text:        text,
		SenderID:    from.ID,
		SenderName:  from.Name,
		SenderPhoto: from.Photo,
		RecipientID: sel.RecipientID(),
		IsAI:        false,
	}

	if _, err := c.log.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	metrics.MessagesSent.WithLabelValues(Resolve(sel, from.ID).Label()).Inc()

	if c.trigger != nil {
		go c.trigger.Maybe(context.WithoutCancel(ctx), *msg, sel)
	}
	return msg, nil
}
