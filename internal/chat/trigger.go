package chat

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mugisha-web/igihozo-server/internal/assistant"
	"github.com/mugisha-web/igihozo-server/internal/metrics"
	"github.com/mugisha-web/igihozo-server/internal/models"
)

// Default engagement policy. The minimum length and probability are
// tuning values carried over from the original deployment.
const (
	DefaultMention     = "@system"
	DefaultMinLength   = 3
	DefaultProbability = 0.2
	DefaultTimeout     = 30 * time.Second
)

// TriggerConfig controls when the assistant weighs in on a message.
// Nil numeric fields take the defaults; an explicit zero is honored,
// so a zero probability disables random engagement entirely.
type TriggerConfig struct {
	Mention     string        // case-insensitive mention token
	MinLength   *int          // minimum trimmed length for random engagement
	Probability *float64      // chance of random engagement in the broadcast room
	Timeout     time.Duration // per-invocation budget for the assistant call
}

// Trigger decides, once per committed user message, whether to invoke
// the assistant and append its reply into the same channel. Assistant
// failures are swallowed: the triggering message is already committed
// and an assistant outage must never look like a send failure.
type Trigger struct {
	log       Log
	assistant assistant.Service

	mention     string
	minLength   int
	probability float64
	timeout     time.Duration

	rand   func() float64
	logger zerolog.Logger
}

// NewTrigger creates a trigger. randSource may be nil, in which case a
// process-local PRNG is used; tests inject fixed values to pin the
// probability branch.
func NewTrigger(log Log, svc assistant.Service, cfg TriggerConfig, randSource func() float64, logger zerolog.Logger) *Trigger {
	if randSource == nil {
		randSource = rand.Float64
	}
	t := &Trigger{
		log:         log,
		assistant:   svc,
		mention:     DefaultMention,
		minLength:   DefaultMinLength,
		probability: DefaultProbability,
		timeout:     DefaultTimeout,
		rand:        randSource,
		logger:      logger,
	}
	if cfg.Mention != "" {
		t.mention = cfg.Mention
	}
	if cfg.MinLength != nil {
		t.minLength = *cfg.MinLength
	}
	if cfg.Probability != nil {
		t.probability = *cfg.Probability
	}
	if cfg.Timeout != 0 {
		t.timeout = cfg.Timeout
	}
	return t
}

// ShouldRespond evaluates the engagement policy for a just-committed
// message. Assistant-authored messages never re-trigger, regardless of
// content. A mention fires unconditionally in any channel; otherwise
// only broadcast messages longer than the minimum length are eligible,
// and fire when the random draw falls strictly below the probability.
func (t *Trigger) ShouldRespond(msg models.Message, sel Selector) bool {
	if msg.IsAI {
		return false
	}
	if strings.Contains(strings.ToLower(msg.Text), strings.ToLower(t.mention)) {
		return true
	}
	if !sel.IsBroadcast() {
		return false
	}
	if len(strings.TrimSpace(msg.Text)) <= t.minLength {
		return false
	}
	return t.rand() < t.probability
}

// Maybe evaluates the policy and, on a hit, responds. Intended to run
// as a detached task after a successful send.
func (t *Trigger) Maybe(ctx context.Context, msg models.Message, sel Selector) {
	if !t.ShouldRespond(msg, sel) {
		return
	}
	t.Respond(ctx, msg, sel)
}

// Respond invokes the assistant and appends its reply into the same
// channel the triggering message was sent to. Errors are logged and
// counted, never surfaced to the sender.
func (t *Trigger) Respond(ctx context.Context, msg models.Message, sel Selector) {
	metrics.AssistantTriggers.Inc()

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	reply, err := t.assistant.Complete(ctx, "User asks: "+msg.Text, assistant.Persona, assistant.Temperature)
	if err != nil {
		metrics.AssistantFailures.Inc()
		t.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("assistant completion failed")
		return
	}

	aiMsg := &models.Message{
		Text:        reply,
		SenderID:    models.AssistantID,
		SenderName:  models.AssistantName,
		RecipientID: sel.RecipientID(),
		IsAI:        true,
	}
	if _, err := t.log.Append(ctx, aiMsg); err != nil {
		metrics.AssistantFailures.Inc()
		t.logger.Error().Err(err).Str("message_id", msg.ID).Msg("failed to append assistant reply")
		return
	}
	metrics.AssistantReplies.Inc()
}
