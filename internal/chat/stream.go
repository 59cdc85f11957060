package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mugisha-web/igihozo-server/internal/metrics"
	"github.com/mugisha-web/igihozo-server/internal/models"
)

// State is the lifecycle state of a Stream.
type State int

const (
	StateIdle State = iota
	StateSubscribing
	StateActive
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Stream binds one view to at most one live log subscription at a time.
// Resubscribe tears down the previous subscription before the new one
// delivers, so a view never sees a union of two channels, not even
// transiently. Deliveries are latest-wins: a slow consumer skips
// superseded snapshots, never receives a stale one.
type Stream struct {
	log    Log
	logger zerolog.Logger

	mu      sync.Mutex
	state   State
	channel Channel
	gen     int
	cancel  func()
	closed  bool

	updates chan []models.Message
	errs    chan error
}

// NewStream creates an idle stream over the given log.
func NewStream(log Log, logger zerolog.Logger) *Stream {
	return &Stream{
		log:     log,
		logger:  logger,
		updates: make(chan []models.Message, 1),
		errs:    make(chan error, 1),
	}
}

// Updates returns the snapshot delivery channel for the current channel.
func (s *Stream) Updates() <-chan []models.Message {
	return s.updates
}

// Err delivers the terminal error of the current subscription, if any.
func (s *Stream) Err() <-chan error {
	return s.errs
}

// State returns the current lifecycle state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Channel returns the currently subscribed channel.
func (s *Stream) Channel() Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// Resubscribe cancels any prior subscription and establishes a new one
// for the given channel. Deliveries from the prior subscription that
// are still in flight are dropped, including anything already buffered.
func (s *Stream) Resubscribe(ctx context.Context, ch Channel) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return context.Canceled
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	gen := s.gen
	s.state = StateSubscribing
	s.channel = ch
	s.drainLocked()
	s.mu.Unlock()

	sub, err := s.log.Subscribe(ctx, ch)
	if err != nil {
		s.mu.Lock()
		if gen == s.gen {
			s.state = StateError
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if gen != s.gen || s.closed {
		// A newer Resubscribe (or Close) won the race.
		s.mu.Unlock()
		sub.Cancel()
		return nil
	}
	s.cancel = sub.Cancel
	s.state = StateActive
	s.mu.Unlock()

	go s.pump(gen, sub, ch.Label())
	return nil
}

// Close cancels the active subscription and marks the stream done.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.state = StateIdle
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.drainLocked()
}

// pump forwards deliveries from one subscription generation until it
// ends or is superseded.
func (s *Stream) pump(gen int, sub *Subscription, label string) {
	metrics.StreamSubscriptions.WithLabelValues(label).Inc()
	defer metrics.StreamSubscriptions.WithLabelValues(label).Dec()
	defer sub.Cancel()
	for {
		select {
		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			if !s.deliver(gen, snap) {
				return
			}
		case err, ok := <-sub.Err():
			if !ok {
				return
			}
			s.fail(gen, err)
			return
		}
	}
}

// deliver pushes a snapshot to the consumer, replacing any buffered one.
// Returns false when the generation has been superseded.
func (s *Stream) deliver(gen int, snap []models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.closed {
		return false
	}
	for {
		select {
		case s.updates <- snap:
			return true
		default:
			s.drainLocked()
		}
	}
}

// fail surfaces a terminal subscription error to the view layer. No
// automatic retry: recovery is an explicit Resubscribe.
func (s *Stream) fail(gen int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.closed {
		return
	}
	s.state = StateError
	s.cancel = nil
	s.logger.Error().Err(err).Str("channel", s.channel.Label()).Msg("stream subscription failed")
	metrics.StreamErrors.Inc()
	select {
	case s.errs <- err:
	default:
	}
}

// drainLocked empties any buffered delivery. Caller holds s.mu.
func (s *Stream) drainLocked() {
	select {
	case <-s.updates:
	default:
	}
	select {
	case <-s.errs:
	default:
	}
}
