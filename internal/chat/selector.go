package chat

import "github.com/mugisha-web/igihozo-server/internal/models"

// Selector is a client's current choice of conversation: the shared
// broadcast room, or a direct channel with one peer. The zero value
// selects the broadcast room.
type Selector struct {
	peer string
}

// Broadcast selects the shared room visible to all staff.
func Broadcast() Selector {
	return Selector{}
}

// DirectWith selects the two-party channel with the given peer.
func DirectWith(peerID string) Selector {
	return Selector{peer: peerID}
}

// IsBroadcast reports whether the selector targets the broadcast room.
func (s Selector) IsBroadcast() bool {
	return s.peer == ""
}

// Peer returns the peer identity for a direct selector.
func (s Selector) Peer() (string, bool) {
	return s.peer, s.peer != ""
}

// RecipientID returns the recipient field for a message sent into this
// selector: nil for broadcast, the peer id for a direct channel.
func (s Selector) RecipientID() *string {
	if s.peer == "" {
		return nil
	}
	peer := s.peer
	return &peer
}

// Channel is a resolved membership predicate over the message log.
// It must be re-derived, and the subscription re-established, whenever
// the selector or caller changes.
type Channel struct {
	broadcast bool
	caller    string
	peer      string
}

// Resolve derives the channel predicate for a selector as seen by the
// given caller.
func Resolve(sel Selector, callerID string) Channel {
	if sel.IsBroadcast() {
		return Channel{broadcast: true}
	}
	return Channel{caller: callerID, peer: sel.peer}
}

// Contains reports whether a committed message belongs to this channel.
func (c Channel) Contains(m models.Message) bool {
	if c.broadcast {
		return m.RecipientID == nil
	}
	if m.RecipientID == nil {
		return false
	}
	return (m.SenderID == c.caller && *m.RecipientID == c.peer) ||
		(m.SenderID == c.peer && *m.RecipientID == c.caller)
}

// IsBroadcast reports whether this is the broadcast channel.
func (c Channel) IsBroadcast() bool {
	return c.broadcast
}

// Label returns a low-cardinality name for logs and metrics.
func (c Channel) Label() string {
	if c.broadcast {
		return "broadcast"
	}
	return "direct"
}
