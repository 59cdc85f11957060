package models

// Reserved identity for assistant-authored messages.
const (
	AssistantID   = "SYSTEM_AI"
	AssistantName = "IGIHOZO AI"
)

// Message represents a chat message in the shared append-only log.
// A nil RecipientID means the message belongs to the broadcast room;
// otherwise it belongs to the direct channel between sender and recipient.
// Messages are never updated or deleted once committed.
type Message struct {
	ID          string  `json:"id"`                    // ULID, assigned at commit
	Text        string  `json:"text"`
	SenderID    string  `json:"senderId"`
	SenderName  string  `json:"senderName"`
	SenderPhoto string  `json:"senderPhoto,omitempty"` // snapshot at send time, not live-joined
	RecipientID *string `json:"recipientId"`
	CreatedAt   int64   `json:"createdAt"` // Unix ms, assigned by the store at commit
	IsAI        bool    `json:"isAi"`
}
