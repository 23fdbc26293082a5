package model

import (
	"time"
)

// JournalKind represents the kind of record published to the event journal.
type JournalKind string

const (
	JournalMessageStored       JournalKind = "message_stored"
	JournalResponseTimeCreated JournalKind = "response_time_created"
	JournalConversationClosed  JournalKind = "conversation_closed"
	JournalAgentTransferred    JournalKind = "agent_transferred"
)

// JournalEntry is a fact derived from a processed webhook.
// ID is stable for a given fact so broker-side dedup can drop redeliveries.
type JournalEntry struct {
	ID             string         `json:"id"`
	Kind           JournalKind    `json:"kind"`
	ConversationID string         `json:"conversation_id"`
	EventID        string         `json:"event_id"`
	OccurredAt     time.Time      `json:"occurred_at"`
	Data           any            `json:"data,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
