package model

import (
	"time"
)

// SenderType classifies who sent a message.
type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderAgent    SenderType = "agent"
)

// MessageType distinguishes visible messages from internal notes.
type MessageType string

const (
	MessageTypeMessage     MessageType = "message"
	MessageTypePrivateNote MessageType = "private_note"
)

// Message is one entry of the append-only ledger of a conversation.
type Message struct {
	// Identity
	MessageID      string `json:"message_id" gorm:"primaryKey;size:128"`
	ConversationID string `json:"conversation_id" gorm:"index:idx_messages_conversation_ts,priority:1;size:128;not null"`

	// Content
	SenderType  SenderType  `json:"sender_type" gorm:"size:20;not null"`
	SenderName  string      `json:"sender_name" gorm:"size:255"`
	MessageText string      `json:"message_text" gorm:"type:text"`
	MessageType MessageType `json:"message_type" gorm:"size:20;not null"`

	// Timestamp is the provider's event clock, not ingestion time.
	Timestamp time.Time `json:"timestamp" gorm:"index:idx_messages_conversation_ts,priority:2;not null"`
	CreatedAt time.Time `json:"created_at"`

	Conversation *Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ConversationID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Message) TableName() string {
	return "messages"
}

// IsPrivate reports whether the message is an internal note.
func (m *Message) IsPrivate() bool {
	return m.MessageType == MessageTypePrivateNote
}

// MessageWithResponse is a ledger entry annotated with the response that answered it.
type MessageWithResponse struct {
	Message
	ResponseTimeSeconds *int64     `json:"response_time_seconds,omitempty"`
	AgentResponseTime   *time.Time `json:"agent_response_time,omitempty"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	ConversationID string                `json:"conversation_id"`
	Messages       []MessageWithResponse `json:"messages"`
	Total          int                   `json:"total"`
}
