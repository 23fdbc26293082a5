package model

import (
	"time"
)

// ResponseTime pairs one customer message with the agent message that answered it.
// Records are derived from the message ledger and never mutated. A customer
// message is the customer side of at most one record.
type ResponseTime struct {
	ConversationID       string    `json:"conversation_id" gorm:"index;size:128;not null"`
	CustomerMessageID    string    `json:"customer_message_id" gorm:"primaryKey;size:128;uniqueIndex:ux_response_times_customer"`
	AgentMessageID       string    `json:"agent_message_id" gorm:"primaryKey;size:128"`
	CustomerMessageTime  time.Time `json:"customer_message_time" gorm:"not null"`
	AgentResponseTime    time.Time `json:"agent_response_time" gorm:"not null"`
	ResponseTimeSeconds  int64     `json:"response_time_seconds" gorm:"not null"`
	BusinessHoursStatus  string    `json:"business_hours_status" gorm:"size:40;not null"`
	CustomerOutsideHours bool      `json:"customer_outside_hours" gorm:"not null"`
	AgentOutsideHours    bool      `json:"agent_outside_hours" gorm:"not null"`
	CreatedAt            time.Time `json:"created_at"`

	Conversation *Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ConversationID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (ResponseTime) TableName() string {
	return "response_times"
}

// PairKey identifies a record by its idempotency key.
type PairKey struct {
	CustomerMessageID string
	AgentMessageID    string
}

// Key returns the (customer, agent) idempotency key.
func (r *ResponseTime) Key() PairKey {
	return PairKey{CustomerMessageID: r.CustomerMessageID, AgentMessageID: r.AgentMessageID}
}

// RecomputeResult reports the outcome of a full response-time recompute.
type RecomputeResult struct {
	Success                bool      `json:"success"`
	ConversationsProcessed int       `json:"total_processed"`
	RecordsCreated         int       `json:"records_created"`
	Timestamp              time.Time `json:"timestamp"`
}
