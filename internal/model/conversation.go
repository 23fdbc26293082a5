// Package model defines data structures for the support metrics service.
package model

import (
	"time"
)

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	StatusActive ConversationStatus = "active"
	StatusClosed ConversationStatus = "closed"
)

// Conversation represents a support thread between one customer and the organization.
// Optional fields are pointers so an upsert can tell "absent" from "empty".
type Conversation struct {
	ConversationID string             `json:"conversation_id" gorm:"primaryKey;size:128"`
	CustomerName   *string            `json:"customer_name,omitempty" gorm:"size:255"`
	CustomerPhone  *string            `json:"customer_phone,omitempty" gorm:"size:64"`
	CustomerEmail  *string            `json:"customer_email,omitempty" gorm:"size:255"`
	AgentName      *string            `json:"agent_name,omitempty" gorm:"index;size:255"`
	Status         ConversationStatus `json:"status" gorm:"size:20;not null"`
	IsSiteCustomer bool               `json:"is_site_customer" gorm:"not null"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Agent returns the agent-of-record or an empty string.
func (c *Conversation) Agent() string {
	if c == nil || c.AgentName == nil {
		return ""
	}
	return *c.AgentName
}

// ConversationDetail bundles a conversation with its ledger and derived records.
type ConversationDetail struct {
	ConversationID string         `json:"conversation_id"`
	Conversation   *Conversation  `json:"conversation"`
	Messages       []Message      `json:"messages"`
	ResponseTimes  []ResponseTime `json:"response_times"`
}
