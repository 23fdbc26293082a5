package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Webhook event types sent by the chat provider.
const (
	EventTypeMessage        = "Message"
	EventTypeChatClosed     = "ChatClosed"
	EventTypeMemberTransfer = "MemberTransfer"

	PayloadTypeChat = "Chat"
)

// WebhookEvent is the envelope of every provider webhook.
type WebhookEvent struct {
	Type      string          `json:"Type"`
	EventDate string          `json:"EventDate"`
	EventID   string          `json:"EventId"`
	Payload   *WebhookPayload `json:"Payload"`
}

// WebhookPayload wraps the type-dependent content.
type WebhookPayload struct {
	Type    string       `json:"Type"`
	Content *ChatContent `json:"Content"`
}

// ChatContent is the chat snapshot attached to chat events.
// Every nested identity object is optional.
type ChatContent struct {
	ID                 string       `json:"Id"`
	Contact            *Contact     `json:"Contact,omitempty"`
	OrganizationMember *Member      `json:"OrganizationMember,omitempty"`
	LastMessage        *LastMessage `json:"LastMessage,omitempty"`
	Agent              *Member      `json:"Agent,omitempty"`
	AssignedTo         *Member      `json:"AssignedTo,omitempty"`
	Owner              *Member      `json:"Owner,omitempty"`
}

// Contact identifies the customer side of a chat.
type Contact struct {
	Name  string `json:"Name,omitempty"`
	Phone string `json:"Phone,omitempty"`
	Email string `json:"Email,omitempty"`
}

// Member identifies an organization member (agent).
type Member struct {
	Name        string `json:"Name,omitempty"`
	DisplayName string `json:"DisplayName,omitempty"`
	FullName    string `json:"FullName,omitempty"`
	FirstName   string `json:"FirstName,omitempty"`
	LastName    string `json:"LastName,omitempty"`
	Username    string `json:"Username,omitempty"`
	Email       string `json:"Email,omitempty"`
}

// LastMessage is the message that triggered a Message event.
type LastMessage struct {
	ID        string    `json:"Id,omitempty"`
	Source    string    `json:"Source,omitempty"`
	Content   *string   `json:"Content,omitempty"`
	IsPrivate bool      `json:"IsPrivate,omitempty"`
	Member    *Member   `json:"Member,omitempty"`
	Author    NameField `json:"Author,omitempty"`
	Sender    NameField `json:"Sender,omitempty"`
	From      NameField `json:"From,omitempty"`
	User      NameField `json:"User,omitempty"`
}

// NameField accepts either a bare string or an object carrying a Name/DisplayName.
type NameField string

// UnmarshalJSON implements json.Unmarshaler.
func (n *NameField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = NameField(s)
		return nil
	}

	var obj struct {
		Name        string `json:"Name"`
		DisplayName string `json:"DisplayName"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		// Numbers, arrays and other shapes carry no usable name.
		*n = ""
		return nil
	}
	if strings.TrimSpace(obj.Name) != "" {
		*n = NameField(obj.Name)
	} else {
		*n = NameField(obj.DisplayName)
	}
	return nil
}

// WebhookResult is the response echoed back to the provider.
type WebhookResult struct {
	Success              bool       `json:"success"`
	Message              string     `json:"message"`
	EventType            string     `json:"event_type"`
	EventID              string     `json:"event_id"`
	Processed            bool       `json:"processed"`
	ConversationID       string     `json:"conversation_id,omitempty"`
	SenderType           SenderType `json:"sender_type,omitempty"`
	SenderName           string     `json:"sender_name,omitempty"`
	AgentName            string     `json:"agent_name,omitempty"`
	IsSiteCustomer       *bool      `json:"is_site_customer,omitempty"`
	NewAgent             string     `json:"new_agent,omitempty"`
	Duplicate            bool       `json:"duplicate,omitempty"`
	ResponseTimesCreated int        `json:"response_times_created"`
	ProcessedAt          time.Time  `json:"processed_at"`
}
