package model

import (
	"time"
)

// ConversationMetrics is the per-conversation rollup.
type ConversationMetrics struct {
	ConversationID        string             `json:"conversation_id"`
	CustomerName          *string            `json:"customer_name,omitempty"`
	CustomerPhone         *string            `json:"customer_phone,omitempty"`
	CustomerEmail         *string            `json:"customer_email,omitempty"`
	AgentName             *string            `json:"agent_name,omitempty"`
	Status                ConversationStatus `json:"status"`
	IsSiteCustomer        bool               `json:"is_site_customer"`
	TotalMessages         int                `json:"total_messages"`
	CustomerMessages      int                `json:"customer_messages"`
	AgentMessages         int                `json:"agent_messages"`
	AvgResponseTime       float64            `json:"avg_response_time"`
	MinResponseTime       int64              `json:"min_response_time"`
	MaxResponseTime       int64              `json:"max_response_time"`
	ResponseTimesCount    int                `json:"response_times_count"`
	ResponsesOutsideHours int                `json:"responses_outside_hours"`
	ResponseCategory      string             `json:"response_category,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// AgentMetrics is the per-agent rollup.
type AgentMetrics struct {
	AgentName          string  `json:"agent_name"`
	TotalConversations int     `json:"total_conversations"`
	TotalMessages      int     `json:"total_messages"`
	AvgResponseTime    float64 `json:"avg_response_time"`
	MinResponseTime    int64   `json:"min_response_time"`
	MaxResponseTime    int64   `json:"max_response_time"`
	ResponseCount      int     `json:"response_count"`
	ResponseCategory   string  `json:"response_category,omitempty"`
}

// SystemMetrics is the system-wide rollup shown on the dashboard.
type SystemMetrics struct {
	TotalConversations     int                   `json:"total_conversations"`
	ActiveConversations    int                   `json:"active_conversations"`
	TotalMessages          int                   `json:"total_messages"`
	TotalResponseTimes     int                   `json:"total_response_times"`
	OverallAvgResponseTime float64               `json:"overall_avg_response_time"`
	Agents                 []AgentMetrics        `json:"agents"`
	RecentActivity         []ConversationMetrics `json:"recent_activity"`
	GeneratedAt            time.Time             `json:"generated_at"`
}

// SiteCustomerStats summarizes conversations that came from the marketing site.
type SiteCustomerStats struct {
	TotalSiteCustomers     int     `json:"totalSiteCustomers"`
	ClosedConversations    int     `json:"closedConversations"`
	ActiveConversations    int     `json:"activeConversations"`
	AvgResponseTimeSeconds float64 `json:"avgResponseTimeSeconds"`
}
