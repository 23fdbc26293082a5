// Package store persists conversations, the message ledger and response-time records.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/adsdsdsdad/uMBLER01/internal/model"
)

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("not found")

// ConversationUpsert carries the fields written for a conversation on every event.
// Nil pointers never overwrite stored values.
type ConversationUpsert struct {
	ConversationID string
	CustomerName   *string
	CustomerPhone  *string
	CustomerEmail  *string
	AgentName      *string
	// AgentIsPlaceholder makes AgentName only fill an empty agent-of-record.
	AgentIsPlaceholder bool
	// IsSiteCustomer is sticky: once stored as true it stays true.
	IsSiteCustomer bool
}

// Snapshot is a consistent-enough read of every table, used for rollups.
type Snapshot struct {
	Conversations []model.Conversation
	Messages      []model.Message
	ResponseTimes []model.ResponseTime
}

// PairFunc builds the response time records for one agent reply from its
// pending customer backlog.
type PairFunc func(pending []model.Message) []model.ResponseTime

// Store is the persistence contract the service layer depends on.
// Every insert is keyed and conditional, so concurrent or repeated writes are safe.
type Store interface {
	UpsertConversation(ctx context.Context, up *ConversationUpsert) error
	UpdateConversationStatus(ctx context.Context, conversationID string, status model.ConversationStatus) error
	UpdateConversationAgent(ctx context.Context, conversationID, agentName string) error
	GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
	ListConversationIDs(ctx context.Context) ([]string, error)

	// InsertMessageIfAbsent returns false when the message id is already stored.
	InsertMessageIfAbsent(ctx context.Context, msg *model.Message) (bool, error)
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	RecentMessages(ctx context.Context, limit int) ([]model.Message, error)

	// MatchPending selects the customer messages (not private notes) strictly before
	// agent that are not yet the customer side of any response time, passes them to
	// pair and inserts the records it builds. Selection and insert are one atomic
	// step, so concurrent replies in a conversation never answer a message twice.
	// Only the records actually created are returned.
	MatchPending(ctx context.Context, agent *model.Message, pair PairFunc) ([]model.ResponseTime, error)

	// InsertResponseTimeIfAbsent returns false when the (customer, agent) pair exists
	// or the customer message is already answered.
	InsertResponseTimeIfAbsent(ctx context.Context, rt *model.ResponseTime) (bool, error)
	ListResponseTimes(ctx context.Context, conversationID string) ([]model.ResponseTime, error)

	Snapshot(ctx context.Context) (*Snapshot, error)
	Ping(ctx context.Context) error
	Close() error
}

func normalize(t time.Time) time.Time {
	return t.UTC()
}
