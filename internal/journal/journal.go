// Package journal publishes processed webhook facts to a message broker.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adsdsdsdad/uMBLER01/internal/model"
)

// Backend names accepted by JOURNAL_BACKEND.
const (
	BackendNone = "none"
	BackendNATS = "nats"
	BackendAMQP = "amqp"
)

// SubjectPrefix prefixes every subject and routing key.
const SubjectPrefix = "support"

// Publisher sends journal entries to a broker.
type Publisher interface {
	Publish(ctx context.Context, entry *model.JournalEntry) error
	Backend() string
	Healthy() bool
	Close() error
}

// Subject returns "support.<kind>.<conversation>" with the conversation id
// made safe for NATS subjects and AMQP topic keys.
func Subject(kind model.JournalKind, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, kind, token(conversationID))
}

func token(v string) string {
	if v == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', '#', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, v)
}

func encode(entry *model.JournalEntry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	return data, nil
}

// Noop drops every entry. It is used when no broker is configured.
type Noop struct{}

// Publish does nothing.
func (Noop) Publish(ctx context.Context, entry *model.JournalEntry) error { return nil }

// Backend returns "none".
func (Noop) Backend() string { return BackendNone }

// Healthy always reports true.
func (Noop) Healthy() bool { return true }

// Close does nothing.
func (Noop) Close() error { return nil }
