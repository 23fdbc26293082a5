// Package service provides the webhook ingestion and response time metrics logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/adsdsdsdad/uMBLER01/internal/model"
	"github.com/adsdsdsdad/uMBLER01/internal/sender"
	"github.com/adsdsdsdad/uMBLER01/internal/store"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
	"github.com/adsdsdsdad/uMBLER01/pkg/metrics"
	"github.com/adsdsdsdad/uMBLER01/pkg/tracing"
)

// ValidationError reports a malformed webhook. No state is written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid webhook: %s %s", e.Field, e.Reason)
}

// EventPublisher receives journal entries for processed events.
type EventPublisher interface {
	Publish(ctx context.Context, entry *model.JournalEntry) error
}

var journalNamespace = uuid.MustParse("5b0f3c1e-8d4a-4c6e-9a57-2f1e7d9b6a30")

// journalID is stable for a fact so broker dedup can drop redeliveries.
func journalID(kind model.JournalKind, key string) string {
	return uuid.NewSHA1(journalNamespace, []byte(string(kind)+":"+key)).String()
}

// Dispatcher routes provider webhooks to the store and the matcher.
type Dispatcher struct {
	store   store.Store
	matcher *Matcher
	journal EventPublisher
	logger  *logger.Logger
	now     func() time.Time
}

// NewDispatcher creates a new dispatcher. A nil journal disables publishing.
func NewDispatcher(st store.Store, matcher *Matcher, journal EventPublisher, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		store:   st,
		matcher: matcher,
		journal: journal,
		logger:  orGlobal(log),
		now:     time.Now,
	}
}

// Dispatch validates and processes one webhook event.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *model.WebhookEvent) (*model.WebhookResult, error) {
	if err := validateEnvelope(ev); err != nil {
		metrics.RecordWebhookEvent(eventTypeLabel(ev), "invalid")
		return nil, err
	}

	ctx, span := tracing.Tracer().Start(ctx, "dispatcher.Dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("event_id", ev.EventID),
		attribute.String("event_type", ev.Type),
	)

	var (
		result *model.WebhookResult
		err    error
	)
	switch ev.Type {
	case model.EventTypeMessage:
		result, err = d.handleMessage(ctx, ev)
	case model.EventTypeChatClosed:
		result, err = d.handleChatClosed(ctx, ev)
	case model.EventTypeMemberTransfer:
		result, err = d.handleMemberTransfer(ctx, ev)
	default:
		result = d.ignored(ev, fmt.Sprintf("Evento %s recebido mas não processado", ev.Type))
	}

	switch {
	case err != nil:
		var verr *ValidationError
		if errors.As(err, &verr) {
			metrics.RecordWebhookEvent(ev.Type, "invalid")
		} else {
			metrics.RecordWebhookEvent(ev.Type, "error")
			span.RecordError(err)
			span.SetStatus(codes.Error, "dispatch failed")
		}
		return nil, err
	case !result.Processed:
		metrics.RecordWebhookEvent(eventTypeLabel(ev), "ignored")
	default:
		metrics.RecordWebhookEvent(ev.Type, "processed")
	}
	if result.ConversationID != "" {
		span.SetAttributes(attribute.String("conversation_id", result.ConversationID))
	}
	return result, nil
}

func validateEnvelope(ev *model.WebhookEvent) error {
	switch {
	case ev == nil:
		return &ValidationError{Field: "body", Reason: "is required"}
	case strings.TrimSpace(ev.Type) == "":
		return &ValidationError{Field: "Type", Reason: "is required"}
	case ev.Payload == nil:
		return &ValidationError{Field: "Payload", Reason: "is required"}
	case strings.TrimSpace(ev.EventID) == "":
		return &ValidationError{Field: "EventId", Reason: "is required"}
	}
	return nil
}

// eventTypeLabel keeps metric label cardinality bounded.
func eventTypeLabel(ev *model.WebhookEvent) string {
	if ev == nil {
		return "unknown"
	}
	switch ev.Type {
	case model.EventTypeMessage, model.EventTypeChatClosed, model.EventTypeMemberTransfer:
		return ev.Type
	default:
		return "other"
	}
}

func conversationID(ev *model.WebhookEvent) (string, error) {
	c := ev.Payload.Content
	if c == nil || strings.TrimSpace(c.ID) == "" {
		return "", &ValidationError{Field: "Payload.Content.Id", Reason: "is required"}
	}
	return c.ID, nil
}

// parseEventDate accepts RFC 3339 with or without a zone; zoneless dates are UTC.
func parseEventDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", v, time.UTC)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "EventDate", Reason: "is not a valid timestamp"}
	}
	return t.UTC(), nil
}

func (d *Dispatcher) ignored(ev *model.WebhookEvent, msg string) *model.WebhookResult {
	d.logger.Info("webhook event ignored",
		zap.String("event_id", ev.EventID),
		zap.String("event_type", ev.Type),
	)
	return &model.WebhookResult{
		Success:     true,
		Message:     msg,
		EventType:   ev.Type,
		EventID:     ev.EventID,
		Processed:   false,
		ProcessedAt: d.now().UTC(),
	}
}

func (d *Dispatcher) handleChatClosed(ctx context.Context, ev *model.WebhookEvent) (*model.WebhookResult, error) {
	convID, err := conversationID(ev)
	if err != nil {
		return nil, err
	}
	log := d.logger.WithEvent(ev.EventID, ev.Type, convID)

	if err := d.ensureConversation(ctx, ev.Payload.Content); err != nil {
		return nil, err
	}
	if err := d.store.UpdateConversationStatus(ctx, convID, model.StatusClosed); err != nil {
		return nil, fmt.Errorf("failed to close conversation: %w", err)
	}
	log.Info("conversation closed")

	d.publish(ctx, log, &model.JournalEntry{
		ID:             journalID(model.JournalConversationClosed, ev.EventID),
		Kind:           model.JournalConversationClosed,
		ConversationID: convID,
		EventID:        ev.EventID,
		OccurredAt:     d.now().UTC(),
	})

	return &model.WebhookResult{
		Success:        true,
		Message:        "Chat fechado processado",
		EventType:      ev.Type,
		EventID:        ev.EventID,
		Processed:      true,
		ConversationID: convID,
		ProcessedAt:    d.now().UTC(),
	}, nil
}

func (d *Dispatcher) handleMemberTransfer(ctx context.Context, ev *model.WebhookEvent) (*model.WebhookResult, error) {
	convID, err := conversationID(ev)
	if err != nil {
		return nil, err
	}
	log := d.logger.WithEvent(ev.EventID, ev.Type, convID)

	newAgent, ok := sender.AgentOfRecord(ev.Payload.Content)
	if !ok {
		newAgent = sender.PlaceholderSystem
	}

	if err := d.ensureConversation(ctx, ev.Payload.Content); err != nil {
		return nil, err
	}
	if err := d.store.UpdateConversationAgent(ctx, convID, newAgent); err != nil {
		return nil, fmt.Errorf("failed to transfer conversation: %w", err)
	}
	log.Info("conversation transferred", zap.String("new_agent", newAgent))

	d.publish(ctx, log, &model.JournalEntry{
		ID:             journalID(model.JournalAgentTransferred, ev.EventID),
		Kind:           model.JournalAgentTransferred,
		ConversationID: convID,
		EventID:        ev.EventID,
		OccurredAt:     d.now().UTC(),
		Data:           map[string]string{"new_agent": newAgent},
	})

	return &model.WebhookResult{
		Success:        true,
		Message:        "Transferência processada",
		EventType:      ev.Type,
		EventID:        ev.EventID,
		Processed:      true,
		ConversationID: convID,
		NewAgent:       newAgent,
		ProcessedAt:    d.now().UTC(),
	}, nil
}

// ensureConversation upserts a skeleton so state transitions on unseen
// conversations are kept. Only contact data is merged.
func (d *Dispatcher) ensureConversation(ctx context.Context, c *model.ChatContent) error {
	up := &store.ConversationUpsert{ConversationID: c.ID}
	if c.Contact != nil {
		up.CustomerName = optional(c.Contact.Name)
		up.CustomerPhone = optional(c.Contact.Phone)
		up.CustomerEmail = optional(c.Contact.Email)
	}
	if err := d.store.UpsertConversation(ctx, up); err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, log *logger.Logger, entry *model.JournalEntry) {
	if d.journal == nil {
		return
	}
	if err := d.journal.Publish(ctx, entry); err != nil {
		log.Warn("failed to publish journal entry",
			zap.String("kind", string(entry.Kind)),
			zap.Error(err),
		)
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// orGlobal substitutes the process logger for a nil one.
func orGlobal(l *logger.Logger) *logger.Logger {
	if l == nil {
		return logger.Global()
	}
	return l
}
