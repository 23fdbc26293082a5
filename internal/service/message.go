package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/adsdsdsdad/uMBLER01/internal/model"
	"github.com/adsdsdsdad/uMBLER01/internal/sender"
	"github.com/adsdsdsdad/uMBLER01/internal/store"
	"github.com/adsdsdsdad/uMBLER01/pkg/metrics"
)

// handleMessage stores one chat message and, for agent replies, creates
// response time records for the customer backlog.
func (d *Dispatcher) handleMessage(ctx context.Context, ev *model.WebhookEvent) (*model.WebhookResult, error) {
	if pt := ev.Payload.Type; pt != "" && pt != model.PayloadTypeChat {
		return d.ignored(ev, fmt.Sprintf("Evento %s com payload %s recebido mas não processado", ev.Type, pt)), nil
	}

	convID, err := conversationID(ev)
	if err != nil {
		return nil, err
	}
	content := ev.Payload.Content
	last := content.LastMessage
	if last == nil {
		return nil, &ValidationError{Field: "Payload.Content.LastMessage", Reason: "is required"}
	}
	timestamp, err := parseEventDate(ev.EventDate)
	if err != nil {
		return nil, err
	}

	res := sender.Resolve(content)
	log := d.logger.WithEvent(ev.EventID, ev.Type, convID)
	log.Debug("sender resolved",
		zap.String("sender_type", string(res.SenderType)),
		zap.String("sender_name", res.SenderName),
		zap.String("agent_name", res.AgentName),
		zap.String("agent_name_source", res.AgentNameSource),
		zap.String("classified_by", res.ClassifiedBy),
	)

	up := &store.ConversationUpsert{
		ConversationID:     convID,
		AgentName:          &res.AgentName,
		AgentIsPlaceholder: res.AgentIsPlaceholder,
		IsSiteCustomer:     res.IsSiteCustomer,
	}
	if content.Contact != nil {
		up.CustomerName = optional(content.Contact.Name)
		up.CustomerPhone = optional(content.Contact.Phone)
		up.CustomerEmail = optional(content.Contact.Email)
	}
	if err := d.store.UpsertConversation(ctx, up); err != nil {
		return nil, fmt.Errorf("failed to upsert conversation: %w", err)
	}

	msg := &model.Message{
		MessageID:      messageID(ev),
		ConversationID: convID,
		SenderType:     res.SenderType,
		SenderName:     res.SenderName,
		MessageText:    res.MessageText,
		MessageType:    model.MessageTypeMessage,
		Timestamp:      timestamp,
	}
	if last.IsPrivate {
		msg.MessageType = model.MessageTypePrivateNote
	}

	inserted, err := d.store.InsertMessageIfAbsent(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	metrics.RecordMessageStored(string(msg.SenderType), inserted)

	// duplicates still run the matcher so a redelivery completes a partial failure
	created, err := d.matcher.Match(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to match response times: %w", err)
	}

	log.Info("message processed",
		zap.String("message_id", msg.MessageID),
		zap.String("sender_type", string(msg.SenderType)),
		zap.Bool("duplicate", !inserted),
		zap.Int("response_times_created", len(created)),
	)

	if inserted {
		d.publish(ctx, log, &model.JournalEntry{
			ID:             journalID(model.JournalMessageStored, msg.MessageID),
			Kind:           model.JournalMessageStored,
			ConversationID: convID,
			EventID:        ev.EventID,
			OccurredAt:     msg.Timestamp,
			Data:           msg,
		})
	}
	for i := range created {
		rt := &created[i]
		d.publish(ctx, log, &model.JournalEntry{
			ID:             journalID(model.JournalResponseTimeCreated, rt.CustomerMessageID+":"+rt.AgentMessageID),
			Kind:           model.JournalResponseTimeCreated,
			ConversationID: convID,
			EventID:        ev.EventID,
			OccurredAt:     rt.AgentResponseTime,
			Data:           rt,
		})
	}

	site := res.IsSiteCustomer
	return &model.WebhookResult{
		Success:              true,
		Message:              "Webhook processado com sucesso",
		EventType:            ev.Type,
		EventID:              ev.EventID,
		Processed:            true,
		ConversationID:       convID,
		SenderType:           res.SenderType,
		SenderName:           res.SenderName,
		AgentName:            res.AgentName,
		IsSiteCustomer:       &site,
		Duplicate:            !inserted,
		ResponseTimesCreated: len(created),
		ProcessedAt:          d.now().UTC(),
	}, nil
}

// messageID prefers the provider message id and falls back to the event id.
func messageID(ev *model.WebhookEvent) string {
	if id := strings.TrimSpace(ev.Payload.Content.LastMessage.ID); id != "" {
		return id
	}
	return ev.EventID
}
