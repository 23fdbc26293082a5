package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/adsdsdsdad/uMBLER01/internal/hours"
	"github.com/adsdsdsdad/uMBLER01/internal/model"
	"github.com/adsdsdsdad/uMBLER01/internal/store"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
	"github.com/adsdsdsdad/uMBLER01/pkg/metrics"
	"github.com/adsdsdsdad/uMBLER01/pkg/tracing"
)

// MaxResponseTime is the longest gap that still counts as a response.
const MaxResponseTime = 30 * 24 * time.Hour

// Skip reasons for pairings outside the valid window.
const (
	SkipNonPositive = "non_positive"
	SkipTooLong     = "too_long"
)

type skippedPair struct {
	customer model.Message
	seconds  int64
	reason   string
}

// elapsedSeconds floors agent-customer to whole seconds.
func elapsedSeconds(customerAt, agentAt time.Time) int64 {
	d := agentAt.Sub(customerAt)
	secs := int64(d / time.Second)
	if d < 0 && d%time.Second != 0 {
		secs--
	}
	return secs
}

func validWindow(secs int64) (bool, string) {
	switch {
	case secs <= 0:
		return false, SkipNonPositive
	case secs > int64(MaxResponseTime/time.Second):
		return false, SkipTooLong
	default:
		return true, ""
	}
}

// pairResponses pairs one agent reply with every pending customer message.
// It is shared by the live matcher and recompute.
func pairResponses(schedule *hours.Schedule, agent *model.Message, pending []model.Message) ([]model.ResponseTime, []skippedPair) {
	var (
		records []model.ResponseTime
		skipped []skippedPair
	)
	for _, cm := range pending {
		secs := elapsedSeconds(cm.Timestamp, agent.Timestamp)
		if ok, reason := validWindow(secs); !ok {
			skipped = append(skipped, skippedPair{customer: cm, seconds: secs, reason: reason})
			continue
		}

		class := schedule.Classify(cm.Timestamp, agent.Timestamp)
		records = append(records, model.ResponseTime{
			ConversationID:       agent.ConversationID,
			CustomerMessageID:    cm.MessageID,
			AgentMessageID:       agent.MessageID,
			CustomerMessageTime:  cm.Timestamp.UTC(),
			AgentResponseTime:    agent.Timestamp.UTC(),
			ResponseTimeSeconds:  secs,
			BusinessHoursStatus:  class.Status,
			CustomerOutsideHours: class.CustomerOutside,
			AgentOutsideHours:    class.AgentOutside,
		})
	}
	return records, skipped
}

func answersCustomers(msg *model.Message) bool {
	return msg.SenderType == model.SenderAgent && !msg.IsPrivate()
}

// Matcher turns agent replies into response time records.
type Matcher struct {
	store    store.Store
	schedule *hours.Schedule
	logger   *logger.Logger
}

// NewMatcher creates a new matcher.
func NewMatcher(st store.Store, schedule *hours.Schedule, log *logger.Logger) *Matcher {
	return &Matcher{
		store:    st,
		schedule: schedule,
		logger:   orGlobal(log),
	}
}

// Match pairs an agent message with the customer backlog before it and
// persists the records in one store step. Only newly created records are returned.
func (m *Matcher) Match(ctx context.Context, agentMsg *model.Message) ([]model.ResponseTime, error) {
	if !answersCustomers(agentMsg) {
		return nil, nil
	}

	ctx, span := tracing.Tracer().Start(ctx, "matcher.Match")
	defer span.End()
	span.SetAttributes(
		attribute.String("conversation_id", agentMsg.ConversationID),
		attribute.String("agent_message_id", agentMsg.MessageID),
	)

	var (
		pending int
		skipped []skippedPair
	)
	created, err := m.store.MatchPending(ctx, agentMsg, func(backlog []model.Message) []model.ResponseTime {
		var records []model.ResponseTime
		records, skipped = pairResponses(m.schedule, agentMsg, backlog)
		pending = len(backlog)
		return records
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "match failed")
		return nil, err
	}

	m.reportSkipped(agentMsg, skipped)
	recordCreated(created)

	span.SetAttributes(
		attribute.Int("pending", pending),
		attribute.Int("created", len(created)),
	)
	return created, nil
}

func (m *Matcher) reportSkipped(agentMsg *model.Message, skipped []skippedPair) {
	for _, sp := range skipped {
		metrics.RecordResponseTimeSkipped(sp.reason)
		m.logger.Debug("response time outside valid window",
			zap.String("conversation_id", agentMsg.ConversationID),
			zap.String("customer_message_id", sp.customer.MessageID),
			zap.String("agent_message_id", agentMsg.MessageID),
			zap.Int64("seconds", sp.seconds),
			zap.String("reason", sp.reason),
		)
	}
}

func recordCreated(created []model.ResponseTime) {
	for i := range created {
		metrics.RecordResponseTime(created[i].BusinessHoursStatus, created[i].ResponseTimeSeconds)
	}
}

// insertResponseTimes stores replayed records one by one. Records for customer
// messages that are already answered are skipped by the store.
func insertResponseTimes(ctx context.Context, st store.Store, records []model.ResponseTime) ([]model.ResponseTime, error) {
	var created []model.ResponseTime
	for i := range records {
		rt := &records[i]
		inserted, err := st.InsertResponseTimeIfAbsent(ctx, rt)
		if err != nil {
			return created, err
		}
		if inserted {
			created = append(created, *rt)
		}
	}
	recordCreated(created)
	return created, nil
}
