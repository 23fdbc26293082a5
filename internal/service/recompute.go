package service

import (
	"context"
	"fmt"
	"sync"
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

// Recomputer rebuilds response time records from the message ledger.
type Recomputer struct {
	store    store.Store
	schedule *hours.Schedule
	logger   *logger.Logger

	// one recompute at a time; live processing is not blocked
	mu sync.Mutex
}

// NewRecomputer creates a new recomputer.
func NewRecomputer(st store.Store, schedule *hours.Schedule, log *logger.Logger) *Recomputer {
	return &Recomputer{
		store:    st,
		schedule: schedule,
		logger:   orGlobal(log),
	}
}

// Recompute replays every conversation and inserts any missing records.
// Existing records are kept; the insert is idempotent.
func (r *Recomputer) Recompute(ctx context.Context) (*model.RecomputeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, span := tracing.Tracer().Start(ctx, "recompute.Recompute")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
	}()

	ids, err := r.store.ListConversationIDs(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list conversations failed")
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	result := &model.RecomputeResult{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		created, err := r.recomputeConversation(ctx, id)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "conversation replay failed")
			return nil, fmt.Errorf("failed to recompute conversation %s: %w", id, err)
		}
		result.ConversationsProcessed++
		result.RecordsCreated += created
	}

	result.Success = true
	result.Timestamp = time.Now().UTC()

	span.SetAttributes(
		attribute.Int("conversations", result.ConversationsProcessed),
		attribute.Int("created", result.RecordsCreated),
	)
	r.logger.Info("recompute finished",
		zap.Int("conversations", result.ConversationsProcessed),
		zap.Int("records_created", result.RecordsCreated),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (r *Recomputer) recomputeConversation(ctx context.Context, conversationID string) (int, error) {
	msgs, err := r.store.ListMessages(ctx, conversationID)
	if err != nil {
		return 0, err
	}

	records := replay(r.schedule, msgs)
	created, err := insertResponseTimes(ctx, r.store, records)
	return len(created), err
}

// replay walks a ledger in timestamp order and pairs each agent reply with the
// customer backlog before it. Answered state is local to the replay.
func replay(schedule *hours.Schedule, msgs []model.Message) []model.ResponseTime {
	var (
		backlog []model.Message
		records []model.ResponseTime
	)
	for i := range msgs {
		msg := &msgs[i]
		switch {
		case msg.SenderType == model.SenderCustomer && !msg.IsPrivate():
			backlog = append(backlog, *msg)
		case answersCustomers(msg):
			var pending []model.Message
			for _, cm := range backlog {
				if cm.Timestamp.Before(msg.Timestamp) {
					pending = append(pending, cm)
				}
			}

			paired, _ := pairResponses(schedule, msg, pending)
			answered := make(map[string]bool, len(paired))
			for _, rt := range paired {
				answered[rt.CustomerMessageID] = true
			}

			var remaining []model.Message
			for _, cm := range backlog {
				if !answered[cm.MessageID] {
					remaining = append(remaining, cm)
				}
			}
			backlog = remaining
			records = append(records, paired...)
		}
	}
	return records
}
