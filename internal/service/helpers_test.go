package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/adsdsdsdad/uMBLER01/internal/hours"
	"github.com/adsdsdsdad/uMBLER01/internal/model"
	"github.com/adsdsdsdad/uMBLER01/internal/store"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
)

// monday is 2024-03-04 10:00 UTC, inside business hours.
var monday = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

type recordingPublisher struct {
	mu      sync.Mutex
	entries []model.JournalEntry
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, entry *model.JournalEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.entries = append(p.entries, *entry)
	return nil
}

func (p *recordingPublisher) kinds() []model.JournalKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.JournalKind, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e.Kind)
	}
	return out
}

var errBroker = errors.New("broker unavailable")

type fixture struct {
	store      *store.MemoryStore
	schedule   *hours.Schedule
	matcher    *Matcher
	dispatcher *Dispatcher
	journal    *recordingPublisher
}

func newFixture() *fixture {
	st := store.NewMemoryStore()
	sched := hours.Default(time.UTC)
	log := logger.NewNop()
	m := NewMatcher(st, sched, log)
	j := &recordingPublisher{}
	return &fixture{
		store:      st,
		schedule:   sched,
		matcher:    m,
		dispatcher: NewDispatcher(st, m, j, log),
		journal:    j,
	}
}

func customerEvent(eventID, convID, msgID string, at time.Time, body string) *model.WebhookEvent {
	return &model.WebhookEvent{
		Type:      model.EventTypeMessage,
		EventDate: at.Format(time.RFC3339Nano),
		EventID:   eventID,
		Payload: &model.WebhookPayload{
			Type: model.PayloadTypeChat,
			Content: &model.ChatContent{
				ID:      convID,
				Contact: &model.Contact{Name: "Maria", Phone: "+5511999990000"},
				LastMessage: &model.LastMessage{
					ID:      msgID,
					Source:  "Contact",
					Content: strPtr(body),
				},
			},
		},
	}
}

func agentEvent(eventID, convID, msgID string, at time.Time, agent string) *model.WebhookEvent {
	return &model.WebhookEvent{
		Type:      model.EventTypeMessage,
		EventDate: at.Format(time.RFC3339Nano),
		EventID:   eventID,
		Payload: &model.WebhookPayload{
			Type: model.PayloadTypeChat,
			Content: &model.ChatContent{
				ID:      convID,
				Contact: &model.Contact{Name: "Maria"},
				LastMessage: &model.LastMessage{
					ID:      msgID,
					Source:  "Member",
					Content: strPtr("Olá, como posso ajudar?"),
					Member:  &model.Member{Name: agent},
				},
			},
		},
	}
}
