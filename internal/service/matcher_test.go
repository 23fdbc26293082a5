package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/adsdsdsdad/uMBLER01/internal/hours"
	"github.com/adsdsdsdad/uMBLER01/internal/model"
	"github.com/adsdsdsdad/uMBLER01/internal/store"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
)

func TestElapsedSeconds(t *testing.T) {
	tests := []struct {
		name  string
		delta time.Duration
		want  int64
	}{
		{"whole", 300 * time.Second, 300},
		{"floors fraction", 90*time.Second + 900*time.Millisecond, 90},
		{"sub second", 400 * time.Millisecond, 0},
		{"zero", 0, 0},
		{"negative floors down", -1500 * time.Millisecond, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := elapsedSeconds(monday, monday.Add(tt.delta)); got != tt.want {
				t.Errorf("elapsedSeconds(+%v) = %d, want %d", tt.delta, got, tt.want)
			}
		})
	}
}

func TestPairResponses_Window(t *testing.T) {
	sched := hours.Default(time.UTC)
	maxSecs := int64(MaxResponseTime / time.Second)

	tests := []struct {
		name       string
		delta      time.Duration
		wantRecord bool
		wantReason string
	}{
		{"zero", 0, false, SkipNonPositive},
		{"negative", -5 * time.Second, false, SkipNonPositive},
		{"one second", time.Second, true, ""},
		{"thirty days minus one", time.Duration(maxSecs-1) * time.Second, true, ""},
		{"thirty days", MaxResponseTime, true, ""},
		{"thirty days plus one", time.Duration(maxSecs+1) * time.Second, false, SkipTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := &model.Message{
				MessageID:      "a1",
				ConversationID: "c1",
				SenderType:     model.SenderAgent,
				Timestamp:      monday.Add(tt.delta),
			}
			pending := []model.Message{{
				MessageID:      "m1",
				ConversationID: "c1",
				SenderType:     model.SenderCustomer,
				Timestamp:      monday,
			}}

			records, skipped := pairResponses(sched, agent, pending)
			if got := len(records) == 1; got != tt.wantRecord {
				t.Fatalf("record created = %v, want %v", got, tt.wantRecord)
			}
			if !tt.wantRecord {
				if len(skipped) != 1 || skipped[0].reason != tt.wantReason {
					t.Errorf("skipped = %+v, want reason %q", skipped, tt.wantReason)
				}
			}
		})
	}
}

func TestMatch_BacklogSharesAgentMessage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i, id := range []string{"m1", "m2", "m3"} {
		msg := &model.Message{
			MessageID:      id,
			ConversationID: "c1",
			SenderType:     model.SenderCustomer,
			MessageType:    model.MessageTypeMessage,
			Timestamp:      monday.Add(time.Duration(i*10) * time.Second),
		}
		if _, err := f.store.InsertMessageIfAbsent(ctx, msg); err != nil {
			t.Fatalf("InsertMessageIfAbsent() error = %v", err)
		}
	}
	agent := &model.Message{
		MessageID:      "a1",
		ConversationID: "c1",
		SenderType:     model.SenderAgent,
		MessageType:    model.MessageTypeMessage,
		Timestamp:      monday.Add(60 * time.Second),
	}

	created, err := f.matcher.Match(ctx, agent)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("len(Match()) = %d, want 3", len(created))
	}
	wantSecs := []int64{60, 50, 40}
	for i, rt := range created {
		if rt.AgentMessageID != "a1" {
			t.Errorf("record %d AgentMessageID = %q, want a1", i, rt.AgentMessageID)
		}
		if rt.ResponseTimeSeconds != wantSecs[i] {
			t.Errorf("record %d ResponseTimeSeconds = %d, want %d", i, rt.ResponseTimeSeconds, wantSecs[i])
		}
		if rt.BusinessHoursStatus != hours.StatusInside {
			t.Errorf("record %d BusinessHoursStatus = %q, want %q", i, rt.BusinessHoursStatus, hours.StatusInside)
		}
	}

	// a second reply finds no backlog
	again, err := f.matcher.Match(ctx, &model.Message{
		MessageID:      "a2",
		ConversationID: "c1",
		SenderType:     model.SenderAgent,
		MessageType:    model.MessageTypeMessage,
		Timestamp:      monday.Add(90 * time.Second),
	})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("len(Match()) for second reply = %d, want 0", len(again))
	}
}

func TestMatch_IgnoresNonReplies(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.store.InsertMessageIfAbsent(ctx, &model.Message{
		MessageID:      "m1",
		ConversationID: "c1",
		SenderType:     model.SenderCustomer,
		MessageType:    model.MessageTypeMessage,
		Timestamp:      monday,
	}); err != nil {
		t.Fatalf("InsertMessageIfAbsent() error = %v", err)
	}

	tests := []struct {
		name string
		msg  *model.Message
	}{
		{"customer message", &model.Message{
			MessageID: "m2", ConversationID: "c1", SenderType: model.SenderCustomer,
			MessageType: model.MessageTypeMessage, Timestamp: monday.Add(time.Minute),
		}},
		{"agent private note", &model.Message{
			MessageID: "n1", ConversationID: "c1", SenderType: model.SenderAgent,
			MessageType: model.MessageTypePrivateNote, Timestamp: monday.Add(time.Minute),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := f.matcher.Match(ctx, tt.msg)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if len(created) != 0 {
				t.Errorf("len(Match()) = %d, want 0", len(created))
			}
		})
	}
}

func TestMatch_OutsideHoursClassification(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Sunday 2024-03-03 22:00 to Monday 09:00
	customerAt := time.Date(2024, 3, 3, 22, 0, 0, 0, time.UTC)
	if _, err := f.store.InsertMessageIfAbsent(ctx, &model.Message{
		MessageID: "m1", ConversationID: "c1", SenderType: model.SenderCustomer,
		MessageType: model.MessageTypeMessage, Timestamp: customerAt,
	}); err != nil {
		t.Fatalf("InsertMessageIfAbsent() error = %v", err)
	}

	created, err := f.matcher.Match(ctx, &model.Message{
		MessageID: "a1", ConversationID: "c1", SenderType: model.SenderAgent,
		MessageType: model.MessageTypeMessage, Timestamp: monday.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("len(Match()) = %d, want 1", len(created))
	}
	rt := created[0]
	if rt.BusinessHoursStatus != hours.StatusCustomerOut {
		t.Errorf("BusinessHoursStatus = %q, want %q", rt.BusinessHoursStatus, hours.StatusCustomerOut)
	}
	if !rt.CustomerOutsideHours || rt.AgentOutsideHours {
		t.Errorf("outside flags = %v/%v, want true/false", rt.CustomerOutsideHours, rt.AgentOutsideHours)
	}
	if rt.ResponseTimeSeconds != 11*3600 {
		t.Errorf("ResponseTimeSeconds = %d, want %d", rt.ResponseTimeSeconds, 11*3600)
	}
}

func TestMatch_ConcurrentRepliesAnswerEachCustomerOnce(t *testing.T) {
	backends := []struct {
		name string
		open func(t *testing.T) store.Store
	}{
		{"memory", func(t *testing.T) store.Store { return store.NewMemoryStore() }},
		{"sqlite", func(t *testing.T) store.Store {
			st, err := store.Open(store.Options{
				Driver: store.DriverSQLite,
				DSN:    filepath.Join(t.TempDir(), "support.db"),
			})
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			t.Cleanup(func() { st.Close() })
			return st
		}},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			st := b.open(t)
			sched := hours.Default(time.UTC)
			log := logger.NewNop()
			d := NewDispatcher(st, NewMatcher(st, sched, log), nil, log)

			customers := []string{"m1", "m2", "m3"}
			for i, id := range customers {
				ev := customerEvent("e-"+id, "c1", id, monday.Add(time.Duration(i)*time.Second), "oi")
				if _, err := d.Dispatch(ctx, ev); err != nil {
					t.Fatalf("Dispatch(%s) error = %v", id, err)
				}
			}

			const replies = 6
			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				fails []error
			)
			for i := 0; i < replies; i++ {
				ev := agentEvent(fmt.Sprintf("e-a%d", i), "c1", fmt.Sprintf("a%d", i), monday.Add(time.Duration(60+i)*time.Second), "Ana")
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := d.Dispatch(ctx, ev); err != nil {
						mu.Lock()
						fails = append(fails, err)
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			if len(fails) > 0 {
				t.Fatalf("Dispatch() errors = %v", fails)
			}

			snap, err := st.Snapshot(ctx)
			if err != nil {
				t.Fatalf("Snapshot() error = %v", err)
			}
			answers := make(map[string]int)
			for _, rt := range snap.ResponseTimes {
				answers[rt.CustomerMessageID]++
			}
			for _, id := range customers {
				if answers[id] != 1 {
					t.Errorf("customer message %s answered %d times, want 1", id, answers[id])
				}
			}

			if want := len(replay(sched, snap.Messages)); len(snap.ResponseTimes) != want {
				t.Errorf("live records = %d, replay of the ledger = %d", len(snap.ResponseTimes), want)
			}
		})
	}
}
