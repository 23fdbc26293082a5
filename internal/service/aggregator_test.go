package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adsdsdsdad/uMBLER01/internal/hours"
	"github.com/adsdsdsdad/uMBLER01/internal/model"
	"github.com/adsdsdsdad/uMBLER01/internal/store"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "0s"},
		{45, "45s"},
		{60, "1m 0s"},
		{125, "2m 5s"},
		{3780, "1h 3m"},
		{90000, "25h 0m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatDuration(tt.secs); got != tt.want {
				t.Errorf("FormatDuration(%d) = %q, want %q", tt.secs, got, tt.want)
			}
		})
	}
}

func TestResponseCategory(t *testing.T) {
	tests := []struct {
		avg   float64
		count int
		want  string
	}{
		{10, 0, ""},
		{30, 1, CategoryExcellent},
		{30.5, 1, CategoryGood},
		{120, 2, CategoryGood},
		{300, 3, CategoryAverage},
		{301, 3, CategorySlow},
	}

	for _, tt := range tests {
		if got := ResponseCategory(tt.avg, tt.count); got != tt.want {
			t.Errorf("ResponseCategory(%v, %d) = %q, want %q", tt.avg, tt.count, got, tt.want)
		}
	}
}

func rt(conv, cust, agent string, secs int64, status string) model.ResponseTime {
	return model.ResponseTime{
		ConversationID:      conv,
		CustomerMessageID:   cust,
		AgentMessageID:      agent,
		ResponseTimeSeconds: secs,
		BusinessHoursStatus: status,
	}
}

func msg(conv, id string, st model.SenderType) model.Message {
	return model.Message{MessageID: id, ConversationID: conv, SenderType: st}
}

func sampleSnapshot() *store.Snapshot {
	return &store.Snapshot{
		Conversations: []model.Conversation{
			{ConversationID: "c1", AgentName: strPtr("Ana"), Status: model.StatusActive, UpdatedAt: monday.Add(3 * time.Minute)},
			{ConversationID: "c2", AgentName: strPtr("Ana"), Status: model.StatusClosed, IsSiteCustomer: true, UpdatedAt: monday.Add(time.Minute)},
			{ConversationID: "c3", AgentName: strPtr("Bruno"), Status: model.StatusActive, IsSiteCustomer: true, UpdatedAt: monday.Add(2 * time.Minute)},
			{ConversationID: "c4", AgentName: strPtr("Carla"), Status: model.StatusActive, UpdatedAt: monday},
			{ConversationID: "c5", Status: model.StatusActive, UpdatedAt: monday},
		},
		Messages: []model.Message{
			msg("c1", "m1", model.SenderCustomer),
			msg("c1", "a1", model.SenderAgent),
			msg("c1", "a2", model.SenderAgent),
			msg("c2", "m2", model.SenderCustomer),
			msg("c2", "a3", model.SenderAgent),
			msg("c3", "m3", model.SenderCustomer),
			msg("c3", "a4", model.SenderAgent),
			msg("c4", "m4", model.SenderCustomer),
		},
		ResponseTimes: []model.ResponseTime{
			rt("c1", "m1", "a1", 100, hours.StatusInside),
			rt("c2", "m2", "a3", 200, hours.StatusAgentOut),
			rt("c3", "m3", "a4", 20, hours.StatusInside),
		},
	}
}

func TestComputeConversationMetrics(t *testing.T) {
	conv := &model.Conversation{ConversationID: "c1", Status: model.StatusActive}
	msgs := []model.Message{
		msg("c1", "m1", model.SenderCustomer),
		msg("c1", "m2", model.SenderCustomer),
		msg("c1", "a1", model.SenderAgent),
	}
	rts := []model.ResponseTime{
		rt("c1", "m1", "a1", 60, hours.StatusInside),
		rt("c1", "m2", "a1", 30, hours.StatusBothOutside),
	}

	got := ComputeConversationMetrics(conv, msgs, rts)
	if got.TotalMessages != 3 || got.CustomerMessages != 2 || got.AgentMessages != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", got.TotalMessages, got.CustomerMessages, got.AgentMessages)
	}
	if got.AvgResponseTime != 45 || got.MinResponseTime != 30 || got.MaxResponseTime != 60 {
		t.Errorf("avg/min/max = %v/%d/%d, want 45/30/60", got.AvgResponseTime, got.MinResponseTime, got.MaxResponseTime)
	}
	if got.ResponseTimesCount != 2 || got.ResponsesOutsideHours != 1 {
		t.Errorf("count/outside = %d/%d, want 2/1", got.ResponseTimesCount, got.ResponsesOutsideHours)
	}
	if got.ResponseCategory != CategoryGood {
		t.Errorf("ResponseCategory = %q, want %q", got.ResponseCategory, CategoryGood)
	}

	empty := ComputeConversationMetrics(conv, nil, nil)
	if empty.AvgResponseTime != 0 || empty.MinResponseTime != 0 || empty.MaxResponseTime != 0 {
		t.Errorf("empty avg/min/max = %v/%d/%d, want zeros", empty.AvgResponseTime, empty.MinResponseTime, empty.MaxResponseTime)
	}
}

func TestComputeAgentMetrics(t *testing.T) {
	agents := ComputeAgentMetrics(sampleSnapshot())

	wantOrder := []string{"Bruno", "Ana", "Carla"}
	if len(agents) != len(wantOrder) {
		t.Fatalf("len(agents) = %d, want %d", len(agents), len(wantOrder))
	}
	for i, name := range wantOrder {
		if agents[i].AgentName != name {
			t.Errorf("agents[%d] = %q, want %q", i, agents[i].AgentName, name)
		}
	}

	ana := agents[1]
	if ana.TotalConversations != 2 || ana.TotalMessages != 3 || ana.ResponseCount != 2 {
		t.Errorf("Ana conversations/messages/responses = %d/%d/%d, want 2/3/2",
			ana.TotalConversations, ana.TotalMessages, ana.ResponseCount)
	}
	if ana.AvgResponseTime != 150 || ana.MinResponseTime != 100 || ana.MaxResponseTime != 200 {
		t.Errorf("Ana avg/min/max = %v/%d/%d, want 150/100/200", ana.AvgResponseTime, ana.MinResponseTime, ana.MaxResponseTime)
	}
	if carla := agents[2]; carla.ResponseCount != 0 || carla.ResponseCategory != "" {
		t.Errorf("Carla = %+v, want no responses", carla)
	}
}

func TestComputeSystemMetrics(t *testing.T) {
	sm := ComputeSystemMetrics(sampleSnapshot(), monday)

	if sm.TotalConversations != 5 || sm.ActiveConversations != 4 {
		t.Errorf("total/active = %d/%d, want 5/4", sm.TotalConversations, sm.ActiveConversations)
	}
	if sm.TotalMessages != 8 || sm.TotalResponseTimes != 3 {
		t.Errorf("messages/records = %d/%d, want 8/3", sm.TotalMessages, sm.TotalResponseTimes)
	}
	if sm.OverallAvgResponseTime != 320.0/3 {
		t.Errorf("OverallAvgResponseTime = %v, want %v", sm.OverallAvgResponseTime, 320.0/3)
	}
	if len(sm.RecentActivity) == 0 || sm.RecentActivity[0].ConversationID != "c1" {
		t.Errorf("RecentActivity should start with the most recently updated conversation")
	}
}

func TestComputeSystemMetrics_RecentActivityLimit(t *testing.T) {
	snap := &store.Snapshot{}
	for i := 0; i < RecentActivityLimit+5; i++ {
		snap.Conversations = append(snap.Conversations, model.Conversation{
			ConversationID: string(rune('a' + i)),
			Status:         model.StatusActive,
			UpdatedAt:      monday.Add(time.Duration(i) * time.Minute),
		})
	}

	sm := ComputeSystemMetrics(snap, monday)
	if len(sm.RecentActivity) != RecentActivityLimit {
		t.Errorf("len(RecentActivity) = %d, want %d", len(sm.RecentActivity), RecentActivityLimit)
	}
}

func TestComputeSiteCustomerStats(t *testing.T) {
	stats := ComputeSiteCustomerStats(sampleSnapshot())

	want := model.SiteCustomerStats{
		TotalSiteCustomers:     2,
		ClosedConversations:    1,
		ActiveConversations:    1,
		AvgResponseTimeSeconds: 110,
	}
	if *stats != want {
		t.Errorf("ComputeSiteCustomerStats() = %+v, want %+v", *stats, want)
	}

	site := SiteCustomerConversations(sampleSnapshot())
	if len(site) != 2 || site[0].ConversationID != "c3" || site[1].ConversationID != "c2" {
		t.Errorf("SiteCustomerConversations() ids = %v, want [c3 c2]", site)
	}
}

func TestMetricsService_AgentNotFound(t *testing.T) {
	f := newFixture()
	svc := NewMetricsService(f.store)

	if _, err := svc.Agent(context.Background(), "Ninguém"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Agent() error = %v, want ErrNotFound", err)
	}
}

func TestConversationService_MessagesAnnotated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, ev := range conversationScript()[:3] {
		if _, err := f.dispatcher.Dispatch(ctx, ev); err != nil {
			t.Fatalf("Dispatch(%s) error = %v", ev.EventID, err)
		}
	}

	svc := NewConversationService(f.store, nil)
	resp, err := svc.Messages(ctx, "c1")
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("Total = %d, want 3", resp.Total)
	}
	wantSecs := map[string]int64{"m1": 90, "m2": 70}
	for _, m := range resp.Messages {
		want, ok := wantSecs[m.MessageID]
		switch {
		case ok && (m.ResponseTimeSeconds == nil || *m.ResponseTimeSeconds != want):
			t.Errorf("%s ResponseTimeSeconds = %v, want %d", m.MessageID, m.ResponseTimeSeconds, want)
		case !ok && m.ResponseTimeSeconds != nil:
			t.Errorf("%s ResponseTimeSeconds = %d, want nil", m.MessageID, *m.ResponseTimeSeconds)
		}
	}

	if _, err := svc.Messages(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Messages(missing) error = %v, want ErrNotFound", err)
	}
}
