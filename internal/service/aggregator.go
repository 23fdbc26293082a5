package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/adsdsdsdad/uMBLER01/internal/hours"
	"github.com/adsdsdsdad/uMBLER01/internal/model"
	"github.com/adsdsdsdad/uMBLER01/internal/store"
)

// RecentActivityLimit bounds the recent activity list in system metrics.
const RecentActivityLimit = 10

// Response time categories.
const (
	CategoryExcellent = "excellent"
	CategoryGood      = "good"
	CategoryAverage   = "average"
	CategorySlow      = "slow"
)

// ResponseCategory buckets an average response time in seconds.
// It returns an empty string when there are no responses.
func ResponseCategory(avgSeconds float64, count int) string {
	switch {
	case count == 0:
		return ""
	case avgSeconds <= 30:
		return CategoryExcellent
	case avgSeconds <= 120:
		return CategoryGood
	case avgSeconds <= 300:
		return CategoryAverage
	default:
		return CategorySlow
	}
}

// FormatDuration renders seconds as "45s", "2m 5s" or "1h 3m".
func FormatDuration(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
}

type rollup struct {
	sum     int64
	min     int64
	max     int64
	count   int
	outside int
}

func (r *rollup) add(rt *model.ResponseTime) {
	s := rt.ResponseTimeSeconds
	if r.count == 0 || s < r.min {
		r.min = s
	}
	if s > r.max {
		r.max = s
	}
	r.sum += s
	r.count++
	if rt.BusinessHoursStatus != hours.StatusInside {
		r.outside++
	}
}

func (r *rollup) avg() float64 {
	if r.count == 0 {
		return 0
	}
	return float64(r.sum) / float64(r.count)
}

// ComputeConversationMetrics rolls up one conversation.
func ComputeConversationMetrics(conv *model.Conversation, msgs []model.Message, rts []model.ResponseTime) model.ConversationMetrics {
	cm := model.ConversationMetrics{
		ConversationID: conv.ConversationID,
		CustomerName:   conv.CustomerName,
		CustomerPhone:  conv.CustomerPhone,
		CustomerEmail:  conv.CustomerEmail,
		AgentName:      conv.AgentName,
		Status:         conv.Status,
		IsSiteCustomer: conv.IsSiteCustomer,
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
	}

	for i := range msgs {
		cm.TotalMessages++
		switch msgs[i].SenderType {
		case model.SenderCustomer:
			cm.CustomerMessages++
		case model.SenderAgent:
			cm.AgentMessages++
		}
	}

	var r rollup
	for i := range rts {
		r.add(&rts[i])
	}
	cm.AvgResponseTime = r.avg()
	cm.MinResponseTime = r.min
	cm.MaxResponseTime = r.max
	cm.ResponseTimesCount = r.count
	cm.ResponsesOutsideHours = r.outside
	cm.ResponseCategory = ResponseCategory(cm.AvgResponseTime, r.count)
	return cm
}

// index groups a snapshot by conversation.
type index struct {
	messages      map[string][]model.Message
	responseTimes map[string][]model.ResponseTime
}

func indexSnapshot(snap *store.Snapshot) *index {
	idx := &index{
		messages:      make(map[string][]model.Message),
		responseTimes: make(map[string][]model.ResponseTime),
	}
	for _, m := range snap.Messages {
		idx.messages[m.ConversationID] = append(idx.messages[m.ConversationID], m)
	}
	for _, rt := range snap.ResponseTimes {
		idx.responseTimes[rt.ConversationID] = append(idx.responseTimes[rt.ConversationID], rt)
	}
	return idx
}

// ComputeAllConversationMetrics rolls up every conversation, most recently updated first.
func ComputeAllConversationMetrics(snap *store.Snapshot) []model.ConversationMetrics {
	idx := indexSnapshot(snap)
	out := make([]model.ConversationMetrics, 0, len(snap.Conversations))
	for i := range snap.Conversations {
		c := &snap.Conversations[i]
		out = append(out, ComputeConversationMetrics(c, idx.messages[c.ConversationID], idx.responseTimes[c.ConversationID]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ConversationID < out[j].ConversationID
	})
	return out
}

// ComputeAgentMetrics groups conversations by agent-of-record. Conversations
// without an agent are skipped. Agents are ordered by ascending average with
// agents that have no responses last.
func ComputeAgentMetrics(snap *store.Snapshot) []model.AgentMetrics {
	idx := indexSnapshot(snap)

	type agg struct {
		metrics model.AgentMetrics
		r       rollup
	}
	byAgent := make(map[string]*agg)

	for i := range snap.Conversations {
		c := &snap.Conversations[i]
		name := c.Agent()
		if name == "" {
			continue
		}
		a, ok := byAgent[name]
		if !ok {
			a = &agg{metrics: model.AgentMetrics{AgentName: name}}
			byAgent[name] = a
		}
		a.metrics.TotalConversations++
		for _, m := range idx.messages[c.ConversationID] {
			if m.SenderType == model.SenderAgent {
				a.metrics.TotalMessages++
			}
		}
		rts := idx.responseTimes[c.ConversationID]
		for j := range rts {
			a.r.add(&rts[j])
		}
	}

	out := make([]model.AgentMetrics, 0, len(byAgent))
	for _, a := range byAgent {
		m := a.metrics
		m.AvgResponseTime = a.r.avg()
		m.MinResponseTime = a.r.min
		m.MaxResponseTime = a.r.max
		m.ResponseCount = a.r.count
		m.ResponseCategory = ResponseCategory(m.AvgResponseTime, m.ResponseCount)
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.ResponseCount == 0) != (b.ResponseCount == 0) {
			return b.ResponseCount == 0
		}
		if a.AvgResponseTime != b.AvgResponseTime {
			return a.AvgResponseTime < b.AvgResponseTime
		}
		return a.AgentName < b.AgentName
	})
	return out
}

// ComputeSystemMetrics builds the dashboard rollup.
func ComputeSystemMetrics(snap *store.Snapshot, now time.Time) *model.SystemMetrics {
	sm := &model.SystemMetrics{
		TotalConversations: len(snap.Conversations),
		TotalMessages:      len(snap.Messages),
		TotalResponseTimes: len(snap.ResponseTimes),
		Agents:             ComputeAgentMetrics(snap),
		GeneratedAt:        now.UTC(),
	}
	for i := range snap.Conversations {
		if snap.Conversations[i].Status == model.StatusActive {
			sm.ActiveConversations++
		}
	}

	var r rollup
	for i := range snap.ResponseTimes {
		r.add(&snap.ResponseTimes[i])
	}
	sm.OverallAvgResponseTime = r.avg()

	recent := ComputeAllConversationMetrics(snap)
	if len(recent) > RecentActivityLimit {
		recent = recent[:RecentActivityLimit]
	}
	sm.RecentActivity = recent
	return sm
}

// SiteCustomerConversations returns rollups for conversations flagged as site customers.
func SiteCustomerConversations(snap *store.Snapshot) []model.ConversationMetrics {
	all := ComputeAllConversationMetrics(snap)
	out := make([]model.ConversationMetrics, 0)
	for _, cm := range all {
		if cm.IsSiteCustomer {
			out = append(out, cm)
		}
	}
	return out
}

// ComputeSiteCustomerStats summarizes site-customer conversations.
func ComputeSiteCustomerStats(snap *store.Snapshot) *model.SiteCustomerStats {
	site := make(map[string]bool)
	stats := &model.SiteCustomerStats{}
	for i := range snap.Conversations {
		c := &snap.Conversations[i]
		if !c.IsSiteCustomer {
			continue
		}
		site[c.ConversationID] = true
		stats.TotalSiteCustomers++
		switch c.Status {
		case model.StatusClosed:
			stats.ClosedConversations++
		case model.StatusActive:
			stats.ActiveConversations++
		}
	}

	var r rollup
	for i := range snap.ResponseTimes {
		if site[snap.ResponseTimes[i].ConversationID] {
			r.add(&snap.ResponseTimes[i])
		}
	}
	stats.AvgResponseTimeSeconds = r.avg()
	return stats
}

// MetricsService serves rollups computed from the store.
type MetricsService struct {
	store store.Store
	now   func() time.Time
}

// NewMetricsService creates a new metrics service.
func NewMetricsService(st store.Store) *MetricsService {
	return &MetricsService{store: st, now: time.Now}
}

// Conversation returns one conversation's rollup.
func (s *MetricsService) Conversation(ctx context.Context, conversationID string) (*model.ConversationMetrics, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	rts, err := s.store.ListResponseTimes(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	cm := ComputeConversationMetrics(conv, msgs, rts)
	return &cm, nil
}

// Conversations returns every conversation rollup, optionally site customers only.
func (s *MetricsService) Conversations(ctx context.Context, siteOnly bool) ([]model.ConversationMetrics, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if siteOnly {
		return SiteCustomerConversations(snap), nil
	}
	return ComputeAllConversationMetrics(snap), nil
}

// Agent returns one agent's rollup or store.ErrNotFound.
func (s *MetricsService) Agent(ctx context.Context, name string) (*model.AgentMetrics, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, am := range ComputeAgentMetrics(snap) {
		if am.AgentName == name {
			return &am, nil
		}
	}
	return nil, store.ErrNotFound
}

// System returns the system-wide rollup.
func (s *MetricsService) System(ctx context.Context) (*model.SystemMetrics, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeSystemMetrics(snap, s.now()), nil
}

// SiteCustomerStats returns the site-customer summary.
func (s *MetricsService) SiteCustomerStats(ctx context.Context) (*model.SiteCustomerStats, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeSiteCustomerStats(snap), nil
}
