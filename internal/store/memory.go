package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/adsdsdsdad/uMBLER01/internal/model"
)

// MemoryStore keeps everything in process. It backs tests and single-node
// development runs; all writes go through one lock so inserts stay atomic.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
	messages      map[string]*model.Message
	byConv        map[string][]string
	responseTimes map[model.PairKey]*model.ResponseTime
	answered      map[string]bool
	now           func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string]*model.Message),
		byConv:        make(map[string][]string),
		responseTimes: make(map[model.PairKey]*model.ResponseTime),
		answered:      make(map[string]bool),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// UpsertConversation creates or merges a conversation.
func (s *MemoryStore) UpsertConversation(ctx context.Context, up *ConversationUpsert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv, exists := s.conversations[up.ConversationID]
	if !exists {
		conv = &model.Conversation{
			ConversationID: up.ConversationID,
			Status:         model.StatusActive,
			CreatedAt:      now,
		}
		s.conversations[up.ConversationID] = conv
	}

	conv.CustomerName = coalesce(up.CustomerName, conv.CustomerName)
	conv.CustomerPhone = coalesce(up.CustomerPhone, conv.CustomerPhone)
	conv.CustomerEmail = coalesce(up.CustomerEmail, conv.CustomerEmail)
	if up.AgentIsPlaceholder {
		conv.AgentName = coalesce(conv.AgentName, up.AgentName)
	} else {
		conv.AgentName = coalesce(up.AgentName, conv.AgentName)
	}
	conv.IsSiteCustomer = conv.IsSiteCustomer || up.IsSiteCustomer
	conv.UpdatedAt = now

	return nil
}

// UpdateConversationStatus sets the lifecycle status.
func (s *MemoryStore) UpdateConversationStatus(ctx context.Context, conversationID string, status model.ConversationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[conversationID]
	if !exists {
		return ErrNotFound
	}
	conv.Status = status
	conv.UpdatedAt = s.now()
	return nil
}

// UpdateConversationAgent reassigns the agent-of-record.
func (s *MemoryStore) UpdateConversationAgent(ctx context.Context, conversationID, agentName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[conversationID]
	if !exists {
		return ErrNotFound
	}
	name := agentName
	conv.AgentName = &name
	conv.UpdatedAt = s.now()
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *MemoryStore) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[conversationID]
	if !exists {
		return nil, ErrNotFound
	}
	c := *conv
	return &c, nil
}

// ListConversationIDs returns every conversation id in ascending order.
func (s *MemoryStore) ListConversationIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// InsertMessageIfAbsent appends a message unless its id is already stored.
func (s *MemoryStore) InsertMessageIfAbsent(ctx context.Context, msg *model.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[msg.MessageID]; exists {
		return false, nil
	}
	m := *msg
	m.Timestamp = normalize(m.Timestamp)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.messages[m.MessageID] = &m
	s.byConv[m.ConversationID] = append(s.byConv[m.ConversationID], m.MessageID)
	return true, nil
}

// ListMessages returns a conversation's ledger ordered by timestamp.
func (s *MemoryStore) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.conversationMessages(conversationID), nil
}

// RecentMessages returns the newest messages across all conversations.
func (s *MemoryStore) RecentMessages(ctx context.Context, limit int) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, *m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].MessageID < out[j].MessageID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MatchPending selects the backlog and inserts its pairings under one write lock.
func (s *MemoryStore) MatchPending(ctx context.Context, agent *model.Message, pair PairFunc) ([]model.ResponseTime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created []model.ResponseTime
	for _, rt := range pair(s.pendingLocked(agent.ConversationID, agent.Timestamp)) {
		if s.insertResponseTimeLocked(&rt) {
			created = append(created, rt)
		}
	}
	return created, nil
}

func (s *MemoryStore) pendingLocked(conversationID string, before time.Time) []model.Message {
	var pending []model.Message
	for _, m := range s.conversationMessages(conversationID) {
		if m.SenderType != model.SenderCustomer || m.IsPrivate() {
			continue
		}
		if !m.Timestamp.Before(before) || s.answered[m.MessageID] {
			continue
		}
		pending = append(pending, m)
	}
	return pending
}

// InsertResponseTimeIfAbsent records a pairing unless it already exists or the
// customer message is already answered.
func (s *MemoryStore) InsertResponseTimeIfAbsent(ctx context.Context, rt *model.ResponseTime) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertResponseTimeLocked(rt), nil
}

func (s *MemoryStore) insertResponseTimeLocked(rt *model.ResponseTime) bool {
	key := rt.Key()
	if _, exists := s.responseTimes[key]; exists || s.answered[key.CustomerMessageID] {
		return false
	}
	r := *rt
	r.CustomerMessageTime = normalize(r.CustomerMessageTime)
	r.AgentResponseTime = normalize(r.AgentResponseTime)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.responseTimes[key] = &r
	s.answered[key.CustomerMessageID] = true
	return true
}

// ListResponseTimes returns a conversation's records ordered by customer message time.
func (s *MemoryStore) ListResponseTimes(ctx context.Context, conversationID string) ([]model.ResponseTime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ResponseTime
	for _, rt := range s.responseTimes {
		if rt.ConversationID == conversationID {
			out = append(out, *rt)
		}
	}
	sortResponseTimes(out)
	return out, nil
}

// Snapshot copies every table.
func (s *MemoryStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Conversations: make([]model.Conversation, 0, len(s.conversations)),
		Messages:      make([]model.Message, 0, len(s.messages)),
		ResponseTimes: make([]model.ResponseTime, 0, len(s.responseTimes)),
	}
	for _, c := range s.conversations {
		snap.Conversations = append(snap.Conversations, *c)
	}
	for _, m := range s.messages {
		snap.Messages = append(snap.Messages, *m)
	}
	for _, rt := range s.responseTimes {
		snap.ResponseTimes = append(snap.ResponseTimes, *rt)
	}
	sort.Slice(snap.Conversations, func(i, j int) bool {
		return snap.Conversations[i].ConversationID < snap.Conversations[j].ConversationID
	})
	sortMessages(snap.Messages)
	sortResponseTimes(snap.ResponseTimes)
	return snap, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) conversationMessages(conversationID string) []model.Message {
	ids := s.byConv[conversationID]
	out := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.messages[id])
	}
	sortMessages(out)
	return out
}

func sortMessages(msgs []model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		}
		return msgs[i].MessageID < msgs[j].MessageID
	})
}

func sortResponseTimes(rts []model.ResponseTime) {
	sort.SliceStable(rts, func(i, j int) bool {
		if !rts[i].CustomerMessageTime.Equal(rts[j].CustomerMessageTime) {
			return rts[i].CustomerMessageTime.Before(rts[j].CustomerMessageTime)
		}
		if rts[i].CustomerMessageID != rts[j].CustomerMessageID {
			return rts[i].CustomerMessageID < rts[j].CustomerMessageID
		}
		return rts[i].AgentMessageID < rts[j].AgentMessageID
	})
}

func coalesce(v, fallback *string) *string {
	if v != nil {
		return v
	}
	return fallback
}
