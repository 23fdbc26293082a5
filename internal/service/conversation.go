package service

import (
	"context"
	"fmt"

	"github.com/adsdsdsdad/uMBLER01/internal/model"
	"github.com/adsdsdsdad/uMBLER01/internal/store"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
)

// DefaultRecentLimit and MaxRecentLimit bound the recent messages listing.
const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 200
)

// ConversationService serves read access to conversations and their ledgers.
type ConversationService struct {
	store  store.Store
	logger *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(st store.Store, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store:  st,
		logger: orGlobal(log),
	}
}

// Get retrieves a conversation with its messages and response times.
func (s *ConversationService) Get(ctx context.Context, conversationID string) (*model.ConversationDetail, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	rts, err := s.store.ListResponseTimes(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list response times: %w", err)
	}

	return &model.ConversationDetail{
		ConversationID: conversationID,
		Conversation:   conv,
		Messages:       nonNil(msgs),
		ResponseTimes:  nonNil(rts),
	}, nil
}

// Messages lists a conversation's ledger. Each customer message carries the
// first response that answered it.
func (s *ConversationService) Messages(ctx context.Context, conversationID string) (*model.ListMessagesResponse, error) {
	if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	rts, err := s.store.ListResponseTimes(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list response times: %w", err)
	}

	first := make(map[string]*model.ResponseTime, len(rts))
	for i := range rts {
		rt := &rts[i]
		prev, ok := first[rt.CustomerMessageID]
		if !ok || rt.AgentResponseTime.Before(prev.AgentResponseTime) {
			first[rt.CustomerMessageID] = rt
		}
	}

	out := make([]model.MessageWithResponse, 0, len(msgs))
	for _, m := range msgs {
		mr := model.MessageWithResponse{Message: m}
		if rt, ok := first[m.MessageID]; ok {
			secs := rt.ResponseTimeSeconds
			at := rt.AgentResponseTime
			mr.ResponseTimeSeconds = &secs
			mr.AgentResponseTime = &at
		}
		out = append(out, mr)
	}

	return &model.ListMessagesResponse{
		ConversationID: conversationID,
		Messages:       out,
		Total:          len(out),
	}, nil
}

// ResponseTimes lists a conversation's response time records.
func (s *ConversationService) ResponseTimes(ctx context.Context, conversationID string) ([]model.ResponseTime, error) {
	if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	rts, err := s.store.ListResponseTimes(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list response times: %w", err)
	}
	return nonNil(rts), nil
}

// RecentMessages returns the newest messages across conversations.
// The limit is clamped to [1, MaxRecentLimit].
func (s *ConversationService) RecentMessages(ctx context.Context, limit int) ([]model.Message, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}
	msgs, err := s.store.RecentMessages(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	return nonNil(msgs), nil
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
