// Package history reads and appends conversation turns for a document.
package history

import (
	"context"
	"fmt"
	"slices"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
)

// Repository is the turn storage. ListRecent returns turns newest first,
// at most limit of them when limit > 0.
type Repository interface {
	Append(ctx context.Context, turn *domain.ChatTurn) error
	ListRecent(ctx context.Context, documentID, conversationID string, limit int) ([]domain.ChatTurn, error)
}

// Store wraps a Repository with the ordering the chain expects.
type Store struct {
	repo  Repository
	limit int
}

// NewStore creates a Store. limit <= 0 loads the whole conversation.
func NewStore(repo Repository, limit int) *Store {
	return &Store{repo: repo, limit: limit}
}

// RecentTurns returns the conversation oldest first.
func (s *Store) RecentTurns(ctx context.Context, documentID, conversationID string) ([]domain.ChatTurn, error) {
	if conversationID == "" {
		conversationID = domain.DefaultConversationID
	}

	turns, err := s.repo.ListRecent(ctx, documentID, conversationID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	slices.Reverse(turns)
	return turns, nil
}

// AppendTurn validates and stores a turn.
func (s *Store) AppendTurn(ctx context.Context, turn *domain.ChatTurn) error {
	if err := domain.ValidateChatTurn(turn); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid chat turn", err)
	}
	if err := s.repo.Append(ctx, turn); err != nil {
		return fmt.Errorf("failed to append chat turn: %w", err)
	}
	return nil
}
