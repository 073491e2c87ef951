package history

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
)

// MemoryRepository keeps turns in process memory, for local mode and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	turns map[string][]domain.ChatTurn
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{turns: make(map[string][]domain.ChatTurn)}
}

func key(documentID, conversationID string) string {
	return documentID + "\x00" + conversationID
}

func (m *MemoryRepository) Append(ctx context.Context, turn *domain.ChatTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(turn.DocumentID, turn.ConversationID)
	m.turns[k] = append(m.turns[k], *turn)
	return nil
}

func (m *MemoryRepository) ListRecent(ctx context.Context, documentID, conversationID string, limit int) ([]domain.ChatTurn, error) {
	m.mu.RLock()
	turns := slices.Clone(m.turns[key(documentID, conversationID)])
	m.mu.RUnlock()

	// Stable so turns with equal timestamps keep their insertion order.
	slices.SortStableFunc(turns, func(a, b domain.ChatTurn) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	if limit > 0 && len(turns) > limit {
		turns = turns[:limit]
	}
	if turns == nil {
		turns = []domain.ChatTurn{}
	}
	return turns, nil
}
