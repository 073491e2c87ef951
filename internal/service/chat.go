package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/pagination"
	"github.com/cjgv1809/Chat-with-PDF/internal/rag"
	"github.com/cjgv1809/Chat-with-PDF/internal/vectorindex"
)

// DocumentAccess resolves a caller's document and makes it retrievable.
// DocumentService implements it.
type DocumentAccess interface {
	Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error)
	EnsureIngested(ctx context.Context, ownerID, documentID string) (*vectorindex.IngestResult, error)
}

// Asker answers a question about an ingested document. rag.Chain implements it.
type Asker interface {
	Ask(ctx context.Context, documentID, conversationID, question string) (*rag.Answer, error)
}

type TurnWriter interface {
	AppendTurn(ctx context.Context, turn *domain.ChatTurn) error
}

type ChatTurnPager interface {
	ListPage(ctx context.Context, documentID, conversationID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[domain.ChatTurn], error)
}

// ChatService answers questions and records the conversation.
type ChatService struct {
	documents DocumentAccess
	chain     Asker
	turns     TurnWriter
	pager     ChatTurnPager
	uuidGen   UUIDGenerator
}

func NewChatService(documents DocumentAccess, chain Asker, turns TurnWriter, pager ChatTurnPager) *ChatService {
	return &ChatService{
		documents: documents,
		chain:     chain,
		turns:     turns,
		pager:     pager,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

type AskInput struct {
	OwnerID        string
	DocumentID     string
	ConversationID string
	Question       string
}

type AskResult struct {
	Answer         *rag.Answer
	Question       *domain.ChatTurn
	AnswerTurn     *domain.ChatTurn
	ConversationID string
}

// Ask ingests the document if needed, answers the question and appends the
// question and the answer to the conversation. Nothing is recorded when the
// answer could not be produced.
func (s *ChatService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	conversationID := input.ConversationID
	if conversationID == "" {
		conversationID = domain.DefaultConversationID
	}

	if _, err := s.documents.EnsureIngested(ctx, input.OwnerID, input.DocumentID); err != nil {
		return nil, err
	}

	askedAt := time.Now().UTC()
	answer, err := s.chain.Ask(ctx, input.DocumentID, conversationID, question)
	if err != nil {
		return nil, err
	}

	human := domain.NewChatTurn(s.uuidGen.NewString(), input.DocumentID, conversationID, domain.RoleHuman, question, askedAt)
	if err := s.turns.AppendTurn(ctx, human); err != nil {
		return nil, fmt.Errorf("failed to record question: %w", err)
	}

	answeredAt := time.Now().UTC()
	if !answeredAt.After(askedAt) {
		answeredAt = askedAt.Add(time.Microsecond)
	}
	assistant := domain.NewChatTurn(s.uuidGen.NewString(), input.DocumentID, conversationID, domain.RoleAssistant, answer.Text, answeredAt)
	if err := s.turns.AppendTurn(ctx, assistant); err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	return &AskResult{
		Answer:         answer,
		Question:       human,
		AnswerTurn:     assistant,
		ConversationID: conversationID,
	}, nil
}

// History pages through a conversation newest first.
func (s *ChatService) History(ctx context.Context, ownerID, documentID, conversationID, cursor string, limit int) (*pagination.PageResult[domain.ChatTurn], error) {
	if _, err := s.documents.Get(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	if conversationID == "" {
		conversationID = domain.DefaultConversationID
	}
	c, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.pager.ListPage(ctx, documentID, conversationID, c, limit)
}
