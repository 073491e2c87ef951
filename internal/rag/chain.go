// Package rag answers questions about an ingested document: it rephrases the
// question against the conversation so far, retrieves the closest passages
// from the document's namespace and asks the chat model to answer from them.
package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/telemetry"
	"github.com/cjgv1809/Chat-with-PDF/internal/vectorindex"
)

// DefaultTopK is the number of passages retrieved per question.
const DefaultTopK = 4

// ChatModel is a chat completion endpoint.
type ChatModel interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// HistorySource returns a conversation oldest first.
type HistorySource interface {
	RecentTurns(ctx context.Context, documentID, conversationID string) ([]domain.ChatTurn, error)
}

// Stage names a step of Ask.
type Stage string

const (
	StageHistory    Stage = "history"
	StageRephrase   Stage = "rephrase"
	StageRetrieve   Stage = "retrieve"
	StageSynthesize Stage = "synthesize"
)

// StageError reports which step of Ask failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Answer is the result of Ask.
type Answer struct {
	Text string
	// Query is the search query used for retrieval; it equals the question
	// when there was no history.
	Query   string
	Sources []domain.ScoredChunk
}

type Config struct {
	TopK    int
	Prompts Prompts
}

type Chain struct {
	history HistorySource
	index   *vectorindex.Manager
	model   ChatModel
	topK    int
	prompts Prompts
}

func NewChain(history HistorySource, index *vectorindex.Manager, model ChatModel, cfg Config) *Chain {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Prompts == (Prompts{}) {
		cfg.Prompts = DefaultPrompts()
	}
	return &Chain{
		history: history,
		index:   index,
		model:   model,
		topK:    cfg.TopK,
		prompts: cfg.Prompts,
	}
}

// Ask runs history, rephrase, retrieve and synthesize in order. Any failure
// is returned as a *StageError; the document must already be ingested.
func (c *Chain) Ask(ctx context.Context, documentID, conversationID, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if documentID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document ID is required")
	}
	if conversationID == "" {
		conversationID = domain.DefaultConversationID
	}

	ctx, span := telemetry.StartSpan(ctx, "rag.ask", telemetry.SpanAttributes{
		DocumentID:     documentID,
		ConversationID: conversationID,
		Operation:      "ask",
	})
	defer span.End()

	fail := func(stage Stage, err error) (*Answer, error) {
		log.Printf("rag: %s stage failed for document %s: %v", stage, documentID, err)
		span.SetError(err)
		return nil, &StageError{Stage: stage, Err: err}
	}

	turns, err := c.history.RecentTurns(ctx, documentID, conversationID)
	if err != nil {
		return fail(StageHistory, err)
	}
	span.SetData("history_turns", len(turns))

	query, err := c.rephrase(ctx, turns, question)
	if err != nil {
		return fail(StageRephrase, err)
	}

	sources, err := c.retrieve(ctx, documentID, query)
	if err != nil {
		return fail(StageRetrieve, err)
	}
	span.SetData("sources", len(sources))

	text, err := c.synthesize(ctx, turns, question, sources)
	if err != nil {
		return fail(StageSynthesize, err)
	}

	return &Answer{Text: text, Query: query, Sources: sources}, nil
}

// rephrase turns a follow-up into a standalone search query. Without history
// the question is already standalone and the model is not called.
func (c *Chain) rephrase(ctx context.Context, turns []domain.ChatTurn, question string) (string, error) {
	if len(turns) == 0 {
		return question, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "rag.rephrase", telemetry.SpanAttributes{Operation: "rephrase"})
	defer span.End()

	messages := make([]domain.ChatMessage, 0, len(turns)+2)
	messages = appendHistory(messages, turns)
	messages = append(messages,
		domain.ChatMessage{Role: domain.MessageRoleUser, Content: question},
		domain.ChatMessage{Role: domain.MessageRoleUser, Content: c.prompts.Rephrase},
	)

	query, err := c.model.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", domain.ErrEmptyAnswer
	}
	return query, nil
}

func (c *Chain) retrieve(ctx context.Context, documentID, query string) ([]domain.ScoredChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "rag.retrieve", telemetry.SpanAttributes{Operation: "retrieve"})
	defer span.End()

	handle, err := c.index.Open(ctx, documentID)
	if err != nil {
		return nil, err
	}

	hits, err := handle.Similar(ctx, query, c.topK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, domain.ErrNoRelevantContext
	}
	return hits, nil
}

func (c *Chain) synthesize(ctx context.Context, turns []domain.ChatTurn, question string, sources []domain.ScoredChunk) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "rag.synthesize", telemetry.SpanAttributes{Operation: "synthesize"})
	defer span.End()

	passages := make([]string, len(sources))
	for i, s := range sources {
		passages[i] = s.Text
	}

	messages := make([]domain.ChatMessage, 0, len(turns)+2)
	messages = append(messages, domain.ChatMessage{Role: domain.MessageRoleSystem, Content: c.prompts.answerSystem(passages)})
	messages = appendHistory(messages, turns)
	messages = append(messages, domain.ChatMessage{Role: domain.MessageRoleUser, Content: question})

	text, err := c.model.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrEmptyAnswer
	}
	return text, nil
}

func appendHistory(messages []domain.ChatMessage, turns []domain.ChatTurn) []domain.ChatMessage {
	for _, t := range turns {
		messages = append(messages, domain.MessageFromTurn(t))
	}
	return messages
}
