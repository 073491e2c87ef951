package testutil

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
)

// KeywordEmbedder is a deterministic stand-in for an embedding model: every
// word is hashed into one of Dims buckets, so texts sharing words point in
// similar directions.
type KeywordEmbedder struct {
	Dims  int
	calls atomic.Int64
}

func NewKeywordEmbedder(dims int) *KeywordEmbedder {
	return &KeywordEmbedder{Dims: dims}
}

func (e *KeywordEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.calls.Add(1)

	vec := make([]float32, e.Dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.Dims)]++
	}
	return vec, nil
}

// Calls returns the number of model calls made so far.
func (e *KeywordEmbedder) Calls() int {
	return int(e.calls.Load())
}

// ChatFunc adapts a function to the chat model port and records every
// conversation it was sent.
type ChatFunc struct {
	Reply func(messages []domain.ChatMessage) (string, error)

	mu    sync.Mutex
	calls [][]domain.ChatMessage
}

func NewChatFunc(reply func(messages []domain.ChatMessage) (string, error)) *ChatFunc {
	return &ChatFunc{Reply: reply}
}

func (c *ChatFunc) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.calls = append(c.calls, append([]domain.ChatMessage(nil), messages...))
	c.mu.Unlock()
	return c.Reply(messages)
}

// Calls returns a copy of the recorded conversations.
func (c *ChatFunc) Calls() [][]domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]domain.ChatMessage(nil), c.calls...)
}
