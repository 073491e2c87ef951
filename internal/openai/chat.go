package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is used for rephrasing and answering
	DefaultChatModel = "gpt-4o-mini"
	// DefaultChatMaxTokens caps the completion length
	DefaultChatMaxTokens = 2048
)

// ErrNoChoices is returned when the completion has no choices
var ErrNoChoices = errors.New("no completion choices returned")

// ChatAPI is the subset of the SDK used for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatClient produces chat completions for the retrieval chain
type ChatClient struct {
	api       ChatAPI
	model     string
	maxTokens int
}

// NewChatClient creates a chat client from configuration
func NewChatClient(cfg Config) *ChatClient {
	return NewChatClientWithAPI(newSDKClient(cfg), cfg.ChatModel, cfg.ChatMaxTokens)
}

func NewChatClientWithAPI(api ChatAPI, model string, maxTokens int) *ChatClient {
	if model == "" {
		model = DefaultChatModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultChatMaxTokens
	}
	return &ChatClient{
		api:       api,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Complete sends the messages and returns the first choice's text.
func (c *ChatClient) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", classifyError(err))
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", fmt.Errorf("failed to create chat completion: %w", domain.ErrContentRejected)
	}

	return choice.Message.Content, nil
}
