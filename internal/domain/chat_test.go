package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatTurn_DefaultConversation(t *testing.T) {
	now := time.Now()
	turn := NewChatTurn("t1", "doc1", "", RoleHuman, "hello", now)

	assert.Equal(t, DefaultConversationID, turn.ConversationID)
	assert.Equal(t, RoleHuman, turn.Role)
	assert.Equal(t, "hello", turn.Message)
	assert.NoError(t, ValidateChatTurn(turn))
}

func TestValidateChatTurn(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		turn   *ChatTurn
		errMsg string
	}{
		{"nil", nil, "cannot be nil"},
		{"missing ID", &ChatTurn{DocumentID: "d", ConversationID: "c", Role: RoleHuman, CreatedAt: now}, "ID is required"},
		{"missing document", &ChatTurn{ID: "t", ConversationID: "c", Role: RoleHuman, CreatedAt: now}, "DocumentID is required"},
		{"missing conversation", &ChatTurn{ID: "t", DocumentID: "d", Role: RoleHuman, CreatedAt: now}, "ConversationID is required"},
		{"bad role", &ChatTurn{ID: "t", DocumentID: "d", ConversationID: "c", Role: "system", CreatedAt: now}, "Role is invalid"},
		{"missing timestamp", &ChatTurn{ID: "t", DocumentID: "d", ConversationID: "c", Role: RoleAssistant}, "CreatedAt is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChatTurn(tt.turn)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDomainError_IsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("loading document: %w", ErrDocumentNotFound)

	assert.True(t, errors.Is(wrapped, ErrDocumentNotFound))
	assert.False(t, errors.Is(wrapped, ErrNamespaceNotFound))
	assert.Equal(t, ErrCodeNotFound, ErrorCode(wrapped))
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
}

func TestDomainError_WithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDomainErrorWithCause(ErrCodeUpstream, "answer failed", cause)

	assert.Equal(t, "[UPSTREAM_ERROR] answer failed: connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestIngestProgress_Terminal(t *testing.T) {
	assert.False(t, IngestProgress{Stage: IngestStageEmbedding}.Terminal())
	assert.True(t, IngestProgress{Stage: IngestStageDone}.Terminal())
	assert.True(t, IngestProgress{Stage: IngestStageError}.Terminal())
}

func TestValidateIngestionJob(t *testing.T) {
	job := NewIngestionJob("job1", "doc1", time.Now())
	require.NoError(t, ValidateIngestionJob(job))

	job.Status = "unknown"
	assert.Error(t, ValidateIngestionJob(job))

	job = NewIngestionJob("job1", "", time.Now())
	assert.Error(t, ValidateIngestionJob(job))

	job = NewIngestionJob("job1", "doc1", time.Now())
	job.Retries = -1
	assert.Error(t, ValidateIngestionJob(job))
}
