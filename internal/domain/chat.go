package domain

import (
	"fmt"
	"time"
)

// Role identifies the author of a chat turn
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// DefaultConversationID is used when a caller does not track separate
// conversations per document.
const DefaultConversationID = "default"

// ChatTurn is one message in a conversation about a document. Turns are
// append-only.
type ChatTurn struct {
	ID             string
	DocumentID     string
	ConversationID string
	Role           Role
	Message        string
	CreatedAt      time.Time
}

// NewChatTurn creates a new ChatTurn instance
func NewChatTurn(id, documentID, conversationID string, role Role, message string, createdAt time.Time) *ChatTurn {
	if conversationID == "" {
		conversationID = DefaultConversationID
	}
	return &ChatTurn{
		ID:             id,
		DocumentID:     documentID,
		ConversationID: conversationID,
		Role:           role,
		Message:        message,
		CreatedAt:      createdAt,
	}
}

// ValidateChatTurn validates a ChatTurn instance
func ValidateChatTurn(t *ChatTurn) error {
	if t == nil {
		return fmt.Errorf("chat turn cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("chat turn ID is required")
	}

	if t.DocumentID == "" {
		return fmt.Errorf("chat turn DocumentID is required")
	}

	if t.ConversationID == "" {
		return fmt.Errorf("chat turn ConversationID is required")
	}

	if !IsValidRole(t.Role) {
		return fmt.Errorf("chat turn Role is invalid: %s", t.Role)
	}

	if t.CreatedAt.IsZero() {
		return fmt.Errorf("chat turn CreatedAt is required")
	}

	return nil
}

// IsValidRole checks if a Role is valid
func IsValidRole(r Role) bool {
	switch r {
	case RoleHuman, RoleAssistant:
		return true
	}
	return false
}
