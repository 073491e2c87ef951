package domain

// MessageRole is the author of a prompt message sent to a chat model
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ChatMessage is a single prompt message for a chat model.
type ChatMessage struct {
	Role    MessageRole
	Content string
}

// MessageFromTurn maps a stored chat turn onto a prompt message.
func MessageFromTurn(t ChatTurn) ChatMessage {
	role := MessageRoleUser
	if t.Role == RoleAssistant {
		role = MessageRoleAssistant
	}
	return ChatMessage{Role: role, Content: t.Message}
}
