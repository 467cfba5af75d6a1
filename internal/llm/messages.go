package llm

import "github.com/rezonia/invoice-assistant/internal/model"

// MessageRole is the role of a message sent to the model
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is a provider-neutral chat message
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// BuildMessages assembles the system instruction, the transcript and the new
// user message, in that order. It has no side effects.
func BuildMessages(history []model.Turn, newMessage string) []Message {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: MessageRoleSystem, Content: SystemPromptInvoiceAssistant})

	for _, turn := range history {
		role := MessageRoleAssistant
		if turn.Role == model.RoleUser {
			role = MessageRoleUser
		}
		messages = append(messages, Message{Role: role, Content: turn.Content})
	}

	return append(messages, Message{Role: MessageRoleUser, Content: newMessage})
}
