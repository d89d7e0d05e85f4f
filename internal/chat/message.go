package chat

import "slices"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat exchange.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is the append-only list of user and assistant turns of one session.
// It is not safe for concurrent use; sessions serialize access.
type History struct {
	turns []Message
}

// Append adds a turn.
func (h *History) Append(role Role, content string) {
	h.turns = append(h.turns, Message{Role: role, Content: content})
}

// Messages returns a copy of the turns in order.
func (h *History) Messages() []Message {
	return slices.Clone(h.turns)
}

// Len returns the number of turns.
func (h *History) Len() int { return len(h.turns) }
