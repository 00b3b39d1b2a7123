package domain

// Role tags a message in a model conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged turn sent to the model.
// The system string travels separately (see ports.LLM).
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response is the model's reply.
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}
