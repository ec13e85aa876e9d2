package llmchat

import "strings"

// Role identifies who produced a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleAction    Role = "action"
)

// ChatMessage is one entry in the conversation sent to the model.
// Calls is populated only on assistant messages; CallID, Name and IsError
// only on action-result messages.
type ChatMessage struct {
	Role    Role         `json:"role"`
	Text    string       `json:"text"`
	Calls   []ActionCall `json:"calls,omitempty"`
	CallID  string       `json:"call_id,omitempty"`
	Name    string       `json:"name,omitempty"`
	IsError bool         `json:"is_error,omitempty"`
}

// SystemMessage creates a system ChatMessage.
func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Text: text}
}

// UserMessage creates a user ChatMessage.
func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: RoleUser, Text: text}
}

// AssistantMessage creates an assistant ChatMessage with any action calls it made.
func AssistantMessage(text string, calls ...ActionCall) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Text: text, Calls: calls}
}

// ActionResultMessage creates a ChatMessage carrying the result of one action call.
func ActionResultMessage(callID, name, text string, isError bool) ChatMessage {
	return ChatMessage{Role: RoleAction, Text: text, CallID: callID, Name: name, IsError: isError}
}

// ActionCall is a model-requested action invocation. Argument values are
// plain strings; the adapter coerces anything else the model produced.
type ActionCall struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Args map[string]string `json:"args"`
}

// ActionDefinition describes one action the model may request.
// Parameters is a JSON Schema object.
type ActionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Request is the input to Complete.
type Request struct {
	Provider    string             `json:"provider,omitempty"`
	Model       string             `json:"model"`
	Messages    []ChatMessage      `json:"messages"`
	Actions     []ActionDefinition `json:"actions,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	MaxTokens   *int               `json:"max_tokens,omitempty"`
}

// Usage holds estimated token counts for one exchange. gollm does not expose
// provider-reported usage, so these are char/4 approximations.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Reply is the output of Complete.
type Reply struct {
	ID       string       `json:"id"`
	Provider string       `json:"provider"`
	Model    string       `json:"model"`
	Text     string       `json:"text"`
	Calls    []ActionCall `json:"calls,omitempty"`
	Usage    Usage        `json:"usage"`
}

// HasCalls reports whether the model requested any actions.
func (r *Reply) HasCalls() bool {
	return len(r.Calls) > 0
}

// CallNames returns the requested action names in request order.
func (r *Reply) CallNames() []string {
	if len(r.Calls) == 0 {
		return nil
	}
	names := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		names[i] = c.Name
	}
	return names
}

// JoinedText trims the reply text and collapses windows-style line endings,
// which some providers emit inside generated prose.
func (r *Reply) JoinedText() string {
	return strings.TrimSpace(strings.ReplaceAll(r.Text, "\r\n", "\n"))
}
