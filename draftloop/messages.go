package draftloop

import (
	"time"

	"github.com/martinemde/drafter/llmchat"
)

// MessageKind discriminates between message types.
type MessageKind string

const (
	MessageUser         MessageKind = "user"
	MessageAssistant    MessageKind = "assistant"
	MessageActionResult MessageKind = "action_result"
)

// ResultStatus reports whether an executed action succeeded. Termination
// decisions read this field, never the result text.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusFailure ResultStatus = "failure"
)

// ActionRequest is one action invocation requested by the assistant.
// Argument values are plain strings; the llmchat layer coerces numeric and
// boolean values before a request reaches the loop.
type ActionRequest struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Args map[string]string `json:"args,omitempty"`
}

// Message is a single entry in the conversation history.
type Message struct {
	Kind         MessageKind          `json:"kind"`
	Timestamp    time.Time            `json:"timestamp"`
	User         *UserMessage         `json:"user,omitempty"`
	Assistant    *AssistantMessage    `json:"assistant,omitempty"`
	ActionResult *ActionResultMessage `json:"action_result,omitempty"`
}

// UserMessage holds one line of user input.
type UserMessage struct {
	Content string `json:"content"`
}

// AssistantMessage holds the model's reply for one round.
type AssistantMessage struct {
	Content  string          `json:"content"`
	Requests []ActionRequest `json:"requests,omitempty"`
	Usage    llmchat.Usage   `json:"usage"`
	ReplyID  string          `json:"reply_id,omitempty"`
}

// ActionResultMessage holds the outcome of one executed action.
type ActionResultMessage struct {
	CallID  string       `json:"call_id"`
	Name    string       `json:"name"`
	Status  ResultStatus `json:"status"`
	Content string       `json:"content"`
}

// Succeeded reports whether the result carries a success status.
func (r *ActionResultMessage) Succeeded() bool {
	return r.Status == StatusSuccess
}

// NewUserMessage creates a Message wrapping user input.
func NewUserMessage(content string) Message {
	return Message{
		Kind:      MessageUser,
		Timestamp: time.Now(),
		User:      &UserMessage{Content: content},
	}
}

// NewAssistantMessage creates a Message wrapping an assistant reply.
func NewAssistantMessage(content string, requests []ActionRequest, usage llmchat.Usage, replyID string) Message {
	return Message{
		Kind:      MessageAssistant,
		Timestamp: time.Now(),
		Assistant: &AssistantMessage{
			Content:  content,
			Requests: requests,
			Usage:    usage,
			ReplyID:  replyID,
		},
	}
}

// NewActionResultMessage creates a Message wrapping one action outcome.
func NewActionResultMessage(callID, name string, status ResultStatus, content string) Message {
	return Message{
		Kind:      MessageActionResult,
		Timestamp: time.Now(),
		ActionResult: &ActionResultMessage{
			CallID:  callID,
			Name:    name,
			Status:  status,
			Content: content,
		},
	}
}

// TextContent returns the text content of a message regardless of its kind.
func (m Message) TextContent() string {
	switch m.Kind {
	case MessageUser:
		if m.User != nil {
			return m.User.Content
		}
	case MessageAssistant:
		if m.Assistant != nil {
			return m.Assistant.Content
		}
	case MessageActionResult:
		if m.ActionResult != nil {
			return m.ActionResult.Content
		}
	}
	return ""
}

// ToChatMessages converts the history into wire messages for the chat client.
// The round directive is not stored in history; callers prepend it themselves.
func ToChatMessages(history []Message) []llmchat.ChatMessage {
	var messages []llmchat.ChatMessage
	for _, msg := range history {
		switch msg.Kind {
		case MessageUser:
			if msg.User != nil {
				messages = append(messages, llmchat.UserMessage(msg.User.Content))
			}
		case MessageAssistant:
			if msg.Assistant != nil {
				var calls []llmchat.ActionCall
				for _, req := range msg.Assistant.Requests {
					calls = append(calls, llmchat.ActionCall{ID: req.ID, Name: req.Name, Args: req.Args})
				}
				messages = append(messages, llmchat.AssistantMessage(msg.Assistant.Content, calls...))
			}
		case MessageActionResult:
			if msg.ActionResult != nil {
				r := msg.ActionResult
				messages = append(messages,
					llmchat.ActionResultMessage(r.CallID, r.Name, r.Content, r.Status == StatusFailure))
			}
		}
	}
	return messages
}
