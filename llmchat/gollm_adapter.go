package llmchat

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmAdapter implements Adapter on top of a gollm.LLM instance. gollm
// returns plain text, so requested action calls are recovered by parsing
// JSON payloads out of the reply.
type GollmAdapter struct {
	provider string
	llm      gollm.LLM
	model    string
}

// GollmOption configures a GollmAdapter.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithAPIKey sets the API key for the adapter.
func WithAPIKey(key string) GollmOption {
	return func(c *gollmConfig) {
		c.apiKey = key
	}
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(model string) GollmOption {
	return func(c *gollmConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the default completion budget.
func WithMaxTokens(n int) GollmOption {
	return func(c *gollmConfig) {
		c.maxTokens = n
	}
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float64) GollmOption {
	return func(c *gollmConfig) {
		c.temperature = t
	}
}

// WithGollmOptions appends extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewGollmAdapter creates an adapter for the given provider. An empty apiKey
// leaves key discovery to gollm's own environment lookup.
func NewGollmAdapter(provider string, apiKey string, opts ...GollmOption) (*GollmAdapter, error) {
	cfg := &gollmConfig{
		apiKey:      apiKey,
		maxTokens:   4096,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		if info := DefaultModel(provider); info != nil {
			model = info.ID
		} else {
			switch provider {
			case "openai":
				model = "gpt-4o-mini"
			case "anthropic":
				model = "claude-sonnet-4-5"
			default:
				model = "llama-3.3-70b-versatile"
			}
		}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retries belong to WithRetries, not gollm
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gollm LLM for provider %s: %w", provider, err)
	}

	return &GollmAdapter{
		provider: provider,
		llm:      llm,
		model:    model,
	}, nil
}

// NewGollmAdapterFromLLM wraps an already-configured gollm.LLM instance,
// e.g. one pointed at a custom endpoint.
func NewGollmAdapterFromLLM(provider string, llm gollm.LLM) *GollmAdapter {
	return &GollmAdapter{provider: provider, llm: llm}
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string {
	return a.provider
}

// Complete sends the conversation and returns the parsed reply.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Reply, error) {
	prompt := a.buildPrompt(req)
	a.applyOverrides(req)

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, a.translateError(err)
	}

	return a.buildReply(req, text), nil
}

// buildPrompt flattens the conversation into a gollm prompt: system messages
// become the system prompt, everything else a role-tagged transcript.
func (a *GollmAdapter) buildPrompt(req Request) *gollm.Prompt {
	var system []string
	var lines []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Text)
		case RoleUser:
			lines = append(lines, "[User]: "+msg.Text)
		case RoleAssistant:
			if msg.Text != "" {
				lines = append(lines, "[Assistant]: "+msg.Text)
			}
			if len(msg.Calls) > 0 {
				names := make([]string, len(msg.Calls))
				for i, c := range msg.Calls {
					names[i] = c.Name
				}
				lines = append(lines, "[Assistant called: "+strings.Join(names, ", ")+"]")
			}
		case RoleAction:
			prefix := "[Result of " + msg.Name + "]"
			if msg.IsError {
				prefix = "[Error from " + msg.Name + "]"
			}
			lines = append(lines, prefix+": "+msg.Text)
		}
	}

	promptText := strings.Join(lines, "\n")
	if promptText == "" {
		promptText = "(no user input yet)"
	}

	var promptOpts []gollm.PromptOption
	if len(system) > 0 {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(strings.Join(system, "\n")), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}
	if len(req.Actions) > 0 {
		tools := make([]gollm.Tool, 0, len(req.Actions))
		for _, def := range req.Actions {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        def.Name,
					Description: def.Description,
					Parameters:  def.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
		promptOpts = append(promptOpts, gollm.WithToolChoice("auto"))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// applyOverrides pushes request-level parameters into the gollm instance.
func (a *GollmAdapter) applyOverrides(req Request) {
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

// buildReply extracts action calls from the generated text and assembles the
// reply with a char/4 usage estimate.
func (a *GollmAdapter) buildReply(req Request, text string) *Reply {
	model := req.Model
	if model == "" {
		model = a.model
	}

	calls, clean := extractCalls(text)
	in := estimateRequestTokens(req)
	out := len(text) / 4

	return &Reply{
		ID:       "reply_" + uuid.New().String()[:8],
		Provider: a.provider,
		Model:    model,
		Text:     clean,
		Calls:    calls,
		Usage:    Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
	}
}

// callPayload covers the JSON shapes models use for action requests.
type callPayload struct {
	Name       string          `json:"name"`
	Arguments  json.RawMessage `json:"arguments"`
	Args       json.RawMessage `json:"args"`
	Parameters json.RawMessage `json:"parameters"`
}

func (p callPayload) rawArgs() json.RawMessage {
	if len(p.Arguments) > 0 {
		return p.Arguments
	}
	if len(p.Args) > 0 {
		return p.Args
	}
	return p.Parameters
}

// extractCalls finds the first JSON call payload embedded in the text and
// returns the parsed calls plus the text with the payload removed. Payloads
// may be a single object, an array, or a {"tool_calls": [...]} envelope,
// optionally inside a fenced code block.
func extractCalls(text string) ([]ActionCall, string) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		payloads, width, ok := decodeCallsAt(text[i:])
		if !ok {
			continue
		}
		calls := make([]ActionCall, 0, len(payloads))
		for _, p := range payloads {
			calls = append(calls, ActionCall{
				ID:   "call_" + uuid.New().String()[:8],
				Name: p.Name,
				Args: coerceArgs(p.rawArgs()),
			})
		}
		return calls, stripPayload(text, i, i+width)
	}
	return nil, strings.TrimSpace(text)
}

// decodeCallsAt tries to decode one JSON value at the start of s into call
// payloads, returning how many bytes the value spans.
func decodeCallsAt(s string) ([]callPayload, int, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, 0, false
	}
	width := int(dec.InputOffset())

	var envelope struct {
		ToolCalls []callPayload `json:"tool_calls"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && allNamed(envelope.ToolCalls) {
		return envelope.ToolCalls, width, true
	}

	var list []callPayload
	if err := json.Unmarshal(raw, &list); err == nil && allNamed(list) {
		return list, width, true
	}

	var one callPayload
	if err := json.Unmarshal(raw, &one); err == nil && one.Name != "" {
		return []callPayload{one}, width, true
	}

	return nil, 0, false
}

func allNamed(payloads []callPayload) bool {
	if len(payloads) == 0 {
		return false
	}
	for _, p := range payloads {
		if p.Name == "" {
			return false
		}
	}
	return true
}

// stripPayload removes text[start:end] along with any code fence that
// immediately wrapped it.
func stripPayload(text string, start, end int) string {
	prefix := strings.TrimRight(text[:start], " \t\n")
	for _, fence := range []string{"```json", "```"} {
		if strings.HasSuffix(prefix, fence) {
			prefix = strings.TrimRight(strings.TrimSuffix(prefix, fence), " \t\n")
			break
		}
	}

	suffix := strings.TrimLeft(text[end:], " \t\n")
	if strings.HasPrefix(suffix, "```") {
		suffix = strings.TrimLeft(strings.TrimPrefix(suffix, "```"), " \t\n")
	}

	switch {
	case prefix == "":
		return suffix
	case suffix == "":
		return prefix
	default:
		return prefix + "\n" + suffix
	}
}

// coerceArgs flattens a JSON arguments object into the string map the
// drafting loop expects. Non-string scalars are formatted; nested values are
// re-marshalled.
func coerceArgs(raw json.RawMessage) map[string]string {
	args := make(map[string]string)
	if len(raw) == 0 {
		return args
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return args
	}
	for k, v := range m {
		switch t := v.(type) {
		case string:
			args[k] = t
		case float64:
			args[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			args[k] = strconv.FormatBool(t)
		case nil:
			// dropped; absent and null mean the same thing to the loop
		default:
			if b, err := json.Marshal(v); err == nil {
				args[k] = string(b)
			}
		}
	}
	return args
}

// translateError converts a gollm error into the typed hierarchy. gollm
// surfaces provider failures as strings, so classification starts with a
// status-code sniff and falls back to message content.
func (a *GollmAdapter) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	if code := sniffStatusCode(msg); code != 0 {
		return ErrorFromStatusCode(code, msg, a.provider, err, nil)
	}

	switch {
	case strings.Contains(lower, "rate limit"):
		return ErrorFromStatusCode(429, msg, a.provider, err, nil)
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") || strings.Contains(lower, "invalid key"):
		return ErrorFromStatusCode(401, msg, a.provider, err, nil)
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		return ErrorFromStatusCode(413, msg, a.provider, err, nil)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return &TimeoutError{ServiceError: ServiceError{Message: msg, Cause: err}}
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") || strings.Contains(lower, "connection reset"):
		return &NetworkError{ServiceError: ServiceError{Message: msg, Cause: err}}
	default:
		return &ProviderError{
			ServiceError: ServiceError{Message: msg, Cause: err},
			Provider:     a.provider,
			Retryable:    true,
		}
	}
}

// sniffStatusCode finds a known HTTP status code in an error message.
// Codes whose digits commonly appear in other numbers (400, 408, 413, 422)
// are left to content classification.
func sniffStatusCode(msg string) int {
	for _, code := range []int{401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(msg, strconv.Itoa(code)) {
			return code
		}
	}
	return 0
}

// estimateRequestTokens approximates the prompt size from message text.
func estimateRequestTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Text) / 4
	}
	if total == 0 {
		total = 10
	}
	return total
}
