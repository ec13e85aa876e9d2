package llmchat

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestExtractCallsArray(t *testing.T) {
	text := `[{"name": "update", "arguments": {"content": "new draft"}}]`
	calls, clean := extractCalls(text)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "update" {
		t.Errorf("expected name update, got %q", calls[0].Name)
	}
	if calls[0].Args["content"] != "new draft" {
		t.Errorf("unexpected args: %v", calls[0].Args)
	}
	if calls[0].ID == "" {
		t.Error("expected a generated call ID")
	}
	if clean != "" {
		t.Errorf("expected empty remaining text, got %q", clean)
	}
}

func TestExtractCallsSingleObject(t *testing.T) {
	text := `{"name": "save", "arguments": {"filename": "report"}}`
	calls, _ := extractCalls(text)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "save" || calls[0].Args["filename"] != "report" {
		t.Errorf("unexpected call: %+v", calls[0])
	}
}

func TestExtractCallsEnvelope(t *testing.T) {
	text := `{"tool_calls": [{"name": "update", "arguments": {"content": "a"}}, {"name": "save", "arguments": {"filename": "b"}}]}`
	calls, _ := extractCalls(text)
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Name != "update" || calls[1].Name != "save" {
		t.Errorf("calls out of order: %q, %q", calls[0].Name, calls[1].Name)
	}
}

func TestExtractCallsWithSurroundingText(t *testing.T) {
	text := "I'll update the draft now.\n" +
		`[{"name": "update", "args": {"content": "hello"}}]` +
		"\nDone."
	calls, clean := extractCalls(text)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Args["content"] != "hello" {
		t.Errorf("unexpected args: %v", calls[0].Args)
	}
	if clean != "I'll update the draft now.\nDone." {
		t.Errorf("unexpected remaining text: %q", clean)
	}
}

func TestExtractCallsFencedBlock(t *testing.T) {
	text := "Updating.\n```json\n" +
		`{"name": "update", "arguments": {"content": "fenced"}}` +
		"\n```\nAnything else?"
	calls, clean := extractCalls(text)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Args["content"] != "fenced" {
		t.Errorf("unexpected args: %v", calls[0].Args)
	}
	if clean != "Updating.\nAnything else?" {
		t.Errorf("expected fence removed, got %q", clean)
	}
}

func TestExtractCallsNone(t *testing.T) {
	text := "Happy to help. What should the draft say?"
	calls, clean := extractCalls(text)
	if calls != nil {
		t.Errorf("expected no calls, got %v", calls)
	}
	if clean != text {
		t.Errorf("expected text unchanged, got %q", clean)
	}
}

func TestExtractCallsIgnoresUnnamedJSON(t *testing.T) {
	text := `The config looks like {"retries": 3} which seems fine.`
	calls, clean := extractCalls(text)
	if calls != nil {
		t.Errorf("expected no calls for unnamed JSON, got %v", calls)
	}
	if clean != text {
		t.Errorf("expected text unchanged, got %q", clean)
	}
}

func TestCoerceArgs(t *testing.T) {
	raw := json.RawMessage(`{
		"content": "plain",
		"count": 3,
		"ratio": 1.5,
		"flag": true,
		"nothing": null,
		"nested": {"a": 1}
	}`)
	args := coerceArgs(raw)

	if args["content"] != "plain" {
		t.Errorf("string: got %q", args["content"])
	}
	if args["count"] != "3" {
		t.Errorf("integer: got %q", args["count"])
	}
	if args["ratio"] != "1.5" {
		t.Errorf("float: got %q", args["ratio"])
	}
	if args["flag"] != "true" {
		t.Errorf("bool: got %q", args["flag"])
	}
	if _, ok := args["nothing"]; ok {
		t.Error("null values should be dropped")
	}
	if args["nested"] != `{"a":1}` {
		t.Errorf("nested: got %q", args["nested"])
	}
}

func TestCoerceArgsEmpty(t *testing.T) {
	if got := coerceArgs(nil); len(got) != 0 {
		t.Errorf("expected empty map for nil input, got %v", got)
	}
	if got := coerceArgs(json.RawMessage(`not json`)); len(got) != 0 {
		t.Errorf("expected empty map for invalid input, got %v", got)
	}
}

func TestSniffStatusCode(t *testing.T) {
	tests := []struct {
		msg  string
		want int
	}{
		{"request failed with status 429", 429},
		{"got 503 from upstream", 503},
		{"API error 401 Unauthorized", 401},
		{"max 4000 tokens allowed", 0},
		{"no digits here", 0},
	}
	for _, tt := range tests {
		if got := sniffStatusCode(tt.msg); got != tt.want {
			t.Errorf("%q: expected %d, got %d", tt.msg, tt.want, got)
		}
	}
}

func TestGollmAdapterTranslateError(t *testing.T) {
	adapter := &GollmAdapter{provider: "groq"}

	tests := []struct {
		errMsg string
		check  func(error) bool
		want   string
	}{
		{"401 Unauthorized", func(e error) bool { _, ok := e.(*AuthError); return ok }, "AuthError"},
		{"invalid api key", func(e error) bool { _, ok := e.(*AuthError); return ok }, "AuthError"},
		{"403 Forbidden", func(e error) bool { _, ok := e.(*AccessDeniedError); return ok }, "AccessDeniedError"},
		{"404 not found", func(e error) bool { _, ok := e.(*NotFoundError); return ok }, "NotFoundError"},
		{"429 rate limit exceeded", func(e error) bool { _, ok := e.(*RateLimitError); return ok }, "RateLimitError"},
		{"rate limit reached", func(e error) bool { _, ok := e.(*RateLimitError); return ok }, "RateLimitError"},
		{"context length exceeded", func(e error) bool { _, ok := e.(*ContextLengthError); return ok }, "ContextLengthError"},
		{"500 internal server error", func(e error) bool { _, ok := e.(*ServerError); return ok }, "ServerError"},
		{"timeout waiting for response", func(e error) bool { _, ok := e.(*TimeoutError); return ok }, "TimeoutError"},
		{"context deadline exceeded", func(e error) bool { _, ok := e.(*TimeoutError); return ok }, "TimeoutError"},
		{"dial tcp: connection refused", func(e error) bool { _, ok := e.(*NetworkError); return ok }, "NetworkError"},
		{"something unknown", func(e error) bool { _, ok := e.(*ProviderError); return ok }, "ProviderError"},
	}

	for _, tt := range tests {
		err := adapter.translateError(errors.New(tt.errMsg))
		if err == nil {
			t.Errorf("%q: expected non-nil error", tt.errMsg)
			continue
		}
		if !tt.check(err) {
			t.Errorf("%q: expected %s, got %T", tt.errMsg, tt.want, err)
		}
	}

	if adapter.translateError(nil) != nil {
		t.Error("expected nil for nil input")
	}
}

func TestTranslateErrorPreservesCause(t *testing.T) {
	adapter := &GollmAdapter{provider: "groq"}
	cause := fmt.Errorf("429 too many requests")
	err := adapter.translateError(cause)
	if !errors.Is(err, cause) {
		t.Error("expected translated error to wrap the original")
	}
	if !IsRetryable(err) {
		t.Error("expected a 429 translation to be retryable")
	}
}

func TestEstimateRequestTokens(t *testing.T) {
	req := Request{
		Messages: []ChatMessage{
			SystemMessage("abcdefgh"), // 8 chars -> 2
			UserMessage("12345678"),   // 8 chars -> 2
		},
	}
	if got := estimateRequestTokens(req); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
	if got := estimateRequestTokens(Request{}); got != 10 {
		t.Errorf("expected floor of 10 for empty request, got %d", got)
	}
}

func TestBuildReplySplitsCallsFromText(t *testing.T) {
	adapter := &GollmAdapter{provider: "groq", model: "llama-3.3-70b-versatile"}
	text := "On it.\n" + `{"name": "update", "arguments": {"content": "v2"}}`

	reply := adapter.buildReply(Request{Model: "llama-3.3-70b-versatile"}, text)
	if reply.Text != "On it." {
		t.Errorf("expected stripped text, got %q", reply.Text)
	}
	if len(reply.Calls) != 1 || reply.Calls[0].Name != "update" {
		t.Errorf("unexpected calls: %+v", reply.Calls)
	}
	if reply.Provider != "groq" {
		t.Errorf("expected provider groq, got %q", reply.Provider)
	}
	if reply.Model != "llama-3.3-70b-versatile" {
		t.Errorf("unexpected model %q", reply.Model)
	}
	if reply.Usage.OutputTokens == 0 {
		t.Error("expected a non-zero output estimate")
	}
}
