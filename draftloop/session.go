package draftloop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/martinemde/drafter/llmchat"
)

// SessionState represents the lifecycle state of a drafting session.
type SessionState string

const (
	StateDeciding SessionState = "deciding"
	StateActing   SessionState = "acting"
	StateHalted   SessionState = "halted"
	StateFailed   SessionState = "failed"
)

// Round prompts shown when requesting user input. The first round carries
// the longer greeting; every later round uses the short form.
const (
	FirstRoundPrompt = "I'm ready to help you update your draft. What would you like to do? "
	NextRoundPrompt  = "What would you like to do? "
)

// InputSource supplies one line of user input per round. Next blocks until
// input is available, the source is exhausted, or ctx is cancelled. An
// exhausted source reports io.EOF.
type InputSource interface {
	Next(ctx context.Context, prompt string) (string, error)
}

// SessionConfig holds configuration for a session.
type SessionConfig struct {
	Provider        string        `json:"provider,omitempty"`
	Model           string        `json:"model,omitempty"`
	MaxRounds       int           `json:"max_rounds"` // 0 = unlimited
	DecideTimeout   time.Duration `json:"decide_timeout"`
	SaveDir         string        `json:"save_dir,omitempty"`
	ContextWindow   int           `json:"context_window,omitempty"` // 0 = from the model catalog
	EventBufferSize int           `json:"event_buffer_size,omitempty"`
	EnableLoopCheck bool          `json:"enable_loop_check"`
	LoopCheckWindow int           `json:"loop_check_window"`
}

// DefaultSessionConfig returns the default configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxRounds:       50,
		DecideTimeout:   2 * time.Minute,
		EnableLoopCheck: true,
		LoopCheckWindow: 6,
	}
}

// Session drives the drafting loop: collect one line of user input, ask the
// model what to do, execute the requested actions in order, and stop once
// the document has been saved. It owns the document, the action registry
// handle, and the append-only conversation history.
type Session struct {
	id       string
	config   SessionConfig
	document *Document
	registry *Registry
	history  []Message
	client   *llmchat.Client
	emitter  *EventEmitter
	logger   *slog.Logger
	state    SessionState
	round    int
	mu       sync.Mutex
}

// NewSession creates a session backed by the given chat client and action
// registry. A nil config uses DefaultSessionConfig.
func NewSession(client *llmchat.Client, registry *Registry, config *SessionConfig) *Session {
	sessionID := uuid.New().String()

	cfg := DefaultSessionConfig()
	if config != nil {
		cfg = *config
	}

	return &Session{
		id:       sessionID,
		config:   cfg,
		document: NewDocument(),
		registry: registry,
		history:  make([]Message, 0),
		client:   client,
		emitter:  NewEventEmitter(sessionID, cfg.EventBufferSize),
		logger:   slog.Default(),
		state:    StateDeciding,
	}
}

// SetLogger replaces the session logger. A nil logger restores the default.
func (s *Session) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Round returns the number of completed decision rounds.
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Document returns the working draft.
func (s *Session) Document() *Document {
	return s.document
}

// History returns a copy of the conversation history.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := make([]Message, len(s.history))
	copy(h, s.history)
	return h
}

// Events returns the event channel for the host application.
func (s *Session) Events() <-chan SessionEvent {
	return s.emitter.Events()
}

// Close releases the event channel. Safe to call multiple times.
func (s *Session) Close() {
	s.emitter.Close()
}

// Run drives the loop until the document is saved, ctx is cancelled, or a
// fatal error occurs. It returns nil exactly when a save succeeded; the
// caller can map that directly to the process exit status.
func (s *Session) Run(ctx context.Context, source InputSource) error {
	s.mu.Lock()
	if s.state == StateHalted || s.state == StateFailed {
		s.mu.Unlock()
		return ErrSessionFinished
	}
	s.state = StateDeciding
	s.mu.Unlock()

	s.emitter.Emit(EventSessionStart, map[string]interface{}{
		"provider": s.config.Provider,
		"model":    s.config.Model,
	})
	s.logger.Info("session started",
		"session_id", s.id,
		"provider", s.config.Provider,
		"model", s.config.Model,
		"max_rounds", s.config.MaxRounds)

	err := s.run(ctx, source)
	if err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.mu.Unlock()
		s.emitter.Emit(EventSessionError, map[string]interface{}{
			"error": err.Error(),
		})
		s.logger.Error("session failed", "session_id", s.id, "round", s.Round(), "error", err)
		return err
	}

	s.emitter.Emit(EventSessionEnd, map[string]interface{}{
		"rounds": s.Round(),
	})
	s.logger.Info("session finished", "session_id", s.id, "rounds", s.Round())
	return nil
}

func (s *Session) run(ctx context.Context, source InputSource) error {
	for {
		s.mu.Lock()
		completed := s.round
		historyLen := len(s.history)
		s.mu.Unlock()

		// Explicit round cap so a runaway session fails loudly instead of
		// looping forever.
		if s.config.MaxRounds > 0 && completed >= s.config.MaxRounds {
			s.emitter.Emit(EventRoundLimit, map[string]interface{}{
				"rounds": completed,
			})
			return fmt.Errorf("%w (max %d)", ErrRoundLimit, s.config.MaxRounds)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.Lock()
		s.round++
		round := s.round
		s.state = StateDeciding
		s.mu.Unlock()

		s.emitter.Emit(EventRoundStart, map[string]interface{}{
			"round": round,
		})

		prompt := NextRoundPrompt
		if historyLen == 0 {
			prompt = FirstRoundPrompt
		}

		input, err := source.Next(ctx, prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrInputClosed
			}
			return fmt.Errorf("reading user input: %w", err)
		}
		s.emitter.Emit(EventUserInput, map[string]interface{}{
			"content": input,
		})

		requests, err := s.decide(ctx, input)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.state = StateActing
		s.mu.Unlock()

		if err := s.executeActions(ctx, requests); err != nil {
			return err
		}

		if !ShouldContinue(s.History()) {
			s.mu.Lock()
			s.state = StateHalted
			s.mu.Unlock()
			return nil
		}

		s.checkContextUsage()
		s.checkActionLoop()
	}
}

// decide runs one decision round: build the directive from the live
// document, send it with the full history and the new user input, and parse
// the reply. History gains the user message and the assistant message only
// after the call succeeds, so a failed call commits nothing.
func (s *Session) decide(ctx context.Context, userInput string) ([]ActionRequest, error) {
	defs := s.registry.Definitions()
	directive := BuildDirective(s.document.Snapshot(), defs)

	messages := make([]llmchat.ChatMessage, 0, len(s.history)+2)
	messages = append(messages, llmchat.SystemMessage(directive))
	messages = append(messages, ToChatMessages(s.History())...)
	messages = append(messages, llmchat.UserMessage(userInput))

	request := llmchat.Request{
		Provider: s.config.Provider,
		Model:    s.config.Model,
		Messages: messages,
		Actions:  defs,
	}

	callCtx := ctx
	if s.config.DecideTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.config.DecideTimeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := s.client.Complete(callCtx, request)
	if err != nil {
		return nil, &ServiceUnavailableError{Cause: err}
	}
	s.logger.Debug("decision complete",
		"session_id", s.id,
		"duration", time.Since(start),
		"actions", reply.CallNames())

	var requests []ActionRequest
	for _, call := range reply.Calls {
		requests = append(requests, ActionRequest{ID: call.ID, Name: call.Name, Args: call.Args})
	}

	s.mu.Lock()
	s.history = append(s.history, NewUserMessage(userInput))
	s.history = append(s.history, NewAssistantMessage(reply.Text, requests, reply.Usage, reply.ID))
	s.mu.Unlock()

	s.emitter.Emit(EventAssistantReply, map[string]interface{}{
		"text":    reply.Text,
		"actions": reply.CallNames(),
	})

	return requests, nil
}

// executeActions runs the requested actions strictly in request order,
// appending one result per request as it is produced. An unknown action or
// an executor error is fatal; results appended before the failure stay in
// history.
func (s *Session) executeActions(ctx context.Context, requests []ActionRequest) error {
	for _, req := range requests {
		s.emitter.Emit(EventActionStart, map[string]interface{}{
			"action":  req.Name,
			"call_id": req.ID,
		})

		action := s.registry.Get(req.Name)
		if action == nil {
			return &UnknownActionError{Name: req.Name}
		}

		outcome, err := action.Execute(ctx, req.Args, s.document)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.history = append(s.history, NewActionResultMessage(req.ID, req.Name, outcome.Status, outcome.Text))
		s.mu.Unlock()

		s.emitter.Emit(EventActionEnd, map[string]interface{}{
			"action":  req.Name,
			"call_id": req.ID,
			"status":  string(outcome.Status),
			"output":  outcome.Text,
		})
		s.logger.Debug("action executed",
			"session_id", s.id,
			"action", req.Name,
			"status", string(outcome.Status))
	}
	return nil
}

// checkContextUsage emits a warning once the estimated conversation size
// passes 80% of the model's context window. The estimate is the usual
// four-characters-per-token heuristic over the history plus the document
// carried in every directive.
func (s *Session) checkContextUsage() {
	window := s.config.ContextWindow
	if window <= 0 {
		window = llmchat.ContextWindowFor(s.config.Model)
	}

	totalChars := s.document.Len()
	for _, msg := range s.History() {
		totalChars += len(msg.TextContent())
	}

	approxTokens := totalChars / 4
	threshold := int(float64(window) * 0.8)
	if approxTokens > threshold {
		pct := int(float64(approxTokens) / float64(window) * 100)
		msg := fmt.Sprintf("Conversation is at ~%d%% of the context window", pct)
		s.emitter.Emit(EventContextWarning, map[string]interface{}{
			"message": msg,
		})
		s.logger.Warn("context window filling up",
			"session_id", s.id,
			"approx_tokens", approxTokens,
			"context_window", window)
	}
}

// checkActionLoop warns when the recent action requests repeat a short
// pattern. Advisory only: nothing is injected into history.
func (s *Session) checkActionLoop() {
	if !s.config.EnableLoopCheck {
		return
	}
	window := s.config.LoopCheckWindow
	if window <= 0 {
		window = 6
	}
	if DetectActionLoop(s.History(), window) {
		msg := fmt.Sprintf("The last %d action calls repeat the same pattern.", window)
		s.emitter.Emit(EventActionLoopWarning, map[string]interface{}{
			"message": msg,
		})
		s.logger.Warn("repeating action pattern", "session_id", s.id, "window", window)
	}
}
