package llmchat

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Middleware wraps an adapter call. It receives the request and a next
// function that invokes the downstream handler, and returns the reply.
type Middleware func(ctx context.Context, req Request, next func(context.Context, Request) (*Reply, error)) (*Reply, error)

// Client routes requests to registered adapters by provider name and applies
// middleware around each call. It holds no global state; the host constructs
// one and hands it to the session.
type Client struct {
	adapters        map[string]Adapter
	defaultProvider string
	middleware      []Middleware
	mu              sync.RWMutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAdapter registers an adapter under a provider name.
func WithAdapter(name string, adapter Adapter) ClientOption {
	return func(c *Client) {
		c.adapters[name] = adapter
	}
}

// WithDefaultProvider sets the provider used when a request names none.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) {
		c.defaultProvider = name
	}
}

// WithMiddleware appends middleware; the first registered runs outermost.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) {
		c.middleware = append(c.middleware, mw...)
	}
}

// NewClient creates a Client with the given options. With exactly one
// adapter registered and no explicit default, that adapter becomes the default.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		adapters: make(map[string]Adapter),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.defaultProvider == "" && len(c.adapters) == 1 {
		for name := range c.adapters {
			c.defaultProvider = name
		}
	}
	return c
}

// RegisterAdapter adds an adapter after construction. The first adapter
// registered becomes the default when none is set.
func (c *Client) RegisterAdapter(name string, adapter Adapter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adapters[name] = adapter
	if c.defaultProvider == "" {
		c.defaultProvider = name
	}
}

// Providers returns the registered provider names.
func (c *Client) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.adapters))
	for name := range c.adapters {
		names = append(names, name)
	}
	return names
}

// resolveAdapter picks the adapter for a request: explicit provider, then the
// default, then a catalog lookup by model name.
func (c *Client) resolveAdapter(req Request) (Adapter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		if info := GetModelInfo(req.Model); info != nil {
			name = info.Provider
		}
	}
	if name == "" {
		return nil, &ConfigError{ServiceError: ServiceError{
			Message: "no provider specified and no default provider configured",
		}}
	}

	adapter, ok := c.adapters[name]
	if !ok {
		return nil, &ConfigError{ServiceError: ServiceError{
			Message: fmt.Sprintf("provider %q is not registered", name),
		}}
	}
	return adapter, nil
}

// Complete sends a blocking request through the middleware chain to the
// resolved adapter.
func (c *Client) Complete(ctx context.Context, req Request) (*Reply, error) {
	adapter, err := c.resolveAdapter(req)
	if err != nil {
		return nil, err
	}

	if req.Provider == "" {
		req.Provider = adapter.Name()
	}

	handler := func(ctx context.Context, r Request) (*Reply, error) {
		return adapter.Complete(ctx, r)
	}

	// Apply middleware in reverse so the first registered runs first.
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw := c.middleware[i]
		next := handler
		handler = func(ctx context.Context, r Request) (*Reply, error) {
			return mw(ctx, r, next)
		}
	}

	return handler(ctx, req)
}

// Close releases resources held by registered adapters.
func (c *Client) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var firstErr error
	for _, adapter := range c.adapters {
		if closer, ok := adapter.(Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// EnvKeyVar maps provider names to the environment variable holding the
// API key for that provider.
var EnvKeyVar = map[string]string{
	"groq":      "GROQ_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// envProbeOrder lists providers in the order NewClientFromEnv tries them, so
// the default provider is deterministic when several keys are present.
var envProbeOrder = []string{"groq", "openai", "anthropic"}

// NewClientFromEnv creates a Client with a gollm adapter for every provider
// whose API key environment variable is set, each wrapped with the default
// retry policy. The first provider found becomes the default.
func NewClientFromEnv(opts ...ClientOption) *Client {
	c := NewClient(opts...)
	for _, provider := range envProbeOrder {
		key := os.Getenv(EnvKeyVar[provider])
		if key == "" {
			continue
		}
		adapter, err := NewGollmAdapter(provider, key)
		if err != nil {
			continue
		}
		c.RegisterAdapter(provider, WithRetries(adapter, DefaultRetryPolicy()))
	}
	return c
}
