package llmchat

import "context"

// Adapter is the interface every reasoning-service backend implements.
// Complete is strictly blocking; the drafting loop never has more than one
// request in flight and nothing consumes partial output.
type Adapter interface {
	// Name returns the provider identifier (e.g. "groq", "openai", "anthropic").
	Name() string

	// Complete sends the conversation and returns the full reply.
	Complete(ctx context.Context, req Request) (*Reply, error)
}

// Closer is implemented by adapters that hold resources.
type Closer interface {
	Close() error
}
