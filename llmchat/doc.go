// Package llmchat provides a provider-agnostic chat client that wraps the
// gollm library (github.com/teilomillet/gollm) to present one request/reply
// contract to the drafting loop: an ordered conversation plus a set of
// action definitions goes out, free text plus an ordered list of requested
// action calls comes back.
//
// # Architecture
//
// The package is organized around these concepts:
//
//   - Adapter: one provider connection. GollmAdapter wraps gollm.LLM and
//     handles prompt assembly, action-call parsing, and error translation.
//   - Client: provider routing, a default provider, and a middleware chain
//     for cross-cutting concerns such as request logging.
//   - RetryPolicy: optional exponential backoff, applied by wrapping an
//     adapter with WithRetries. Callers that must not retry simply use the
//     bare adapter.
//   - Catalog: known models with context windows, aliases, and per-provider
//     defaults, used for provider inference and context budgeting.
//
// # Quick Start
//
// Using environment-based configuration (GROQ_API_KEY, OPENAI_API_KEY, or
// ANTHROPIC_API_KEY):
//
//	client := llmchat.NewClientFromEnv()
//	if len(client.Providers()) == 0 {
//	    log.Fatal("no API key configured")
//	}
//	defer client.Close()
//
//	reply, err := client.Complete(ctx, llmchat.Request{
//	    Model: "llama-3.3-70b-versatile",
//	    Messages: []llmchat.ChatMessage{
//	        llmchat.SystemMessage("You are a drafting assistant."),
//	        llmchat.UserMessage("Write a haiku about the sea."),
//	    },
//	})
//	fmt.Println(reply.Text)
//
// # Action Calling
//
// A Request may carry ActionDefinitions describing what the model is allowed
// to request. The adapter parses action calls out of the reply and coerces
// every argument value to a string, so downstream code only ever sees
// name-to-string argument maps:
//
//	reply, _ := client.Complete(ctx, llmchat.Request{
//	    Messages: msgs,
//	    Actions: []llmchat.ActionDefinition{{
//	        Name:        "update",
//	        Description: "Replace the working draft.",
//	        Parameters: map[string]interface{}{
//	            "type": "object",
//	            "properties": map[string]interface{}{
//	                "content": map[string]interface{}{"type": "string"},
//	            },
//	        },
//	    }},
//	})
//	for _, call := range reply.Calls {
//	    fmt.Println(call.Name, call.Args)
//	}
package llmchat
