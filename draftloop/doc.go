// Package draftloop implements an interactive document drafting loop.
//
// It pairs a human and a language model around a single working draft. Each
// round the loop collects one line of user input, asks the model what to do,
// executes the actions the model requested (replace the draft, or save it to
// a file), and records the results. The session ends exactly when the most
// recent action result is a successful save.
//
// # Architecture
//
// The package is organized around these core concepts:
//
//   - Session: The loop driver holding the conversation history, the
//     document, and the lifecycle state machine (deciding, acting, halted).
//   - Document: The working draft. Updates replace the content wholesale.
//   - Registry: The closed action set offered to the model: update and save.
//   - InputSource: Where user input comes from. The binary provides console
//     and scripted sources; tests use in-memory ones.
//   - EventEmitter: Typed event stream for host application integration.
//
// # Quick Start
//
//	client := llmchat.NewClientFromEnv()
//	registry := draftloop.NewRegistry(".")
//	session := draftloop.NewSession(client, registry, nil)
//	defer session.Close()
//
//	go func() {
//	    for event := range session.Events() {
//	        fmt.Printf("[%s] %v\n", event.Kind, event.Data)
//	    }
//	}()
//
//	if err := session.Run(ctx, source); err != nil {
//	    log.Fatal(err)
//	}
package draftloop
