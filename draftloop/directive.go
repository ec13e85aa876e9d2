package draftloop

import (
	"fmt"
	"sort"
	"strings"

	"github.com/martinemde/drafter/llmchat"
)

const drafterDirective = `You are a helpful document drafting assistant. Your job is to update, edit, and improve a working draft based on the user's instructions.

# Rules

- Never output tool-call syntax, JSON, or function call text in your reply.
- When the user wants the document changed, always call the update action with the complete new text as the content argument, never a fragment or a diff.
- Never print the document content in your chat reply.
- When the user wants to finish, call the save action with a filename and nothing else.
- After requesting an action, keep your natural language reply short and conversational, for example "I've updated the draft." or "Saving the file now."`

// BuildDirective assembles the directive for one decision round: the fixed
// rules, the available actions, and the current document snapshot. It is
// rebuilt from the live document every round and never stored in history.
func BuildDirective(snapshot string, defs []llmchat.ActionDefinition) string {
	var sb strings.Builder
	sb.WriteString(drafterDirective)
	sb.WriteString("\n\n")

	if len(defs) > 0 {
		sorted := make([]llmchat.ActionDefinition, len(defs))
		copy(sorted, defs)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
		sb.WriteString("# Available Actions\n\n")
		for _, def := range sorted {
			fmt.Fprintf(&sb, "## %s\n%s\n\n", def.Name, def.Description)
		}
	}

	sb.WriteString("The current document is: ")
	sb.WriteString(snapshot)
	return sb.String()
}
