package draftloop

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/martinemde/drafter/llmchat"
)

// SaveExtension is appended to save filenames that do not already carry it.
const SaveExtension = ".txt"

// Registered action names.
const (
	ActionUpdate = "update"
	ActionSave   = "save"
)

// Action is one member of the closed action set offered to the model.
// A returned error is fatal for the session. Recoverable problems are
// reported through an Outcome with StatusFailure so the loop can continue.
type Action interface {
	Name() string
	Definition() llmchat.ActionDefinition
	Execute(ctx context.Context, args map[string]string, doc *Document) (Outcome, error)
}

// Outcome is the result of executing one action.
type Outcome struct {
	Status ResultStatus
	Text   string
}

// Registry manages action registration and lookup.
type Registry struct {
	actions map[string]Action
	mu      sync.RWMutex
}

// NewRegistry creates a Registry holding the drafting action set: update and
// save. Relative save filenames resolve against saveDir; an empty saveDir
// means the process working directory.
func NewRegistry(saveDir string) *Registry {
	r := &Registry{actions: make(map[string]Action)}
	r.Register(&UpdateAction{})
	r.Register(&SaveAction{Dir: saveDir})
	return r
}

// Register adds or replaces an action.
func (r *Registry) Register(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[a.Name()] = a
}

// Get returns a registered action by name, or nil if not found.
func (r *Registry) Get(name string) Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actions[name]
}

// Definitions returns all action definitions (for sending to the model).
func (r *Registry) Definitions() []llmchat.ActionDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llmchat.ActionDefinition, 0, len(r.actions))
	for _, a := range r.actions {
		defs = append(defs, a.Definition())
	}
	return defs
}

// Names returns the names of all registered actions.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered actions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}

// UpdateAction replaces the document content with the text the model
// supplies. It never fails once its argument is present.
type UpdateAction struct{}

func (a *UpdateAction) Name() string { return ActionUpdate }

func (a *UpdateAction) Definition() llmchat.ActionDefinition {
	return llmchat.ActionDefinition{
		Name:        ActionUpdate,
		Description: "Replace the working draft with new content. Always pass the complete document text, never a fragment or a diff.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "The complete new document text.",
				},
			},
			"required": []string{"content"},
		},
	}
}

func (a *UpdateAction) Execute(ctx context.Context, args map[string]string, doc *Document) (Outcome, error) {
	content, ok := args["content"]
	if !ok {
		return Outcome{}, &MissingArgumentError{Action: a.Name(), Argument: "content"}
	}
	doc.Set(content)
	return Outcome{
		Status: StatusSuccess,
		Text:   "Document has been updated successfully! The current draft is: \n" + content,
	}, nil
}

// SaveAction writes the document to a file. A successful save is the
// session's terminal condition. Write failures are recoverable: they are
// encoded in the outcome so the user can retry with another filename.
type SaveAction struct {
	// Dir is the directory relative filenames resolve against. Empty means
	// the process working directory.
	Dir string
}

func (a *SaveAction) Name() string { return ActionSave }

func (a *SaveAction) Definition() llmchat.ActionDefinition {
	return llmchat.ActionDefinition{
		Name:        ActionSave,
		Description: "Save the current draft to a text file. The session ends after a successful save, so call this only when the user asks to finish.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"filename": map[string]interface{}{
					"type":        "string",
					"description": "Name of the file to write. A .txt extension is added when absent.",
				},
			},
			"required": []string{"filename"},
		},
	}
}

func (a *SaveAction) Execute(ctx context.Context, args map[string]string, doc *Document) (Outcome, error) {
	filename, ok := args["filename"]
	if !ok {
		return Outcome{}, &MissingArgumentError{Action: a.Name(), Argument: "filename"}
	}
	filename = NormalizeFilename(filename)
	path := filename
	if a.Dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(a.Dir, path)
	}
	if err := writeDocument(path, doc.Snapshot()); err != nil {
		return Outcome{
			Status: StatusFailure,
			Text:   fmt.Sprintf("Error saving file '%s': %v", filename, err),
		}, nil
	}
	return Outcome{
		Status: StatusSuccess,
		Text:   fmt.Sprintf("File '%s' saved successfully.", filename),
	}, nil
}

// NormalizeFilename appends the save extension when absent. Normalizing an
// already normalized name changes nothing.
func NormalizeFilename(name string) string {
	if strings.HasSuffix(name, SaveExtension) {
		return name
	}
	return name + SaveExtension
}

// writeDocument writes content to path through a file handle scoped to this
// call. The handle is closed on every exit path; a close error counts as a
// write failure.
func writeDocument(path, content string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	_, werr := io.WriteString(f, content)
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}
