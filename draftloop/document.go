package draftloop

import "sync"

// Document holds the working draft for one session. The update action
// replaces the content wholesale; there is no partial-edit path and no undo
// history. The zero value is an empty document ready for use.
type Document struct {
	mu      sync.RWMutex
	content string
}

// NewDocument creates an empty Document.
func NewDocument() *Document {
	return &Document{}
}

// Set replaces the document content.
func (d *Document) Set(content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = content
}

// Snapshot returns the current content.
func (d *Document) Snapshot() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.content
}

// Len returns the length of the current content in bytes.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.content)
}
