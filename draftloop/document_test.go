package draftloop

import "testing"

func TestDocumentStartsEmpty(t *testing.T) {
	doc := NewDocument()
	if got := doc.Snapshot(); got != "" {
		t.Errorf("expected empty snapshot, got %q", got)
	}
	if doc.Len() != 0 {
		t.Errorf("expected zero length, got %d", doc.Len())
	}
}

func TestDocumentSetAndSnapshot(t *testing.T) {
	doc := NewDocument()
	doc.Set("Hello world")
	if got := doc.Snapshot(); got != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", got)
	}
	if doc.Len() != len("Hello world") {
		t.Errorf("expected length %d, got %d", len("Hello world"), doc.Len())
	}
}

func TestDocumentOverwrite(t *testing.T) {
	doc := NewDocument()
	doc.Set("first version of the draft")
	doc.Set("second")
	if got := doc.Snapshot(); got != "second" {
		t.Errorf("overwrite must replace the content exactly, got %q", got)
	}
}

func TestDocumentSetEmptyClears(t *testing.T) {
	doc := NewDocument()
	doc.Set("something")
	doc.Set("")
	if got := doc.Snapshot(); got != "" {
		t.Errorf("expected cleared document, got %q", got)
	}
}
