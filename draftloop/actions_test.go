package draftloop

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRegistryActionSet(t *testing.T) {
	reg := NewRegistry(t.TempDir())
	if reg.Count() != 2 {
		t.Fatalf("expected 2 registered actions, got %d", reg.Count())
	}
	if reg.Get(ActionUpdate) == nil {
		t.Error("update action not registered")
	}
	if reg.Get(ActionSave) == nil {
		t.Error("save action not registered")
	}
	if reg.Get("delete") != nil {
		t.Error("unexpected action registered under delete")
	}

	names := reg.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %v", names)
	}
	defs := reg.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	for _, def := range defs {
		if def.Description == "" {
			t.Errorf("definition %q has no description", def.Name)
		}
		if def.Parameters == nil {
			t.Errorf("definition %q has no parameter schema", def.Name)
		}
	}
}

func TestUpdateExecute(t *testing.T) {
	doc := NewDocument()
	action := &UpdateAction{}

	outcome, err := action.Execute(context.Background(), map[string]string{"content": "Waves crash on silver shore"}, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusSuccess {
		t.Errorf("expected success, got %q", outcome.Status)
	}
	if got := doc.Snapshot(); got != "Waves crash on silver shore" {
		t.Errorf("document not replaced, got %q", got)
	}

	want := "Document has been updated successfully! The current draft is: \nWaves crash on silver shore"
	if outcome.Text != want {
		t.Errorf("result text mismatch:\nwant %q\ngot  %q", want, outcome.Text)
	}
}

func TestUpdateExecuteOverwrites(t *testing.T) {
	doc := NewDocument()
	action := &UpdateAction{}

	for _, content := range []string{"first draft", "second draft"} {
		if _, err := action.Execute(context.Background(), map[string]string{"content": content}, doc); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := doc.Snapshot(); got != "second draft" {
		t.Errorf("expected second draft to win, got %q", got)
	}
}

func TestUpdateExecuteEmptyContent(t *testing.T) {
	doc := NewDocument()
	doc.Set("old")
	action := &UpdateAction{}

	outcome, err := action.Execute(context.Background(), map[string]string{"content": ""}, doc)
	if err != nil {
		t.Fatalf("empty content is a valid replacement: %v", err)
	}
	if outcome.Status != StatusSuccess {
		t.Errorf("expected success, got %q", outcome.Status)
	}
	if got := doc.Snapshot(); got != "" {
		t.Errorf("expected cleared document, got %q", got)
	}
}

func TestUpdateMissingContent(t *testing.T) {
	doc := NewDocument()
	action := &UpdateAction{}

	_, err := action.Execute(context.Background(), map[string]string{}, doc)
	if err == nil {
		t.Fatal("expected error for missing content argument")
	}
	var missing *MissingArgumentError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingArgumentError, got %T", err)
	}
	if missing.Action != ActionUpdate || missing.Argument != "content" {
		t.Errorf("unexpected error fields: %+v", missing)
	}
}

func TestSaveExecute(t *testing.T) {
	dir := t.TempDir()
	doc := NewDocument()
	doc.Set("Hello world")
	action := &SaveAction{Dir: dir}

	outcome, err := action.Execute(context.Background(), map[string]string{"filename": "notes"}, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusSuccess {
		t.Errorf("expected success, got %q", outcome.Status)
	}
	if want := "File 'notes.txt' saved successfully."; outcome.Text != want {
		t.Errorf("result text mismatch:\nwant %q\ngot  %q", want, outcome.Text)
	}

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	if err != nil {
		t.Fatalf("saved file not readable: %v", err)
	}
	if string(data) != "Hello world" {
		t.Errorf("file content mismatch, got %q", string(data))
	}
}

func TestSaveEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	action := &SaveAction{Dir: dir}

	outcome, err := action.Execute(context.Background(), map[string]string{"filename": "blank"}, NewDocument())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusSuccess {
		t.Errorf("expected success, got %q", outcome.Status)
	}
	data, err := os.ReadFile(filepath.Join(dir, "blank.txt"))
	if err != nil {
		t.Fatalf("saved file not readable: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty file, got %d bytes", len(data))
	}
}

func TestSaveMissingFilename(t *testing.T) {
	action := &SaveAction{Dir: t.TempDir()}

	_, err := action.Execute(context.Background(), nil, NewDocument())
	if err == nil {
		t.Fatal("expected error for missing filename argument")
	}
	var missing *MissingArgumentError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingArgumentError, got %T", err)
	}
	if missing.Action != ActionSave || missing.Argument != "filename" {
		t.Errorf("unexpected error fields: %+v", missing)
	}
}

func TestSaveWriteFailureIsRecoverable(t *testing.T) {
	dir := t.TempDir()
	doc := NewDocument()
	doc.Set("draft")
	action := &SaveAction{Dir: dir}

	// The subdirectory does not exist, so the create fails.
	outcome, err := action.Execute(context.Background(), map[string]string{"filename": "missing/notes"}, doc)
	if err != nil {
		t.Fatalf("write failures must not be fatal: %v", err)
	}
	if outcome.Status != StatusFailure {
		t.Errorf("expected failure status, got %q", outcome.Status)
	}
	if !strings.HasPrefix(outcome.Text, "Error saving file 'missing/notes.txt': ") {
		t.Errorf("unexpected failure text: %q", outcome.Text)
	}
	if strings.Contains(strings.ToLower(outcome.Text), "saved successfully") {
		t.Errorf("failure text must not carry the success marker: %q", outcome.Text)
	}
}

func TestSaveAbsolutePathIgnoresDir(t *testing.T) {
	base := t.TempDir()
	other := t.TempDir()
	doc := NewDocument()
	doc.Set("absolute")
	action := &SaveAction{Dir: base}

	target := filepath.Join(other, "elsewhere")
	outcome, err := action.Execute(context.Background(), map[string]string{"filename": target}, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusSuccess {
		t.Fatalf("expected success, got %q: %s", outcome.Status, outcome.Text)
	}
	if _, err := os.Stat(target + SaveExtension); err != nil {
		t.Errorf("expected file at the absolute path: %v", err)
	}
}

func TestNormalizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare name", "draft", "draft.txt"},
		{"already normalized", "draft.txt", "draft.txt"},
		{"other extension kept", "draft.md", "draft.md.txt"},
		{"nested path", "out/draft", "out/draft.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeFilename(tt.in)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if again := NormalizeFilename(got); again != got {
				t.Errorf("normalization is not idempotent: %q -> %q", got, again)
			}
		})
	}
}
