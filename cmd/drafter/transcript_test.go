package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/martinemde/drafter/draftloop"
)

func TestWriteTranscript(t *testing.T) {
	session := draftloop.NewSession(nil, draftloop.NewRegistry(t.TempDir()), nil)
	defer session.Close()

	path := filepath.Join(t.TempDir(), "transcript.json")
	if err := writeTranscript(path, session, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading transcript: %v", err)
	}
	var tr Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		t.Fatalf("transcript is not valid JSON: %v", err)
	}
	if tr.SessionID != session.ID() {
		t.Errorf("expected session id %q, got %q", session.ID(), tr.SessionID)
	}
	if tr.State != string(draftloop.StateDeciding) {
		t.Errorf("expected state %q, got %q", draftloop.StateDeciding, tr.State)
	}
	if tr.Rounds != 0 || len(tr.History) != 0 {
		t.Errorf("fresh session should have no rounds or history, got %d/%d", tr.Rounds, len(tr.History))
	}
	if tr.FinalError != "" {
		t.Errorf("expected no final error, got %q", tr.FinalError)
	}
}

func TestWriteTranscriptCarriesError(t *testing.T) {
	session := draftloop.NewSession(nil, draftloop.NewRegistry(t.TempDir()), nil)
	defer session.Close()

	path := filepath.Join(t.TempDir(), "transcript.json")
	if err := writeTranscript(path, session, errors.New("round limit reached")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading transcript: %v", err)
	}
	var tr Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		t.Fatalf("transcript is not valid JSON: %v", err)
	}
	if tr.FinalError != "round limit reached" {
		t.Errorf("expected the run error in the transcript, got %q", tr.FinalError)
	}
}

func TestWriteTranscriptBadPath(t *testing.T) {
	session := draftloop.NewSession(nil, draftloop.NewRegistry(t.TempDir()), nil)
	defer session.Close()

	path := filepath.Join(t.TempDir(), "missing", "transcript.json")
	if err := writeTranscript(path, session, nil); err == nil {
		t.Error("expected an error for an unwritable path")
	}
}
