package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/martinemde/drafter/draftloop"
)

// Transcript is the JSON document written by -transcript on exit. It captures
// the full session regardless of how the session ended.
type Transcript struct {
	SessionID  string              `json:"session_id"`
	State      string              `json:"state"`
	Rounds     int                 `json:"rounds"`
	Document   string              `json:"document"`
	WrittenAt  time.Time           `json:"written_at"`
	History    []draftloop.Message `json:"history"`
	FinalError string              `json:"final_error,omitempty"`
}

func writeTranscript(path string, session *draftloop.Session, runErr error) error {
	t := Transcript{
		SessionID: session.ID(),
		State:     string(session.State()),
		Rounds:    session.Round(),
		Document:  session.Document().Snapshot(),
		WrittenAt: time.Now().UTC(),
		History:   session.History(),
	}
	if runErr != nil {
		t.FinalError = runErr.Error()
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing transcript %s: %w", path, err)
	}
	return nil
}
