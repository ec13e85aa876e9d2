package draftloop

import (
	"fmt"
	"testing"

	"github.com/martinemde/drafter/llmchat"
)

func historyWithRequests(requests ...ActionRequest) []Message {
	var history []Message
	for i, req := range requests {
		history = append(history,
			NewUserMessage(fmt.Sprintf("input %d", i)),
			NewAssistantMessage("ok", []ActionRequest{req}, llmchat.Usage{}, ""),
			NewActionResultMessage(req.ID, req.Name, StatusSuccess, "done"),
		)
	}
	return history
}

func TestDetectActionLoopIdenticalCalls(t *testing.T) {
	var requests []ActionRequest
	for i := 0; i < 6; i++ {
		requests = append(requests, ActionRequest{
			ID:   fmt.Sprintf("c%d", i),
			Name: ActionUpdate,
			Args: map[string]string{"content": "the same text"},
		})
	}
	if !DetectActionLoop(historyWithRequests(requests...), 6) {
		t.Error("six identical requests should register as a loop")
	}
}

func TestDetectActionLoopVariedArgs(t *testing.T) {
	var requests []ActionRequest
	for i := 0; i < 6; i++ {
		requests = append(requests, ActionRequest{
			ID:   fmt.Sprintf("c%d", i),
			Name: ActionUpdate,
			Args: map[string]string{"content": fmt.Sprintf("revision %d", i)},
		})
	}
	if DetectActionLoop(historyWithRequests(requests...), 6) {
		t.Error("distinct arguments are normal iteration, not a loop")
	}
}

func TestDetectActionLoopAlternatingPair(t *testing.T) {
	var requests []ActionRequest
	for i := 0; i < 6; i++ {
		content := "version a"
		if i%2 == 1 {
			content = "version b"
		}
		requests = append(requests, ActionRequest{
			ID:   fmt.Sprintf("c%d", i),
			Name: ActionUpdate,
			Args: map[string]string{"content": content},
		})
	}
	if !DetectActionLoop(historyWithRequests(requests...), 6) {
		t.Error("an alternating pair should register as a loop")
	}
}

func TestDetectActionLoopShortHistory(t *testing.T) {
	requests := []ActionRequest{
		{ID: "c0", Name: ActionUpdate, Args: map[string]string{"content": "x"}},
		{ID: "c1", Name: ActionUpdate, Args: map[string]string{"content": "x"}},
	}
	if DetectActionLoop(historyWithRequests(requests...), 6) {
		t.Error("too little history to call a loop")
	}
}

func TestDetectActionLoopTinyWindowDistinctCalls(t *testing.T) {
	for _, window := range []int{2, 3} {
		var requests []ActionRequest
		for i := 0; i < window; i++ {
			requests = append(requests, ActionRequest{
				ID:   fmt.Sprintf("c%d", i),
				Name: ActionUpdate,
				Args: map[string]string{"content": fmt.Sprintf("revision %d", i)},
			})
		}
		if DetectActionLoop(historyWithRequests(requests...), window) {
			t.Errorf("window %d: distinct calls are not a loop", window)
		}
	}
}

func TestDetectActionLoopTinyWindowIdenticalCalls(t *testing.T) {
	requests := []ActionRequest{
		{ID: "c0", Name: ActionUpdate, Args: map[string]string{"content": "the same text"}},
		{ID: "c1", Name: ActionUpdate, Args: map[string]string{"content": "the same text"}},
	}
	if !DetectActionLoop(historyWithRequests(requests...), 2) {
		t.Error("two identical calls fill a window of two")
	}
}

func TestActionSignatureStable(t *testing.T) {
	a := actionSignature(ActionUpdate, map[string]string{"content": "x", "extra": "y"})
	b := actionSignature(ActionUpdate, map[string]string{"extra": "y", "content": "x"})
	if a != b {
		t.Errorf("signature must not depend on map ordering: %q vs %q", a, b)
	}
	c := actionSignature(ActionUpdate, map[string]string{"content": "z"})
	if a == c {
		t.Error("different arguments must produce different signatures")
	}
	d := actionSignature(ActionSave, map[string]string{"content": "x", "extra": "y"})
	if a == d {
		t.Error("different action names must produce different signatures")
	}
}
