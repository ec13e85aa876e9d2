package draftloop

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// actionSignature computes a deterministic signature for an action request
// (name + hash of arguments). Map keys are sorted by the JSON encoder, so
// equal argument sets always hash the same.
func actionSignature(name string, args map[string]string) string {
	encoded, _ := json.Marshal(args)
	h := sha256.Sum256(encoded)
	return fmt.Sprintf("%s:%x", name, h[:8])
}

// extractActionSignatures extracts signatures from the most recent action
// requests in the history.
func extractActionSignatures(history []Message, count int) []string {
	var sigs []string
	for i := len(history) - 1; i >= 0 && len(sigs) < count; i-- {
		msg := history[i]
		if msg.Kind == MessageAssistant && msg.Assistant != nil {
			for j := len(msg.Assistant.Requests) - 1; j >= 0 && len(sigs) < count; j-- {
				req := msg.Assistant.Requests[j]
				sigs = append(sigs, actionSignature(req.Name, req.Args))
			}
		}
	}
	// Reverse to chronological order.
	for i, j := 0, len(sigs)-1; i < j; i, j = i+1, j-1 {
		sigs[i], sigs[j] = sigs[j], sigs[i]
	}
	return sigs
}

// DetectActionLoop checks if the last windowSize action requests follow a
// repeating pattern of length 1, 2, or 3. Identical repeated requests
// usually mean the model is thrashing instead of making progress.
func DetectActionLoop(history []Message, windowSize int) bool {
	sigs := extractActionSignatures(history, windowSize)
	if len(sigs) < windowSize {
		return false
	}

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if windowSize%patternLen != 0 {
			continue
		}
		// A pattern must occur at least twice inside the window.
		if patternLen*2 > windowSize {
			continue
		}
		pattern := sigs[:patternLen]
		allMatch := true
		for i := patternLen; i < windowSize; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if sigs[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
			if !allMatch {
				break
			}
		}
		if allMatch {
			return true
		}
	}

	return false
}
