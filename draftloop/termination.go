package draftloop

// LatestActionResult returns the most recent action result in history, or
// nil when no action has run yet. The backward scan stops at the first
// result found; older results never influence the outcome.
func LatestActionResult(history []Message) *ActionResultMessage {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Kind == MessageActionResult && history[i].ActionResult != nil {
			return history[i].ActionResult
		}
	}
	return nil
}

// ShouldContinue reports whether the loop has another round to run. The
// session is finished exactly when the most recent action result is a
// successful save. Any other state continues, including a history with no
// results at all.
func ShouldContinue(history []Message) bool {
	latest := LatestActionResult(history)
	if latest == nil {
		return true
	}
	return latest.Status != StatusSuccess || latest.Name != ActionSave
}
