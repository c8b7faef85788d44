package conversation

import "strings"

// Phase is the agent's conversational phase while gathering a component's
// output from the user.
type Phase string

const (
	PhaseIntro   Phase = "intro"
	PhaseGather  Phase = "gather"
	PhaseClarify Phase = "clarify"
	PhaseExtract Phase = "extract"
	PhaseConfirm Phase = "confirm"
)

// changeRequestLexicon is the fixed substring lexicon spec.md §4.6 names for
// recognizing a user asking to revise a confirmed extraction.
var changeRequestLexicon = []string{
	"change", "modify", "update", "wrong", "incorrect", "fix", "revise",
	"edit", "no, ", "not quite", "that's not",
}

// Snapshot is the minimal conversation state the phase engine reasons over.
type Snapshot struct {
	UserMessageCount  int
	LatestUserMessage string
	ComponentType     string
}

// TransitionConfig parameterizes the per-component phase thresholds and
// lexicons.
type TransitionConfig struct {
	MinMessagesForExtraction int
	CompletionSignals        []string
	ClarifyTriggers          []string
}

func containsAnyFold(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, needle := range needles {
		if strings.Contains(lower, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// readyForExtract reports whether snap/config together satisfy the
// Gather -> Extract condition.
func readyForExtract(snap Snapshot, cfg TransitionConfig) bool {
	if snap.UserMessageCount >= cfg.MinMessagesForExtraction {
		return true
	}
	return containsAnyFold(snap.LatestUserMessage, cfg.CompletionSignals)
}

// NextPhase computes the phase that follows current given snap and cfg, per
// spec.md §4.6. Empty/whitespace-only latest messages leave the phase
// unchanged, except for the Intro -> Gather edge, which depends only on
// message count, and the Extract -> Confirm edge, which is unconditional.
func NextPhase(current Phase, snap Snapshot, cfg TransitionConfig) Phase {
	if current == PhaseIntro {
		if snap.UserMessageCount >= 1 {
			return PhaseGather
		}
		return PhaseIntro
	}

	if current == PhaseExtract {
		return PhaseConfirm
	}

	if isBlank(snap.LatestUserMessage) {
		return current
	}

	switch current {
	case PhaseGather:
		// readyForExtract takes priority over a clarify trigger when both match.
		if readyForExtract(snap, cfg) {
			return PhaseExtract
		}
		if containsAnyFold(snap.LatestUserMessage, cfg.ClarifyTriggers) {
			return PhaseClarify
		}
		return PhaseGather

	case PhaseClarify:
		if readyForExtract(snap, cfg) {
			return PhaseExtract
		}
		return PhaseGather

	case PhaseConfirm:
		if containsAnyFold(snap.LatestUserMessage, changeRequestLexicon) {
			return PhaseGather
		}
		return PhaseConfirm

	default:
		return current
	}
}
