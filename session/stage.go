package session

// Stage is a position in the conversation state machine. Exactly one stage is
// active per call at any time; the stage selects which handler consumes the
// next utterance.
type Stage uint8

const (
	// StageAskedBefore asks whether the caller already contacted support
	// about this issue. Initial stage for every call.
	StageAskedBefore Stage = iota
	// StageConfirmTicket walks the caller through their candidate tickets,
	// one at a time, asking whether each is the issue at hand.
	StageConfirmTicket
	// StageNewIssue collects a fresh issue description.
	StageNewIssue
	// StageAfterSteps follows a delivered solution: resolved, repeat,
	// escalate, or a follow-up question.
	StageAfterSteps
	// StageAnythingElse asks whether anything else is needed before closing.
	StageAnythingElse
	// StageDone is terminal; the call is over from the agent's side.
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageAskedBefore:
		return "asked_before"
	case StageConfirmTicket:
		return "confirm_ticket"
	case StageNewIssue:
		return "new_issue"
	case StageAfterSteps:
		return "after_steps"
	case StageAnythingElse:
		return "anything_else"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Terminal reports whether the conversation has ended for this stage.
func (s Stage) Terminal() bool { return s == StageDone }
