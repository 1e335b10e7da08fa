package dialog

import (
	"fmt"

	"github.com/casualjim/strix/api"
	"github.com/casualjim/strix/session"
)

// Canned prompts. These are spoken verbatim; keep them short enough that a
// caller can interrupt without losing the thread.
const (
	promptAskedBefore  = "Have you already contacted support about this issue?"
	promptNewIssue     = "Could you describe the issue you're running into?"
	promptNewIssueMore = "I didn't catch a description. Could you tell me what's going wrong?"
	promptAnythingElse = "Is there anything else I can help you with today?"
	promptRestart      = "Let's pick up where we left off. How can I help?"

	pauseAck = "Of course, take your time."

	transferOffer = "I'm having trouble finding an answer for you. Let me connect you with a live agent who can help."
	escalateAck   = "Sure, let me connect you with a live agent now."

	closingRemark = "Thanks for calling. Have a wonderful day!"

	resolvedAck = "Great, I'm glad that helped."
)

// offerTicket phrases a candidate ticket for confirmation without exposing
// ticket ids or CRM jargon.
func offerTicket(t api.Ticket) string {
	return fmt.Sprintf("Let me check your recent requests... I see you previously reported %q. Is that what you're calling about today?", t.Subject)
}

// stagePrompt returns the canned re-prompt for a stage, falling back to a
// generic restart line for stages without one.
func stagePrompt(stage session.Stage) string {
	switch stage {
	case session.StageAskedBefore:
		return promptAskedBefore
	case session.StageNewIssue:
		return promptNewIssue
	case session.StageAnythingElse:
		return promptAnythingElse
	default:
		return promptRestart
	}
}

// Opening is the question the greeting ends on; it matches the initial
// stage, which expects a yes/no answer.
func Opening() string { return promptAskedBefore }

// Hints returns recognition hints for the transport's listener at a stage.
func Hints(stage session.Stage) []string {
	switch stage {
	case session.StageAskedBefore, session.StageConfirmTicket, session.StageAnythingElse:
		return []string{"yes", "no"}
	case session.StageAfterSteps:
		return []string{"yes", "no", "repeat", "that worked"}
	default:
		return nil
	}
}
