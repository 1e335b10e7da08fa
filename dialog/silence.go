package dialog

import "github.com/casualjim/strix/session"

// Silence escalation: one gentle nudge, one attention check, then a fixed
// disconnect. The count lives on the session and resets to zero the moment
// any recognized speech arrives.
const (
	silenceGentle     = "Sorry, I didn't catch that. "
	silenceStillThere = "Are you still there? "
	silenceGoodbye    = "It seems we got disconnected. Please call back anytime. Goodbye!"

	// MaxSilences is the timeout budget; at this count the call ends.
	MaxSilences = 3
)

// SilencePrompt selects the reprompt for the nth consecutive timeout. The
// boolean reports that the budget is exhausted and the call must end with the
// returned text; no further reprompt ever follows for this call.
func SilencePrompt(count int, stage session.Stage) (string, bool) {
	switch {
	case count >= MaxSilences:
		return silenceGoodbye, true
	case count == 2:
		return silenceStillThere + stagePrompt(stage), false
	default:
		return silenceGentle + stagePrompt(stage), false
	}
}
