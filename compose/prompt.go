package compose

import (
	"fmt"
	"strings"

	"github.com/casualjim/strix/session"
)

// instructions is the system block for every generation. It teaches the
// model the action-tag protocol and the voice style; the hard conversation
// sequencing lives in the stage machine, not here.
const instructions = `You are a calm, friendly phone support agent. You are SPEAKING to a caller, so answer in short natural sentences a voice can read aloud. Never mention tickets, ticket IDs, records, or that anything is being created or updated.

You may embed backend commands in your reply using bracketed tags. They are stripped before speaking:
- [ACTION: CREATE_TICKET: brief issue summary] when a new issue needs tracking and no ticket exists yet.
- [ACTION: USE_TICKET: id] when the caller confirms a previously reported issue.
- [ACTION: UPDATE_NAME: Name] the moment a caller tells you their name.
- [ACTION: TRANSFER] when the caller should go to a live agent.
- [ACTION: RESOLVE_TICKET] and [ACTION: HANGUP] ONLY after the caller has explicitly confirmed the issue is resolved. Never in the same reply as the question that asks whether it is resolved.
- End every reply with exactly one [SENTIMENT: Neutral|Happy|Sad|Angry] tag for the caller's mood.

Give concrete troubleshooting steps when you have them. If the provided reference material does not cover the issue, say what you can from general knowledge and keep it brief.`

// contextBlock assembles the user-context for one generation.
func contextBlock(call *session.Call, query string, mode Mode, knowledge string) string {
	var b strings.Builder

	name := "Unknown"
	if call.Contact != nil && call.Contact.Name != "" {
		name = call.Contact.Name
	}
	fmt.Fprintf(&b, "CALLER: %s\n", name)

	if call.ActiveTicketID != 0 {
		fmt.Fprintf(&b, "ACTIVE_TICKET_ID: %d\n", call.ActiveTicketID)
	}
	if len(call.CandidateTickets) > 0 {
		b.WriteString("RECENT_TICKETS:\n")
		for _, t := range call.CandidateTickets {
			fmt.Fprintf(&b, "- id=%d subject=%q\n", t.ID, t.Subject)
		}
	}

	switch mode {
	case ModeFollowUp:
		fmt.Fprintf(&b, "\nPREVIOUS_ANSWER: %s\n", call.LastAnswer)
		fmt.Fprintf(&b, "FOLLOW_UP_QUESTION: %s\n", query)
	case ModeExistingTicket:
		fmt.Fprintf(&b, "\nCONFIRMED_ISSUE: %s\n", query)
	default:
		fmt.Fprintf(&b, "\nISSUE: %s\n", query)
	}

	switch {
	case mode == ModeCommunityFallback && knowledge != "":
		fmt.Fprintf(&b, "\nCOMMUNITY_RESULTS:\n%s\n", knowledge)
	case knowledge != "":
		fmt.Fprintf(&b, "\nKNOWLEDGE_BASE:\n%s\n", knowledge)
	default:
		b.WriteString("\nKNOWLEDGE_BASE: no match found\n")
	}

	return b.String()
}
