package strix

import (
	"strings"

	"github.com/casualjim/strix/directive"
	"github.com/casualjim/strix/session"
)

// Transcript renders a call history as an HTML note suitable for attaching
// to a ticket. Directive tags are stripped so backend commands never leak
// into the ticket trail.
func Transcript(history []session.Turn) string {
	if len(history) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("<b>Call transcript</b><br>")
	for _, turn := range history {
		speaker := "Caller"
		if turn.Role == "assistant" {
			speaker = "Agent"
		}
		clean, _ := directive.Parse(turn.Content)
		b.WriteString("<br><b>")
		b.WriteString(speaker)
		b.WriteString(":</b> ")
		b.WriteString(clean)
	}
	return b.String()
}
