// Package directive implements the action-tag protocol embedded in generated
// replies. A reply may carry zero or more bracketed commands, for example
//
//	I'm glad I could help! [ACTION: RESOLVE_TICKET] [ACTION: HANGUP]
//
// which are stripped before the text is spoken and executed in the order
// found.
package directive

import "strings"

// Kind is a directive type.
type Kind uint8

const (
	// KindUnknown marks a well-formed tag whose type is not recognized.
	// It is logged and dropped, never executed and never spoken.
	KindUnknown Kind = iota
	// KindCreateTicket opens a ticket; the payload is the issue summary.
	KindCreateTicket
	// KindUseTicket adopts an existing ticket; the payload is its id.
	KindUseTicket
	// KindResolveTicket marks a ticket resolved; the payload is an optional
	// id, defaulting to the call's active ticket.
	KindResolveTicket
	// KindTransfer bridges the caller to a live agent; the payload is an
	// optional destination number.
	KindTransfer
	// KindHangup ends the call after the farewell has had time to play.
	KindHangup
	// KindUpdateName renames the CRM contact; the payload is the name.
	KindUpdateName
	// KindWait extends the next listening window.
	KindWait
	// KindSentiment records the model's read of the caller's mood.
	KindSentiment
)

func (k Kind) String() string {
	switch k {
	case KindCreateTicket:
		return "CREATE_TICKET"
	case KindUseTicket:
		return "USE_TICKET"
	case KindResolveTicket:
		return "RESOLVE_TICKET"
	case KindTransfer:
		return "TRANSFER"
	case KindHangup:
		return "HANGUP"
	case KindUpdateName:
		return "UPDATE_NAME"
	case KindWait:
		return "WAIT"
	case KindSentiment:
		return "SENTIMENT"
	default:
		return "UNKNOWN"
	}
}

var kinds = map[string]Kind{
	"CREATE_TICKET":  KindCreateTicket,
	"USE_TICKET":     KindUseTicket,
	"RESOLVE_TICKET": KindResolveTicket,
	"TRANSFER":       KindTransfer,
	"HANGUP":         KindHangup,
	"UPDATE_NAME":    KindUpdateName,
	"WAIT":           KindWait,
	"SENTIMENT":      KindSentiment,
}

// Directive is one parsed command.
type Directive struct {
	Kind Kind
	// Payload is the optional colon-delimited data, free text up to the
	// closing bracket.
	Payload string
	// Raw preserves the tag's type text for logging unknown kinds.
	Raw string
}

// Parse extracts every directive from text, in order, and returns the text
// with all directive markup removed. Type matching is case-insensitive.
// Brackets that are not action tags (stage notes, transcription artifacts)
// are left in place. Stripping is idempotent: the returned text contains no
// action tags.
func Parse(text string) (string, []Directive) {
	var spoken strings.Builder
	var found []Directive

	for {
		open := strings.IndexByte(text, '[')
		if open < 0 {
			spoken.WriteString(text)
			break
		}
		close := strings.IndexByte(text[open:], ']')
		if close < 0 {
			spoken.WriteString(text)
			break
		}
		close += open

		inner := text[open+1 : close]
		d, ok := parseTag(inner)
		if !ok {
			// Not a tag. Keep the bracket and rescan right after it, so a
			// real tag nested inside stray brackets is still picked up.
			spoken.WriteString(text[:open+1])
			text = text[open+1:]
			continue
		}
		found = append(found, d)
		spoken.WriteString(text[:open])
		text = text[close+1:]
	}

	return collapseSpaces(spoken.String()), found
}

// parseTag interprets the inside of one bracket pair. It recognizes
// "ACTION: TYPE", "ACTION: TYPE: DATA" and the legacy "SENTIMENT: X" form.
func parseTag(inner string) (Directive, bool) {
	head, rest, hasRest := strings.Cut(inner, ":")
	head = strings.ToUpper(strings.TrimSpace(head))

	switch head {
	case "SENTIMENT":
		return Directive{
			Kind:    KindSentiment,
			Payload: strings.TrimSpace(rest),
			Raw:     head,
		}, true
	case "ACTION":
		if !hasRest {
			return Directive{}, false
		}
		name, payload, _ := strings.Cut(rest, ":")
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			return Directive{}, false
		}
		return Directive{
			Kind:    kinds[name],
			Payload: strings.TrimSpace(payload),
			Raw:     name,
		}, true
	default:
		return Directive{}, false
	}
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
