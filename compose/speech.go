package compose

import (
	"regexp"
	"strings"
)

// checkIn is appended to answers that don't already end on a question, so
// every spoken turn hands the floor back to the caller.
const checkIn = "Did that work for you?"

var (
	stepMarker   = regexp.MustCompile(`(?i)\bstep\s+(\d+)\s*[:.\-]?\s*`)
	leadingFirst = regexp.MustCompile(`(?i)^\s*first(?:ly)?\s*[,:]?\s*`)
	sentenceGap  = regexp.MustCompile(`\s*\n+\s*`)
)

// connectives replace numbered step markers so the answer reads like speech
// instead of a document.
var connectives = map[string]string{
	"1": "So first, ",
	"2": "Next, ",
	"3": "Then, ",
}

// Spoken normalizes generated text for a voice channel: step markers become
// conversational connectives, line breaks become natural pauses, a closing
// check-in question is appended, and the whole thing is truncated to keep
// spoken turns short.
func Spoken(text string, maxChars int) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}

	s = leadingFirst.ReplaceAllString(s, "So first, ")
	s = stepMarker.ReplaceAllStringFunc(s, func(m string) string {
		num := stepMarker.FindStringSubmatch(m)[1]
		if c, ok := connectives[num]; ok {
			return c
		}
		return "After that, "
	})
	s = sentenceGap.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")

	if !strings.HasSuffix(s, "?") {
		s += " " + checkIn
	}

	if len(s) > maxChars {
		s = strings.TrimSpace(truncate(s, maxChars-1)) + "…"
	}
	return s
}
