// Package dialog is the conversation state machine: one handler per stage,
// a keyword intent classifier, and the silence escalation policy.
package dialog

import "strings"

// Intent is the classifier's read of an utterance.
type Intent uint8

const (
	// IntentOther is anything the keyword sets don't claim.
	IntentOther Intent = iota
	IntentAffirmative
	IntentNegative
	IntentPause
	IntentEscalate
	IntentRepeat
	IntentResolved
)

func (i Intent) String() string {
	switch i {
	case IntentAffirmative:
		return "affirmative"
	case IntentNegative:
		return "negative"
	case IntentPause:
		return "pause"
	case IntentEscalate:
		return "escalate"
	case IntentRepeat:
		return "repeat"
	case IntentResolved:
		return "resolved"
	default:
		return "other"
	}
}

// Classifier maps an utterance to an intent. The stage handlers interpret
// the result in context; in a yes/no stage anything that isn't affirmative
// counts as negative. Keeping this an interface lets the keyword matcher be
// swapped for a learned classifier without touching stage logic.
type Classifier interface {
	Classify(utterance string) Intent
}

// Keyword sets are small and matched by substring, so "yeah, that's correct"
// and "no, not those two" both land where a caller expects. Order matters;
// pause wins over everything.
var (
	pauseWords    = []string{"wait", "hold", "one moment", "just a moment", "hang on", "give me a second"}
	escalateWords = []string{"human", "real person", "live agent", "an agent", "representative", "speak to someone", "transfer me"}
	repeatWords   = []string{"repeat", "say that again", "come again", "once more", "didn't catch"}
	resolvedWords = []string{"that worked", "it worked", "fixed", "resolved", "solved", "working now", "that did it", "all good", "sorted"}
	affirmative   = []string{"yes", "yeah", "yep", "yup", "correct", "sure", "that's right", "exactly", "i have", "i did"}
	negativeWords = []string{"no", "nope", "not", "nothing", "nah", "never", "that's all", "we're good", "i'm good"}
	// stopWord matches as a whole word only, so "stopped working" describes
	// an issue instead of pausing the call.
	stopWord = "stop"
)

// Keywords is the default substring classifier.
type Keywords struct{}

func (Keywords) Classify(utterance string) Intent {
	s := strings.ToLower(strings.TrimSpace(utterance))
	if s == "" {
		return IntentOther
	}

	switch {
	case containsAny(s, pauseWords) || containsWord(s, stopWord):
		return IntentPause
	case containsAny(s, escalateWords):
		return IntentEscalate
	case containsAny(s, repeatWords):
		return IntentRepeat
	case containsAny(s, resolvedWords):
		return IntentResolved
	case containsAny(s, negativeWords):
		return IntentNegative
	case containsAny(s, affirmative):
		return IntentAffirmative
	default:
		return IntentOther
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// containsWord reports whether w appears in s bounded by non-word bytes.
func containsWord(s, w string) bool {
	for i := 0; i+len(w) <= len(s); {
		j := strings.Index(s[i:], w)
		if j < 0 {
			return false
		}
		j += i
		before := j == 0 || !wordByte(s[j-1])
		after := j+len(w) == len(s) || !wordByte(s[j+len(w)])
		if before && after {
			return true
		}
		i = j + 1
	}
	return false
}

func wordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
