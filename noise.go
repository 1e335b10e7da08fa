package strix

import "strings"

// Short fragments that are real answers even at three characters.
var shortWhitelist = map[string]struct{}{
	"yes": {}, "no": {}, "ok": {}, "okay": {}, "help": {},
	"yeah": {}, "yep": {}, "sure": {}, "yup": {}, "hi": {}, "hey": {},
}

// Recognizer artifacts the line picks up that were never speech.
var noiseArtifacts = map[string]struct{}{
	"uh": {}, "um": {}, "hmm": {}, "the wind": {},
	"background noise": {}, "noise": {}, "disturbance": {},
}

// isNoise reports whether an utterance should be treated as a no-input
// timeout instead of speech: empty, a sub-word fragment outside the short
// whitelist, or a known recognizer artifact.
func isNoise(utterance string) bool {
	trimmed := strings.TrimSpace(utterance)
	if len(trimmed) < 2 {
		return true
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, trimmed)
	cleaned = strings.TrimSpace(cleaned)

	if _, ok := noiseArtifacts[cleaned]; ok {
		return true
	}
	if len(trimmed) < 5 {
		_, ok := shortWhitelist[cleaned]
		return !ok
	}
	return false
}
