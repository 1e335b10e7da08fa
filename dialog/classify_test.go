package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordsClassify(t *testing.T) {
	cases := []struct {
		utterance string
		want      Intent
	}{
		{"yes", IntentAffirmative},
		{"yeah that's correct", IntentAffirmative},
		{"no", IntentNegative},
		{"nothing else thanks", IntentNegative},
		{"hold on a second", IntentPause},
		{"wait", IntentPause},
		{"stop", IntentPause},
		{"please stop for a moment", IntentPause},
		{"it stopped working yesterday", IntentOther},
		{"I want to talk to a human", IntentEscalate},
		{"can you transfer me", IntentEscalate},
		{"could you repeat that", IntentRepeat},
		{"say that again please", IntentRepeat},
		{"that worked, thanks", IntentResolved},
		{"it's all good now", IntentResolved},
		{"my printer is broken", IntentOther},
		{"", IntentOther},
	}

	for _, tc := range cases {
		t.Run(tc.utterance, func(t *testing.T) {
			assert.Equal(t, tc.want, Keywords{}.Classify(tc.utterance), "utterance %q", tc.utterance)
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	// Pause outranks everything, escalation outranks yes/no.
	assert.Equal(t, IntentPause, Keywords{}.Classify("yes, hold on"))
	assert.Equal(t, IntentEscalate, Keywords{}.Classify("no, get me a human"))
}
