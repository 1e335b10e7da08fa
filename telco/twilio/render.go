// Package twilio renders engine replies as TwiML and drives live calls
// through the Twilio REST API.
package twilio

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/twilio/twilio-go/twiml"

	strix "github.com/casualjim/strix"
)

const (
	// speechTimeout is how long Twilio waits for the caller to stop talking.
	speechTimeout = "auto"
	// gatherTimeout is the no-input window before the empty-result callback
	// fires, which the engine counts as a silence.
	gatherTimeout = "5"
	// holdTimeout is the stretched window used when the caller asked for a
	// moment.
	holdTimeout = "15"
	// transferPause holds the line long enough for the scheduled REST-side
	// bridge to land before the in-band fallback dial runs.
	transferPause = "6"
)

// Render turns a Reply into a TwiML document. asrURL is the webhook that
// receives the gathered speech; it is also invoked with an empty
// SpeechResult on timeout so silences reach the engine.
func Render(reply strix.Reply, asrURL string) (string, error) {
	var verbs []twiml.Element

	switch {
	case reply.Transfer != "":
		// The REST-side bridge is already scheduled; the Pause gives it time
		// to land, and the Dial only executes if the redirect never arrives.
		verbs = append(verbs,
			&twiml.VoiceSay{Message: reply.Say},
			&twiml.VoicePause{Length: transferPause},
			&twiml.VoiceDial{
				InnerElements: []twiml.Element{
					&twiml.VoiceNumber{PhoneNumber: reply.Transfer},
				},
			},
		)

	case reply.Hangup:
		// The REST-side hangup is already scheduled; the Pause+Hangup here is
		// the in-band fallback in case that API call never lands.
		verbs = append(verbs,
			&twiml.VoiceSay{Message: reply.Say},
			&twiml.VoicePause{Length: pauseSeconds(reply.HangupDelay)},
			&twiml.VoiceHangup{},
		)

	case reply.Listen:
		timeout := gatherTimeout
		if reply.Hold {
			timeout = holdTimeout
		}
		verbs = append(verbs, &twiml.VoiceGather{
			Input:               "speech",
			Action:              asrURL,
			Method:              "POST",
			Timeout:             timeout,
			SpeechTimeout:       speechTimeout,
			Hints:               strings.Join(reply.Hints, ", "),
			ActionOnEmptyResult: "true",
			InnerElements: []twiml.Element{
				&twiml.VoiceSay{Message: reply.Say},
			},
		})

	default:
		verbs = append(verbs,
			&twiml.VoiceSay{Message: reply.Say},
			&twiml.VoiceHangup{},
		)
	}

	return twiml.Voice(verbs)
}

func pauseSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%d", secs)
}
