package strix

import "time"

// Reply is the narrow contract handed back to the telephony transport after
// each event: what to say, and what to do once it has been said.
type Reply struct {
	// Say is spoken to the caller first, whatever else happens.
	Say string

	// Listen asks the transport to capture the next utterance. Hints seed
	// the recognizer; Hold requests a longer silence window before the
	// no-input timeout fires.
	Listen bool
	Hints  []string
	Hold   bool

	// Transfer bridges the caller to this number after Say has played.
	Transfer string

	// Hangup reports that the call will be torn down; teardown itself has
	// already been scheduled HangupDelay from now, so the farewell finishes
	// playing first.
	Hangup      bool
	HangupDelay time.Duration
}
