package directive

import "time"

// Spoken-word pacing used to estimate how long the farewell takes to play.
// The buffer absorbs network and playback jitter; the floor covers calls
// where no farewell text is available at all.
const (
	farewellCharsPerSecond = 15
	hangupBuffer           = 2 * time.Second
	minHangupDelay         = 3 * time.Second
)

// HangupDelay computes how long to hold the line before tearing the call
// down, so the farewell finishes playing first. The delay grows with the
// farewell length and never drops below the fixed minimum.
func HangupDelay(farewell string) time.Duration {
	d := time.Duration(len(farewell)/farewellCharsPerSecond)*time.Second + hangupBuffer
	if d < minHangupDelay {
		d = minHangupDelay
	}
	return d
}
