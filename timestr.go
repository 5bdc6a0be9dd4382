package tactus

import (
	"fmt"
	"math"
)

// StepsPerBeat is the number of tact steps in one beat used by the time
// string conversion: a tact of 16 is one beat.
const StepsPerBeat = 16

// DelayPerTact returns the length of one beat in seconds:
// (60 / bpm) / delayFactor.
func DelayPerTact(bpm, delayFactor float64) float64 {
	if bpm <= 0 || delayFactor <= 0 {
		return 0
	}
	return (60 / bpm) / delayFactor
}

// TactToSeconds converts a tact counter to seconds.
func TactToSeconds(tact, bpm, delayFactor float64) float64 {
	return tact / StepsPerBeat * DelayPerTact(bpm, delayFactor)
}

// TactToTimeString formats a tact counter as minutes:seconds.milliseconds,
// "%04d:%02d.%03d". Minutes are taken off first, then seconds, then
// milliseconds, each from what the previous step left.
func TactToTimeString(tact, bpm, delayFactor float64) string {
	t := TactToSeconds(tact, bpm, delayFactor)
	minutes := math.Floor(t / 60)
	t -= minutes * 60
	seconds := math.Floor(t)
	t -= seconds
	millis := min(math.Floor(math.Round(t*1e6)/1e3), 999)
	return fmt.Sprintf("%.4d:%.2d.%.3d", int(minutes), int(seconds), int(millis))
}
