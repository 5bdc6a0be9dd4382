package fx

import (
	"math"

	"github.com/tactus-audio/tactus"
)

type Wave int

const (
	WaveSine Wave = iota
	WaveTriangle
	WaveSquare
	WaveSawtooth
)

// LFOChannelRun modulates the amplitude of signal blocks with a low
// frequency oscillator. The gain swings between 1-depth and 1. The phase is
// derived from the stream position, so the modulation restarts with every
// new signal.
type LFOChannelRun struct {
	channelRun
}

func newLFOChannelRun() tactus.Behavior { return &LFOChannelRun{} }

func (l *LFOChannelRun) Duplicate() tactus.Behavior { return newLFOChannelRun() }

func (l *LFOChannelRun) Connect(r *tactus.Recall) error {
	if !r.IsTemplate() {
		l.bind(r)
	}
	return nil
}

// Oscillate returns the value of the wave at phase x (radians), in [-1, 1].
func Oscillate(w Wave, x float64) float64 {
	switch w {
	case WaveTriangle:
		return 2 / math.Pi * math.Asin(math.Sin(x))
	case WaveSquare:
		if math.Sin(x) >= 0 {
			return 1
		}
		return -1
	case WaveSawtooth:
		t := x / (2 * math.Pi)
		return 2 * (t - math.Floor(t+0.5))
	}
	return math.Sin(x)
}

func (l *LFOChannelRun) Process(r *tactus.Recall, ctx *tactus.RunContext, s *tactus.AudioSignal, block []float32, frame int) {
	if number(l.config, "./enabled[0]", 0) == 0 || s.Samplerate <= 0 {
		return
	}
	wave := Wave(number(l.config, "./lfo-wave[0]", 0))
	freq := number(l.config, "./lfo-freq[0]", 6) * math.Pow(2, number(l.config, "./lfo-tuning[0]", 0)/1200)
	phase := number(l.config, "./lfo-phase[0]", 0)
	depth := number(l.config, "./lfo-depth[0]", 0.5)
	w := 2 * math.Pi * freq / float64(s.Samplerate)
	for i := range block {
		x := phase + w*float64(frame+i)
		block[i] *= float32(1 - depth*(0.5-0.5*Oscillate(wave, x)))
	}
}
