package fx

import "github.com/tactus-audio/tactus"

// EnvelopeChannelRun applies an attack/decay/sustain/release envelope to
// each runtime signal, measured from the start of the signal; the release
// covers the last frames of the stream. Ratio blends between the dry
// signal (0) and the full envelope (1).
type EnvelopeChannelRun struct {
	channelRun
}

func newEnvelopeChannelRun() tactus.Behavior { return &EnvelopeChannelRun{} }

func (e *EnvelopeChannelRun) Duplicate() tactus.Behavior { return newEnvelopeChannelRun() }

func (e *EnvelopeChannelRun) Connect(r *tactus.Recall) error {
	if !r.IsTemplate() {
		e.bind(r)
	}
	return nil
}

// EnvelopeGain returns the envelope level at frame of a stream of total
// frames. Times are in frames.
func EnvelopeGain(frame, total int, attack, decay, sustain, release float64) float64 {
	f := float64(frame)
	var g float64
	switch {
	case f < attack:
		g = f / attack
	case f < attack+decay:
		g = 1 - (1-sustain)*(f-attack)/decay
	default:
		g = sustain
	}
	if left := float64(total - frame); release > 0 && left < release {
		g *= max(left, 0) / release
	}
	return g
}

func (e *EnvelopeChannelRun) Process(r *tactus.Recall, ctx *tactus.RunContext, s *tactus.AudioSignal, block []float32, frame int) {
	sr := float64(s.Samplerate)
	attack := number(e.config, "./attack[0]", 0) * sr
	decay := number(e.config, "./decay[0]", 0) * sr
	sustain := number(e.config, "./sustain[0]", 1)
	release := number(e.config, "./release[0]", 0) * sr
	ratio := number(e.config, "./ratio[0]", 1)
	total := s.Frames()
	for i := range block {
		g := EnvelopeGain(frame+i, total, attack, decay, sustain, release)
		block[i] *= float32(1 - ratio*(1-g))
	}
}
