package machine

import (
	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/fx"
)

const (
	// DrumInputPadFloor is the least number of input pads of a drum.
	DrumInputPadFloor = 8
)

// Drum is a pattern sequencer: every input pad plays its template on the
// set steps of its pattern, through volume and envelope, straight into the
// output bus. It maps nothing on output channels.
type Drum struct {
	*Base
}

// NewDrum creates a drum with one audio channel and no pads. The first
// pad resize is clamped up to DrumInputPadFloor.
func NewDrum(name string, samplerate, bufferSize int, format tactus.SampleFormat) *Drum {
	a := tactus.NewAudio(name, samplerate, bufferSize, format,
		tactus.FlagPlayback|tactus.FlagSequencer|tactus.FlagPatternMode|tactus.FlagDefaultsToInput)
	a.BankDim = [3]int{4, 12, 64}
	a.MinInputPads = DrumInputPadFloor
	a.SetAudioChannels(1)
	return &Drum{Base: NewBase(a,
		[]string{fx.Pattern, fx.Playback, fx.Volume, fx.Envelope, fx.Peak},
		nil,
	)}
}
