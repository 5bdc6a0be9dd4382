package machine

import (
	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/fx"
)

// MatrixMaxInputPads bounds the number of input lines of a matrix.
const MatrixMaxInputPads = 128

// Matrix sequences up to MatrixMaxInputPads lines on a single audio
// channel, from its pattern grid and from the notation of the audio
// channel. Input signals are copied by the buffer recipe to the single
// output pad, which plays them.
type Matrix struct {
	*Base
}

func NewMatrix(name string, samplerate, bufferSize int, format tactus.SampleFormat) *Matrix {
	a := tactus.NewAudio(name, samplerate, bufferSize, format,
		tactus.FlagPlayback|tactus.FlagSequencer|tactus.FlagNotation|tactus.FlagPatternMode|tactus.FlagDefaultsToInput)
	a.BankDim = [3]int{1, 9, 32}
	a.MinAudioChannels, a.MaxAudioChannels = 1, 1
	a.MaxInputPads = MatrixMaxInputPads
	a.MinOutputPads, a.MaxOutputPads = 1, 1
	a.SetAudioChannels(1)
	a.SetPads(tactus.Output, 1)
	return &Matrix{Base: NewBase(a,
		[]string{fx.Pattern, fx.Notation, fx.Envelope, fx.Buffer},
		[]string{fx.Playback, fx.Volume},
	)}
}
