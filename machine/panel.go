package machine

import (
	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/fx"
)

// Panel streams the template of each input channel once per run, through
// volume and the level analysis. It neither sequences nor reads notation.
type Panel struct {
	*Base
}

func NewPanel(name string, samplerate, bufferSize int, format tactus.SampleFormat, audioChannels int) *Panel {
	a := tactus.NewAudio(name, samplerate, bufferSize, format, tactus.FlagPlayback|tactus.FlagDefaultsToInput)
	a.MinAudioChannels = 1
	a.SetAudioChannels(audioChannels)
	a.SetPads(tactus.Input, 1)
	return &Panel{Base: NewBase(a,
		[]string{fx.Playback, fx.Volume, fx.Analyse},
		nil,
	)}
}
