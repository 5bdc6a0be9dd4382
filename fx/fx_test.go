package fx_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tactus-audio/tactus"
)

type recorder struct {
	notes   []tactus.NoteEvent
	recalls []tactus.RecallEvent
}

func (r *recorder) NoteEvent(e tactus.NoteEvent)     { r.notes = append(r.notes, e) }
func (r *recorder) RecallEvent(e tactus.RecallEvent) { r.recalls = append(r.recalls, e) }

func (r *recorder) ons() []uint64 {
	var ret []uint64
	for _, e := range r.notes {
		if e.On {
			ret = append(ret, e.Offset)
		}
	}
	return ret
}

func (r *recorder) offs() []uint64 {
	var ret []uint64
	for _, e := range r.notes {
		if !e.On {
			ret = append(ret, e.Offset)
		}
	}
	return ret
}

// newSequencer returns a connected sequencer audio with one audio channel,
// the given number of input pads and a 16 step pattern on each.
func newSequencer(t *testing.T, pads int) *tactus.Audio {
	t.Helper()
	a := tactus.NewAudio("drum", 44100, 4, tactus.FormatFloat, tactus.FlagSequencer|tactus.FlagDefaultsToInput)
	a.BankDim = [3]int{1, 1, 16}
	a.SetAudioChannels(1)
	a.SetPads(tactus.Input, pads)
	require.NoError(t, a.Connect())
	return a
}

// loadTemplate gives the channel a template of frames samples of value v.
func loadTemplate(t *testing.T, ch *tactus.Channel, frames int, v float64) {
	t.Helper()
	s, err := tactus.NewTemplateSignal(ch.Samplerate(), ch.BufferSize(), ch.Format(), frames)
	require.NoError(t, err)
	for i := 0; i < frames; i++ {
		s.SetAt(i, v)
	}
	require.NoError(t, ch.Recycling().SetTemplate(s))
}

// block runs one block of a at offset and returns the output bus.
func block(a *tactus.Audio, rec *recorder, offset uint64, looped bool) []float32 {
	ctx := &tactus.RunContext{
		NoteOffset: offset,
		Delay:      4,
		Bpm:        120,
		Samplerate: a.Samplerate,
		BufferSize: a.BufferSize,
		Looped:     looped,
		Events:     rec,
	}
	out := make([]float32, a.BufferSize)
	ctx.SetOutputs([][]float32{out})
	a.RunBlock(ctx)
	return out
}
