package machine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/fx"
	"github.com/tactus-audio/tactus/machine"
)

const session = `
machines:
  - name: kit
    type: drum
    samples:
      - {pad: 1, audio-channel: 0, wave: square, freq: 100, seconds: 0.01, gain: 0.5}
    patterns:
      - {pad: 1, audio-channel: 0, bank0: 0, bank1: 2, steps: [0, 3]}
    notes:
      - {audio-channel: 0, x0: 1, x1: 3, y: 2, velocity: 90}
    automation:
      - {specifier: "./volume[0]", points: [[0, 1], [4096, 0.5]]}
    ports:
      - {recipe: ags-fx-pattern, audio: true, specifier: "./length[0]", value: 8}
      - {recipe: ags-fx-volume, pad: 1, specifier: "./volume[0]", value: 0.25}
`

func TestSessionBuild(t *testing.T) {
	s, err := machine.ParseSession([]byte(session))
	require.NoError(t, err)
	ms, err := s.Build(1000, 16, tactus.FormatS16)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	a := ms[0].Audio()
	assert.Equal(t, "kit", a.Name)
	assert.Equal(t, machine.DrumInputPadFloor, a.Pads(tactus.Input))

	ch := a.Channel(tactus.Input, 1, 0)
	tmpl := ch.Recycling().Template()
	require.NotNil(t, tmpl)
	assert.Equal(t, 10, tmpl.Frames())
	assert.InDelta(t, 0.5, tmpl.At(0), 1e-3)

	assert.True(t, ch.Pattern().Get(0, 2, 3))
	assert.False(t, ch.Pattern().Get(0, 0, 3))
	assert.Len(t, a.Notation(0).FindAt(1), 1)
	require.Len(t, a.Automations(), 1)
	assert.Equal(t, 2, a.Automations()[0].Len())

	length := a.FindRecallContainer(fx.Pattern, false).RecallAudio().FindPort("./length[0]")
	assert.Equal(t, 8.0, length.Number())
	vol := a.FindRecallContainer(fx.Volume, false).FindChannel(ch).FindPort("./volume[0]")
	assert.InDelta(t, 0.25, vol.Number(), 1e-6)
}

func TestSessionErrors(t *testing.T) {
	for name, c := range map[string]struct {
		src  string
		want error
	}{
		"machine": {"machines: [{name: x, type: theremin}]", machine.ErrUnknownMachine},
		"wave":    {"machines: [{name: x, type: panel, samples: [{wave: noise, seconds: 0.1}]}]", machine.ErrUnknownWave},
		"port":    {"machines: [{name: x, type: panel, ports: [{recipe: ags-fx-volume, specifier: './nope[0]'}]}]", machine.ErrNoSuchPort},
		"pattern": {"machines: [{name: x, type: panel, patterns: [{pad: 0, steps: [1]}]}]", tactus.ErrOutOfRange},
	} {
		s, err := machine.ParseSession([]byte(c.src))
		require.NoError(t, err, name)
		_, err = s.Build(44100, 64, tactus.FormatFloat)
		assert.ErrorIs(t, err, c.want, name)
	}
	_, err := machine.ParseSession([]byte("machines: {"))
	assert.Error(t, err)
}

func TestDefaultSessionBuilds(t *testing.T) {
	s, err := machine.DefaultSession()
	require.NoError(t, err)
	ms, err := s.Build(44100, 512, tactus.FormatFloat)
	require.NoError(t, err)
	assert.Len(t, ms, 2)
}
