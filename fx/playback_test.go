package fx_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/fx"
)

// newDrum sets up one pad that plays an 8 frame template of 0.5 on step 0,
// with the given extra recipes after pattern and playback.
func newDrum(t *testing.T, extra ...string) (*tactus.Audio, *tactus.Channel) {
	t.Helper()
	a := newSequencer(t, 1)
	ch := a.Channel(tactus.Input, 0, 0)
	loadTemplate(t, ch, 8, 0.5)
	ch.Pattern().Set(0, 0, 0, true)
	for _, recipe := range append([]string{fx.Pattern, fx.Playback}, extra...) {
		_, err := fx.Create(a, nil, nil, recipe, nil, 0, 1, 0, 1, -1, fx.FlagAdd|fx.FlagRecall)
		require.NoError(t, err, recipe)
	}
	return a, ch
}

func configPort(t *testing.T, a *tactus.Audio, ch *tactus.Channel, recipe, specifier string) *tactus.Port {
	t.Helper()
	c := a.FindRecallContainer(recipe, false)
	require.NotNil(t, c, recipe)
	cfg := c.FindChannel(ch)
	require.NotNil(t, cfg, recipe)
	p := cfg.FindPort(specifier)
	require.NotNil(t, p, specifier)
	return p
}

func TestPlaybackMixesAndRemovesPlayedOutSignals(t *testing.T) {
	a, ch := newDrum(t)
	id := tactus.NewRecallID()
	_, err := fx.Instantiate(a, false, id)
	require.NoError(t, err)

	rec := &recorder{}
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5}, block(a, rec, 0, false))
	assert.Len(t, ch.Recycling().RuntimeSignals(id), 1)
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5}, block(a, rec, 1, false))
	assert.Empty(t, ch.Recycling().RuntimeSignals(id))
	assert.Equal(t, []float32{0, 0, 0, 0}, block(a, rec, 2, false))
}

func TestCancelRemovesRunAndSignals(t *testing.T) {
	a, ch := newDrum(t)
	id := tactus.NewRecallID()
	_, err := fx.Instantiate(a, false, id)
	require.NoError(t, err)
	block(a, &recorder{}, 0, false)
	require.NotEmpty(t, ch.Recycling().RuntimeSignals(id))

	assert.Equal(t, 4, fx.Cancel(a, id))
	assert.Empty(t, ch.Recycling().RuntimeSignals(id))
	a.Sweep()
	assert.Empty(t, a.RuntimeRecalls(id))
	// templates survive
	assert.Len(t, ch.FindRecall(fx.Playback, false, true), 2)
}

func TestVolumeAndPeak(t *testing.T) {
	a, ch := newDrum(t, fx.Volume, fx.Peak)
	require.NoError(t, configPort(t, a, ch, fx.Volume, "./volume[0]").SafeWrite(tactus.FloatValue(0.5)))
	_, err := fx.Instantiate(a, false, tactus.NewRecallID())
	require.NoError(t, err)

	out := block(a, &recorder{}, 0, false)
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, out)
	assert.InDelta(t, 0.25, configPort(t, a, ch, fx.Peak, "./peak[0]").Number(), 1e-6)

	require.NoError(t, configPort(t, a, ch, fx.Volume, "./muted[0]").SafeWrite(tactus.BoolValue(true)))
	assert.Equal(t, []float32{0, 0, 0, 0}, block(a, &recorder{}, 1, false))
}

func TestAnalysePublishesRMSAndMagnitudes(t *testing.T) {
	a, ch := newDrum(t, fx.Analyse)
	_, err := fx.Instantiate(a, false, tactus.NewRecallID())
	require.NoError(t, err)
	block(a, &recorder{}, 0, false)

	assert.InDelta(t, 0.5, configPort(t, a, ch, fx.Analyse, "./rms[0]").Number(), 1e-6)
	v := configPort(t, a, ch, fx.Analyse, "./magnitude-buffer[0]").SafeRead()
	mags, ok := v.Pointer.([]float64)
	require.True(t, ok)
	require.Len(t, mags, 4)
	for _, m := range mags {
		assert.InDelta(t, 0.5, m, 1e-6)
	}
}

func TestEnvelopeGain(t *testing.T) {
	for _, c := range []struct {
		frame int
		want  float64
	}{{0, 0}, {5, 0.5}, {10, 1}, {15, 0.75}, {50, 0.5}, {90, 0.25}, {100, 0}} {
		assert.InDelta(t, c.want, fx.EnvelopeGain(c.frame, 100, 10, 10, 0.5, 20), 1e-9, "frame %d", c.frame)
	}
}

func TestOscillate(t *testing.T) {
	assert.InDelta(t, 1, fx.Oscillate(fx.WaveSine, math.Pi/2), 1e-9)
	assert.InDelta(t, 1, fx.Oscillate(fx.WaveTriangle, math.Pi/2), 1e-9)
	assert.Equal(t, 1.0, fx.Oscillate(fx.WaveSquare, 0))
	assert.Equal(t, -1.0, fx.Oscillate(fx.WaveSquare, 3*math.Pi/2))
	assert.InDelta(t, 0, fx.Oscillate(fx.WaveSawtooth, 0), 1e-9)
	assert.InDelta(t, 0.5, fx.Oscillate(fx.WaveSawtooth, math.Pi/2), 1e-9)
}

func TestDumpGraph(t *testing.T) {
	a, _ := newDrum(t, fx.Volume)
	var sb strings.Builder
	require.NoError(t, fx.DumpGraph(&sb, a))
	out := sb.String()
	assert.Contains(t, out, `audio "drum": 1 audio channels, 1 input pads, 0 output pads`)
	assert.Contains(t, out, "ags-fx-pattern (recall): 1 channels, 1 channel runs")
	assert.Contains(t, out, "./volume[0] = 1")
	assert.Contains(t, out, "input[pad 0, ac 0]")
}
