package fx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/fx"
)

func TestBufferCopiesInputSignalsToOutput(t *testing.T) {
	a := newSequencer(t, 1)
	a.SetPads(tactus.Output, 1)
	in := a.Channel(tactus.Input, 0, 0)
	out := a.Channel(tactus.Output, 0, 0)
	loadTemplate(t, in, 8, 0.5)
	in.Pattern().Set(0, 0, 0, true)
	for _, c := range []struct {
		recipe string
		flags  fx.CreateFlags
	}{
		{fx.Pattern, fx.FlagInput},
		{fx.Buffer, fx.FlagInput},
		{fx.Playback, fx.FlagOutput},
	} {
		_, err := fx.Create(a, nil, nil, c.recipe, nil, 0, 1, 0, 1, -1, fx.FlagAdd|fx.FlagRecall|c.flags)
		require.NoError(t, err, c.recipe)
	}
	id := tactus.NewRecallID()
	_, err := fx.Instantiate(a, false, id)
	require.NoError(t, err)

	bus := block(a, &recorder{}, 0, false)
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5}, bus)
	assert.Len(t, out.Recycling().RuntimeSignals(id), 1)
	assert.Len(t, in.Recycling().RuntimeSignals(id), 1)

	// the source is copied once, the copy plays out
	block(a, &recorder{}, 1, false)
	assert.Empty(t, out.Recycling().RuntimeSignals(id))

	// the played out copy releases its source, then its recall is retired
	runs := in.FindRecall(fx.Buffer, false, false)
	require.Len(t, runs, 1)
	require.Len(t, runs[0].Children(), 1)
	copier := runs[0].Children()[0]
	require.Len(t, copier.Children(), 1)
	pair := copier.Children()[0]
	block(a, &recorder{}, 2, false)
	assert.Empty(t, in.Recycling().RuntimeSignals(id))
	assert.Equal(t, tactus.RecallStateDone, pair.State())
	block(a, &recorder{}, 3, false)
	assert.Equal(t, tactus.RecallStateRemoved, pair.State())
	assert.Empty(t, copier.Children())

	fx.Cancel(a, id)
	assert.Empty(t, in.Recycling().RuntimeSignals(id))
}

func TestShrinkingOutputsDropsCopiesIntoThem(t *testing.T) {
	a := newSequencer(t, 1)
	a.SetPads(tactus.Output, 2)
	in := a.Channel(tactus.Input, 0, 0)
	loadTemplate(t, in, 64, 0.5)
	in.Pattern().Set(0, 0, 0, true)
	_, err := fx.Create(a, nil, nil, fx.Pattern, nil, 0, 1, 0, 1, -1, fx.FlagAdd|fx.FlagRecall|fx.FlagInput)
	require.NoError(t, err)
	_, err = fx.Create(a, nil, nil, fx.Buffer, nil, 0, 1, 0, 1, -1, fx.FlagAdd|fx.FlagRecall|fx.FlagInput)
	require.NoError(t, err)
	_, err = fx.Create(a, nil, nil, fx.Playback, nil, 0, 1, 0, 2, -1, fx.FlagAdd|fx.FlagRecall|fx.FlagOutput)
	require.NoError(t, err)
	cfg := a.FindRecallContainer(fx.Buffer, false).FindChannel(in)
	require.NoError(t, cfg.FindPort("./output-pad[0]").SafeWrite(tactus.Int64Value(1)))

	id := tactus.NewRecallID()
	_, err = fx.Instantiate(a, false, id)
	require.NoError(t, err)
	block(a, &recorder{}, 0, false)
	runs := in.FindRecall(fx.Buffer, false, false)
	require.Len(t, runs, 1)
	require.Len(t, runs[0].Children(), 1)
	copier := runs[0].Children()[0]
	require.Len(t, a.Channel(tactus.Output, 1, 0).Recycling().RuntimeSignals(id), 1)

	a.SetPads(tactus.Output, 1)
	assert.Empty(t, runs[0].Children())
	assert.Equal(t, tactus.RecallStateRemoved, copier.State())
	block(a, &recorder{}, 1, false)
	assert.Equal(t, tactus.RecallStateRunning, runs[0].State())
}
