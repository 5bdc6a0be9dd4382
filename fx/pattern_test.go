package fx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/fx"
)

func TestStep(t *testing.T) {
	for _, c := range []struct {
		offset uint64
		delay  float64
		length int
		want   int
	}{
		{0, 4, 16, 0},
		{3, 4, 16, 0},
		{4, 4, 16, 1},
		{63, 4, 16, 15},
		{64, 4, 16, 0},
		{10, 2.5, 16, 4},
		{10, 0, 16, 0},
		{10, 4, 0, 0},
	} {
		assert.Equal(t, c.want, fx.Step(c.offset, c.delay, c.length), "offset %d delay %g length %d", c.offset, c.delay, c.length)
	}
}

// A 16 step pattern with delay 4 looping over offsets 0..64 repeats its
// note events every 64 ticks.
func TestPatternOnTickPeriod(t *testing.T) {
	a := newSequencer(t, 1)
	ch := a.Channel(tactus.Input, 0, 0)
	loadTemplate(t, ch, 4, 0.5)
	ch.Pattern().Set(0, 0, 0, true)
	ch.Pattern().Set(0, 0, 8, true)
	_, err := fx.Create(a, nil, nil, fx.Pattern, nil, 0, 1, 0, 1, -1, fx.FlagAdd|fx.FlagRecall)
	require.NoError(t, err)
	_, err = fx.Instantiate(a, false, tactus.NewRecallID())
	require.NoError(t, err)

	rec := &recorder{}
	for tick := 0; tick < 128; tick++ {
		block(a, rec, uint64(tick%64), tick > 0 && tick%64 == 0)
	}
	assert.Equal(t, []uint64{0, 32, 0, 32}, rec.ons())
	assert.Equal(t, []uint64{4, 36, 4, 36}, rec.offs())
	for _, e := range rec.notes {
		if e.On {
			assert.Equal(t, byte(60), e.Key)
			assert.Equal(t, byte(100), e.Velocity)
		}
	}
	loops := 0
	for _, e := range rec.recalls {
		if e.Kind == tactus.RecallEventLoop {
			loops++
		}
	}
	assert.Equal(t, 1, loops)
}

func TestPatternLengthPort(t *testing.T) {
	a := newSequencer(t, 1)
	ch := a.Channel(tactus.Input, 0, 0)
	ch.Pattern().Set(0, 0, 0, true)
	_, err := fx.Create(a, nil, nil, fx.Pattern, nil, 0, 1, 0, 1, -1, fx.FlagAdd|fx.FlagRecall)
	require.NoError(t, err)
	tmpl := a.FindRecallContainer(fx.Pattern, false).RecallAudio()
	require.NoError(t, tmpl.FindPort("./length[0]").SafeWrite(tactus.Uint64Value(4)))
	_, err = fx.Instantiate(a, false, tactus.NewRecallID())
	require.NoError(t, err)

	rec := &recorder{}
	for tick := uint64(0); tick < 64; tick++ {
		block(a, rec, tick, false)
	}
	// step 0 comes around every 4 steps, 16 ticks
	assert.Equal(t, []uint64{0, 16, 32, 48}, rec.ons())
}
