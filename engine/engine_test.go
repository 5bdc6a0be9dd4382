package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/engine"
	"github.com/tactus-audio/tactus/fx"
	"github.com/tactus-audio/tactus/machine"
)

// testConfig has 100 blocks per second and a delay of exactly 4 ticks per
// step, looping over one 16 step bar.
func testConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Samplerate = 1000
	cfg.BufferSize = 10
	cfg.Bpm = 375
	cfg.Workers = 2
	cfg.Loop = true
	cfg.LoopStart = 0
	cfg.LoopEnd = 64
	return cfg
}

func TestClockWrapsAtLoopEnd(t *testing.T) {
	c := engine.NewClock(testConfig())
	require.InDelta(t, 4, c.Delay(), 1e-9)
	var wraps []int
	for tick := 1; tick <= 128; tick++ {
		offset, wrapped := c.Advance()
		if wrapped {
			wraps = append(wraps, tick)
			assert.Equal(t, uint64(0), offset)
		}
		assert.Less(t, offset, uint64(64))
	}
	assert.Equal(t, []int{64, 128}, wraps)
}

func TestClockSeek(t *testing.T) {
	cfg := testConfig()
	cfg.Loop = false
	c := engine.NewClock(cfg)
	assert.Equal(t, uint64(12), c.Seek(3, true))
	offset, wrapped, sought := c.Current()
	assert.Equal(t, uint64(12), offset)
	assert.False(t, wrapped)
	assert.True(t, sought)
	assert.Equal(t, uint64(3), c.Step())
	assert.Equal(t, uint64(0), c.Seek(5, false))
	c.Advance()
	_, _, sought = c.Current()
	assert.False(t, sought)
}

func TestConfigParse(t *testing.T) {
	cfg, err := engine.ParseConfig([]byte("bpm: 90\nworkers: -1\nformat: s16\nloop: true\nloop-start: 8\n"))
	require.NoError(t, err)
	assert.Equal(t, 90.0, cfg.Bpm)
	assert.Equal(t, engine.DefaultConfig().Workers, cfg.Workers)
	assert.Equal(t, tactus.FormatS16, cfg.Format)
	assert.Equal(t, 44100, cfg.Samplerate)
	assert.Equal(t, uint64(9), cfg.LoopEnd)

	_, err = engine.ParseConfig([]byte("format: s12\n"))
	assert.Error(t, err)
	assert.InDelta(t, 0.125*44100/512, engine.DefaultConfig().Delay(), 1e-9)
}

func TestBrokerQueue(t *testing.T) {
	b := engine.NewBroker(1)
	noop := engine.FuncTask(func() error { return nil })
	require.NoError(t, b.Submit(noop))
	assert.ErrorIs(t, b.Submit(noop), engine.ErrQueueFull)

	buf := b.GetBuffer(16)
	assert.Len(t, *buf, 16)
	b.PutBuffer(buf)

	_, ok := engine.TimeoutReceive(b.Events, time.Millisecond)
	assert.False(t, ok)
}

func newDrum(t *testing.T) *tactus.Audio {
	t.Helper()
	d := machine.NewDrum("drum", 1000, 10, tactus.FormatFloat)
	require.NoError(t, d.MapRecall())
	a := d.Audio()
	a.SetPads(tactus.Input, 8)
	ch := a.Channel(tactus.Input, 0, 0)
	s, err := tactus.NewTemplateSignal(1000, 10, tactus.FormatFloat, 20)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		s.SetAt(i, 0.5)
	}
	require.NoError(t, ch.Recycling().SetTemplate(s))
	ch.Pattern().Set(0, 0, 0, true)
	ch.Pattern().Set(0, 0, 8, true)
	return a
}

func drain(e *engine.Engine) (notes []tactus.NoteEvent, recalls []tactus.RecallEvent) {
	for {
		select {
		case ev := <-e.Events():
			switch ev := ev.(type) {
			case tactus.NoteEvent:
				notes = append(notes, ev)
			case tactus.RecallEvent:
				recalls = append(recalls, ev)
			}
		default:
			return
		}
	}
}

func TestEnginePlaysPatternPeriodically(t *testing.T) {
	e := engine.New(testConfig(), nil)
	defer e.Close()
	a := newDrum(t)
	require.NoError(t, e.AddAudio(a))
	id, err := e.StartPlayback(a, false)
	require.NoError(t, err)

	out, err := e.Render(128 * 10)
	require.NoError(t, err)
	require.Len(t, out, 128*10*2)
	var energy float32
	for i := 0; i < 20; i += 2 {
		assert.Equal(t, out[i], out[i+1], "mono audio goes to both channels")
		energy += out[i] * out[i]
	}
	assert.Greater(t, energy, float32(0))

	notes, recalls := drain(e)
	var ons []uint64
	for _, n := range notes {
		if n.On {
			ons = append(ons, n.Offset)
			assert.Equal(t, id, n.RecallID)
			assert.Equal(t, "drum", n.Audio)
		}
	}
	assert.Equal(t, []uint64{0, 32, 0, 32}, ons)
	loops := 0
	for _, r := range recalls {
		if r.Kind == tactus.RecallEventLoop {
			loops++
		}
	}
	// one per transport (pattern and playback) per wrap that was processed
	assert.Equal(t, 2, loops)

	require.NoError(t, e.StopPlayback(a, id))
	_, err = e.ProcessBlock()
	require.NoError(t, err)
	_, recalls = drain(e)
	cancels := 0
	for _, r := range recalls {
		if r.Kind == tactus.RecallEventCancel {
			cancels++
		}
	}
	assert.Equal(t, 2, cancels)
	assert.Empty(t, a.RuntimeRecalls(id))
}

func TestEngineResizeTask(t *testing.T) {
	e := engine.New(testConfig(), nil)
	defer e.Close()
	a := newDrum(t)
	require.NoError(t, e.AddAudio(a))
	require.NoError(t, e.ResizePads(a, tactus.Input, 10))
	assert.Equal(t, 8, a.Pads(tactus.Input), "resizes wait for the block boundary")
	_, err := e.ProcessBlock()
	require.NoError(t, err)
	assert.Equal(t, 10, a.Pads(tactus.Input))
}

func TestEngineRunAndClose(t *testing.T) {
	e := engine.New(testConfig(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := e.Run(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Greater(t, e.Clock().Offset(), uint64(0))
	<-e.Broker().Finished
	require.NoError(t, e.Close())
	_, err = e.ProcessBlock()
	assert.ErrorIs(t, err, engine.ErrNotRunning)
	assert.ErrorIs(t, e.Submit(engine.FuncTask(func() error { return nil })), engine.ErrNotRunning)
}

func TestEngineFollowsLoopPorts(t *testing.T) {
	cfg := testConfig()
	cfg.Loop = false
	e := engine.New(cfg, nil)
	defer e.Close()
	a := newDrum(t)
	require.NoError(t, e.AddAudio(a))

	r := a.FindRecallContainer(fx.Pattern, false).RecallAudio()
	require.NoError(t, r.FindPort("./loop-start[0]").SafeWrite(tactus.NumberValue(tactus.PortUint64, 0)))
	require.NoError(t, r.FindPort("./loop-end[0]").SafeWrite(tactus.NumberValue(tactus.PortUint64, 32)))
	require.NoError(t, r.FindPort("./loop[0]").SafeWrite(tactus.NumberValue(tactus.PortBool, 1)))
	on, _, _ := e.Clock().Loop()
	assert.False(t, on, "loop changes wait for the block boundary")

	_, err := e.StartPlayback(a, false)
	require.NoError(t, err)
	_, err = e.Render(100 * 10)
	require.NoError(t, err)
	on, start, end := e.Clock().Loop()
	assert.True(t, on)
	assert.Equal(t, uint64(0), start)
	assert.Equal(t, uint64(32), end)
	assert.Less(t, e.Clock().Offset(), uint64(32))

	require.NoError(t, r.FindPort("./loop[0]").SafeWrite(tactus.NumberValue(tactus.PortBool, 0)))
	_, err = e.Render(40 * 10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, e.Clock().Offset(), uint64(40))
}
