package tactus_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tactus-audio/tactus"
)

func TestPortTypeMismatchKeepsValue(t *testing.T) {
	p := tactus.NewPort("ags-fx-volume", "./volume[0]", "1/1", tactus.FloatValue(0.5))
	err := p.SafeWrite(tactus.DoubleValue(0.25))
	assert.ErrorIs(t, err, tactus.ErrPortTypeMismatch)
	assert.Equal(t, tactus.FloatValue(0.5), p.SafeRead())
	require.NoError(t, p.SafeWrite(tactus.FloatValue(0.25)))
	assert.InDelta(t, 0.25, p.Number(), 1e-9)
}

func TestPortConcurrentWritesAreNotTorn(t *testing.T) {
	p := tactus.NewPort("", "./sentinel[0]", "", tactus.Int64Value(0))
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				n := int64(w*1000 + i)
				// both fields carry n, so a torn read shows a mismatch
				p.SafeWrite(tactus.PortValue{Type: tactus.PortInt64, Int64: n, Double: float64(n)})
			}
		}(w)
	}
	torn := 0
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				if v := p.SafeRead(); v.Double != float64(v.Int64) {
					torn++
				}
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, torn)
}

func TestPortListeners(t *testing.T) {
	p := tactus.NewPort("", "./bpm[0]", "", tactus.DoubleValue(120))
	var got []float64
	cancel := p.OnSafeWrite(func(port *tactus.Port, v tactus.PortValue) {
		assert.Same(t, p, port)
		got = append(got, v.Double)
	})
	require.NoError(t, p.SafeWrite(tactus.DoubleValue(90)))
	p.SafeWrite(tactus.BoolValue(true))
	cancel()
	require.NoError(t, p.SafeWrite(tactus.DoubleValue(60)))
	assert.Equal(t, []float64{90}, got)
}

func TestPortDuplicateIsIndependent(t *testing.T) {
	p := tactus.NewPort("ags-fx-lfo", "./lfo-wave[0]", "1/1", tactus.Uint64Value(2))
	p.PluginPort = &tactus.PluginPort{Max: 4, ScalePoints: []string{"sine", "square"}}
	q := p.Duplicate()
	require.NotSame(t, p, q)
	require.NoError(t, q.SafeWrite(tactus.Uint64Value(3)))
	q.PluginPort.ScalePoints[0] = "saw"
	assert.Equal(t, uint64(2), p.SafeRead().Uint64)
	assert.Equal(t, "sine", p.PluginPort.ScalePoints[0])
	assert.Equal(t, p.Specifier, q.Specifier)
	assert.Equal(t, tactus.PortUint64, q.Type())
}

func TestNumberValue(t *testing.T) {
	for _, tc := range []struct {
		typ  tactus.PortType
		in   float64
		want float64
	}{
		{tactus.PortBool, 2, 1},
		{tactus.PortInt64, -3.7, -3},
		{tactus.PortUint64, -1, 0},
		{tactus.PortFloat, 0.5, 0.5},
		{tactus.PortDouble, 0.1, 0.1},
		{tactus.PortPointer, 5, 0},
	} {
		v := tactus.NumberValue(tc.typ, tc.in)
		assert.Equal(t, tc.typ, v.Type)
		assert.InDelta(t, tc.want, v.Number(), 1e-6, tc.typ.String())
	}
	typ, err := tactus.ParsePortType("double")
	require.NoError(t, err)
	assert.Equal(t, tactus.PortDouble, typ)
	_, err = tactus.ParsePortType("quad")
	assert.Error(t, err)
}
