package tactus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tactus-audio/tactus"
)

func TestNotationBuckets(t *testing.T) {
	n := tactus.NewNotation(0)
	for _, x := range []uint64{5000, 10, 4095, 4096, 0} {
		n.Add(&tactus.Note{X0: x, X1: x + 2, Y: 1})
	}
	assert.Equal(t, 5, n.Len())
	assert.Equal(t, []uint64{0, 4096}, n.Timestamps())

	var ticks []uint64
	for _, note := range n.FindRange(10, 4097) {
		ticks = append(ticks, note.X0)
	}
	assert.Equal(t, []uint64{10, 4095, 4096}, ticks)
	assert.Empty(t, n.FindRange(20, 20))
	require.Len(t, n.FindAt(5000), 1)

	near, ok := n.FindNear(4100)
	require.True(t, ok)
	assert.Equal(t, uint64(4096), near.X0)
	near, ok = n.FindNear(4000)
	require.True(t, ok)
	assert.Equal(t, uint64(4095), near.X0)

	ending := n.NotesEndingAt(4097, 16)
	require.Len(t, ending, 1)
	assert.Equal(t, uint64(4095), ending[0].X0)

	assert.True(t, n.Remove(func(note *tactus.Note) bool { return note.X0 == 5000 }))
	assert.False(t, n.Remove(func(note *tactus.Note) bool { return note.X0 == 5000 }))
	assert.Equal(t, 4, n.Len())

	_, ok = tactus.NewNotation(1).FindNear(0)
	assert.False(t, ok)
}

func TestAutomationValueAt(t *testing.T) {
	a := tactus.NewAutomation("./volume[0]")
	a.Add(&tactus.Acceleration{X: 8, Y: 0.5})
	a.Add(&tactus.Acceleration{X: 2, Y: 1})
	_, ok := a.ValueAt(1)
	assert.False(t, ok)
	v, ok := a.ValueAt(2)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
	v, _ = a.ValueAt(4100)
	assert.Equal(t, 0.5, v)
	_, ok = a.ValueAt(3 * tactus.DefaultTimelineOffset)
	assert.False(t, ok, "lookups only search back one window")
}

func TestTimelineRangesNearTheEnd(t *testing.T) {
	n := tactus.NewNotation(0)
	last := ^uint64(0)
	n.Add(&tactus.Note{X0: last - 1, X1: last, Y: 2})
	n.Add(&tactus.Note{X0: last, X1: last, Y: 3})
	n.Add(&tactus.Note{X0: 7, X1: 9, Y: 1})

	assert.Len(t, n.FindRange(last-4096, last), 1)
	assert.Len(t, n.FindRange(0, last), 2)
	require.Len(t, n.FindAt(last), 1)
	assert.Equal(t, 3, n.FindAt(last)[0].Y)

	a := tactus.NewAutomation("./volume[0]")
	a.Add(&tactus.Acceleration{X: last, Y: 0.5})
	v, ok := a.ValueAt(last)
	require.True(t, ok)
	assert.Equal(t, 0.5, v)
}
