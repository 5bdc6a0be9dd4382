package tactus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tactus-audio/tactus"
)

func TestPattern(t *testing.T) {
	p := tactus.NewPattern(4, 12, 64)
	b0, b1, steps := p.Dim()
	assert.Equal(t, [3]int{4, 12, 64}, [3]int{b0, b1, steps})

	assert.True(t, p.Set(3, 11, 63, true))
	assert.False(t, p.Set(4, 0, 0, true))
	assert.False(t, p.Set(0, 0, -1, true))
	assert.True(t, p.Get(3, 11, 63))
	assert.False(t, p.Get(3, 11, 62))
	assert.False(t, p.Get(0, 12, 0))

	assert.True(t, p.Toggle(0, 0, 8))
	p.Set(0, 0, 0, true)
	assert.Equal(t, []int{0, 8}, p.Steps(0, 0))
	assert.False(t, p.Toggle(0, 0, 8))
	p.Clear(0, 0)
	assert.Empty(t, p.Steps(0, 0))
	assert.True(t, p.Get(3, 11, 63), "clearing one bank leaves the others")

	_, _, steps = tactus.NewPattern(0, -1, 0).Dim()
	assert.Equal(t, 1, steps)
}
