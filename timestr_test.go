package tactus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tactus-audio/tactus"
)

func TestTactToTimeString(t *testing.T) {
	for _, tc := range []struct {
		tact, bpm, delayFactor float64
		want                   string
	}{
		{0, 120, 1, "0000:00.000"},
		{16, 120, 1, "0000:00.500"},
		{1, 120, 1, "0000:00.031"},
		{16 * 120, 120, 1, "0001:00.000"},
		{16 * 121, 120, 1, "0001:00.500"},
		{16, 120, 2, "0000:00.250"},
		{16 * 60 * 61, 60, 1, "0061:00.000"},
	} {
		assert.Equal(t, tc.want, tactus.TactToTimeString(tc.tact, tc.bpm, tc.delayFactor), "%v tacts at %v bpm", tc.tact, tc.bpm)
	}
}

func TestDelayPerTact(t *testing.T) {
	assert.Equal(t, 0.5, tactus.DelayPerTact(120, 1))
	assert.Equal(t, 0.25, tactus.DelayPerTact(120, 2))
	assert.Zero(t, tactus.DelayPerTact(0, 1))
	assert.Zero(t, tactus.DelayPerTact(120, 0))
	assert.InDelta(t, 1.0, tactus.TactToSeconds(32, 120, 1), 1e-12)
}
