package tactus_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tactus-audio/tactus"
)

func TestWav(t *testing.T) {
	buffer := []float32{0, 0.5, -0.5, 1}
	wav, err := tactus.Wav(buffer, 44100, 2, true)
	require.NoError(t, err)
	require.Len(t, wav, 44+2*len(buffer))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint32(36+2*len(buffer)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(44100), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, int16(16383), int16(binary.LittleEndian.Uint16(wav[46:48])))

	float, err := tactus.Wav(buffer, 44100, 2, false)
	require.NoError(t, err)
	require.Len(t, float, 58+4*len(buffer))
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(float[20:22]))
	assert.Equal(t, "fact", string(float[38:42]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(float[46:50]))

	_, err = tactus.Wav(buffer, 44100, 0, true)
	assert.ErrorIs(t, err, tactus.ErrOutOfRange)
}

func TestRawAndFloatTo16Bit(t *testing.T) {
	raw, err := tactus.Raw([]float32{0.25, 2}, false)
	require.NoError(t, err)
	assert.Len(t, raw, 8)

	out := tactus.FloatBufferTo16BitLE([]float32{2, -2, 0}, nil)
	require.Len(t, out, 6)
	assert.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(out[0:2])))
	assert.Equal(t, int16(-32767), int16(binary.LittleEndian.Uint16(out[2:4])))
	assert.Zero(t, binary.LittleEndian.Uint16(out[4:6]))
}
