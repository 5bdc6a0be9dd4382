package tactus

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Wav encodes interleaved float32 frames as a .wav file, either 16-bit PCM
// or 32-bit IEEE float.
func Wav(buffer []float32, samplerate, channels int, pcm16 bool) ([]byte, error) {
	if channels <= 0 || samplerate <= 0 {
		return nil, fmt.Errorf("wav with %d channels at %d Hz: %w", channels, samplerate, ErrOutOfRange)
	}
	buf := new(bytes.Buffer)
	wavHeader(len(buffer), samplerate, channels, pcm16, buf)
	if err := rawToBuffer(buffer, pcm16, buf); err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	return buf.Bytes(), nil
}

// Raw encodes interleaved float32 frames without a header.
func Raw(buffer []float32, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := rawToBuffer(buffer, pcm16, buf); err != nil {
		return nil, fmt.Errorf("raw: %w", err)
	}
	return buf.Bytes(), nil
}

func rawToBuffer(data []float32, pcm16 bool, buf *bytes.Buffer) error {
	var err error
	if pcm16 {
		int16data := make([]int16, len(data))
		for i, v := range data {
			int16data[i] = int16(ConvertSample(float64(v), FormatS16))
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, data)
	}
	if err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %w", err)
	}
	return nil
}

// wavHeader writes the RIFF header for bufferLength interleaved samples.
func wavHeader(bufferLength, samplerate, channels int, pcm16 bool, buf *bytes.Buffer) {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	var bytesPerSample, chunkSize, fmtChunkSize, waveFormat int
	var factChunk bool
	if pcm16 {
		bytesPerSample = 2
		chunkSize = 36 + bytesPerSample*bufferLength
		fmtChunkSize = 16
		waveFormat = 1 // PCM
	} else {
		bytesPerSample = 4
		chunkSize = 50 + bytesPerSample*bufferLength
		fmtChunkSize = 18
		waveFormat = 3 // IEEE float
		factChunk = true
	}
	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(chunkSize))
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(waveFormat))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(samplerate))
	binary.Write(buf, binary.LittleEndian, uint32(samplerate*channels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(channels*bytesPerSample))            // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))                   // bits per sample
	if fmtChunkSize > 16 {
		binary.Write(buf, binary.LittleEndian, uint16(0)) // size of extension
	}
	if factChunk {
		buf.Write([]byte("fact"))
		binary.Write(buf, binary.LittleEndian, uint32(4))
		binary.Write(buf, binary.LittleEndian, uint32(bufferLength/max(channels, 1))) // frames
	}
	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(bytesPerSample*bufferLength))
}

// FloatBufferTo16BitLE converts interleaved float32 frames to 16-bit little
// endian PCM bytes, appending to out. Values outside [-1, 1] saturate.
func FloatBufferTo16BitLE(buffer []float32, out []byte) []byte {
	for _, v := range buffer {
		var s int16
		switch {
		case v >= 1:
			s = math.MaxInt16
		case v <= -1:
			s = -math.MaxInt16
		default:
			s = int16(v * math.MaxInt16)
		}
		out = append(out, byte(s), byte(s>>8))
	}
	return out
}
