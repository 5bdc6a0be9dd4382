package oto

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"
	"github.com/tactus-audio/tactus"
)

type (
	// OtoContext is a soundcard opened through oto. Samples are written as
	// interleaved 16-bit little endian.
	OtoContext struct {
		context    *oto.Context
		samplerate int
		channels   int
	}

	// OtoOutput pushes blocks into an oto player. oto pulls from an
	// io.Reader, so WriteAudio feeds one end of a pipe the player reads
	// from; a write blocks until the device has consumed the previous data.
	OtoOutput struct {
		player    *oto.Player
		writer    *io.PipeWriter
		tmpBuffer []byte
		closeOnce sync.Once
	}
)

const otoBufferSize = 8192

// NewContext opens the default output device.
func NewContext(samplerate, channels int) (*OtoContext, error) {
	op := &oto.NewContextOptions{
		SampleRate:   samplerate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}
	context, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	logrus.WithFields(logrus.Fields{
		"function":   "oto.NewContext",
		"samplerate": samplerate,
		"channels":   channels,
	}).Debug("soundcard ready")
	return &OtoContext{context: context, samplerate: samplerate, channels: channels}, nil
}

func (c *OtoContext) Output() tactus.AudioSink {
	r, w := io.Pipe()
	player := c.context.NewPlayer(r)
	player.SetBufferSize(otoBufferSize)
	player.Play()
	return &OtoOutput{player: player, writer: w}
}

// Close suspends the device. oto contexts cannot be reopened within one
// process.
func (c *OtoContext) Close() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// WriteAudio converts the block to 16-bit and hands it to the player.
func (o *OtoOutput) WriteAudio(floatBuffer []float32) error {
	// reuse the capacity of tmpBuffer between calls
	o.tmpBuffer = tactus.FloatBufferTo16BitLE(floatBuffer, o.tmpBuffer[:0])
	if _, err := o.writer.Write(o.tmpBuffer); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

func (o *OtoOutput) Close() error {
	var err error
	o.closeOnce.Do(func() {
		o.writer.Close()
		if e := o.player.Close(); e != nil {
			err = fmt.Errorf("cannot close oto player: %w", e)
		}
	})
	return err
}
