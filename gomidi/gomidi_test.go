package gomidi_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/gomidi"
	"gitlab.com/gomidi/midi/v2"
)

func TestEncodeDecode(t *testing.T) {
	m := gomidi.Mapping{Channel: 2}
	on := m.Encode(tactus.NoteEvent{On: true, Key: 64, Velocity: 100, Pad: 3})
	n, ok := gomidi.Decode(on)
	require.True(t, ok)
	assert.Equal(t, gomidi.NoteInput{Channel: 2, Key: 64, Velocity: 100, On: true}, n)

	off := m.Encode(tactus.NoteEvent{On: false, Key: 64})
	n, ok = gomidi.Decode(off)
	require.True(t, ok)
	assert.False(t, n.On)
	assert.Equal(t, uint8(64), n.Key)

	perPad := gomidi.Mapping{Channel: 14, PerPad: true}
	n, ok = gomidi.Decode(perPad.Encode(tactus.NoteEvent{On: true, Key: 60, Velocity: 1, Pad: 3}))
	require.True(t, ok)
	assert.Equal(t, uint8(1), n.Channel)

	_, ok = gomidi.Decode(midi.ControlChange(0, 7, 100))
	assert.False(t, ok)
}

func TestForwarder(t *testing.T) {
	var got []midi.Message
	var loops int
	f := &gomidi.Forwarder{
		Send: func(msg midi.Message) error {
			if len(got) == 2 {
				return errors.New("port closed")
			}
			got = append(got, msg)
			return nil
		},
		OnRecall: func(e tactus.RecallEvent) {
			if e.Kind == tactus.RecallEventLoop {
				loops++
			}
		},
	}
	events := make(chan any, 8)
	events <- tactus.NoteEvent{On: true, Key: 60, Velocity: 90}
	events <- tactus.RecallEvent{Kind: tactus.RecallEventLoop}
	events <- tactus.NoteEvent{On: false, Key: 60}
	events <- tactus.NoteEvent{On: true, Key: 62, Velocity: 90}
	close(events)
	require.NoError(t, f.Run(context.Background(), events))
	assert.Len(t, got, 2)
	assert.Equal(t, 1, loops)
	sent, failed := f.Stats()
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, failed)
}

func TestNullContext(t *testing.T) {
	var c gomidi.Context = gomidi.NullContext{}
	assert.Empty(t, c.Outputs())
	_, err := c.OpenOutput("")
	assert.ErrorIs(t, err, gomidi.ErrNoPort)
	_, err = c.Listen("", nil)
	assert.ErrorIs(t, err, gomidi.ErrNoPort)
	assert.NoError(t, c.Close())
}
