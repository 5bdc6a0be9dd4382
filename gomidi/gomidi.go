// Package gomidi bridges the engine's note events to MIDI messages.
package gomidi

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/tactus-audio/tactus"
	"gitlab.com/gomidi/midi/v2"
)

type (
	// Context lists and opens MIDI ports. The rtmidi package implements it
	// when cgo is available; NullContext otherwise.
	Context interface {
		Outputs() []string
		OpenOutput(prefix string) (Sender, error)
		Listen(prefix string, handler func(NoteInput)) (stop func(), err error)
		Close() error
	}

	// Sender sends one MIDI message.
	Sender func(msg midi.Message) error

	// NoteInput is a note message received from a MIDI input.
	NoteInput struct {
		Channel  uint8
		Key      uint8
		Velocity uint8
		On       bool
	}

	// Mapping chooses the MIDI channel of a note event. The zero Mapping
	// sends everything on channel 0.
	Mapping struct {
		Channel uint8
		// PerPad sends pad n on channel (Channel + n) mod 16.
		PerPad bool
	}

	// Forwarder sends the note events read from an engine event stream to
	// a MIDI output. Recall events go to OnRecall, if set.
	Forwarder struct {
		Mapping  Mapping
		Send     Sender
		OnRecall func(tactus.RecallEvent)

		sent, failed atomic.Int64
	}

	// NullContext has no ports. It is used when MIDI is not compiled in.
	NullContext struct{}
)

var ErrNoPort = errors.New("no matching MIDI port")

// Encode converts a note event to a note-on or note-off message.
func (m Mapping) Encode(e tactus.NoteEvent) midi.Message {
	ch := m.Channel
	if m.PerPad {
		ch = uint8((int(m.Channel) + e.Pad) % 16)
	}
	ch &= 0x0f
	key := e.Key & 0x7f
	if e.On && e.Velocity > 0 {
		return midi.NoteOn(ch, key, e.Velocity&0x7f)
	}
	return midi.NoteOff(ch, key)
}

// Decode reads a note-on or note-off message. Any other message is
// reported as false.
func Decode(msg midi.Message) (NoteInput, bool) {
	var n NoteInput
	if msg.GetNoteOn(&n.Channel, &n.Key, &n.Velocity) {
		n.On = n.Velocity > 0
		return n, true
	}
	if msg.GetNoteOff(&n.Channel, &n.Key, &n.Velocity) {
		return n, true
	}
	return NoteInput{}, false
}

// Run forwards events until ctx is done or events is closed. A failed send
// is logged and forwarding goes on.
func (f *Forwarder) Run(ctx context.Context, events <-chan any) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			f.Handle(ev)
		}
	}
}

// Handle forwards a single event.
func (f *Forwarder) Handle(ev any) {
	switch ev := ev.(type) {
	case tactus.NoteEvent:
		if f.Send == nil {
			return
		}
		if err := f.Send(f.Mapping.Encode(ev)); err != nil {
			f.failed.Add(1)
			logrus.WithFields(logrus.Fields{
				"function": "Forwarder.Handle",
				"audio":    ev.Audio,
				"pad":      ev.Pad,
				"error":    err,
			}).Warn("could not send MIDI note")
			return
		}
		f.sent.Add(1)
	case tactus.RecallEvent:
		if f.OnRecall != nil {
			f.OnRecall(ev)
		}
	}
}

// Stats returns the number of sent and failed messages.
func (f *Forwarder) Stats() (sent, failed int) {
	return int(f.sent.Load()), int(f.failed.Load())
}

func (NullContext) Outputs() []string { return nil }
func (NullContext) Close() error      { return nil }

func (NullContext) OpenOutput(prefix string) (Sender, error) {
	return nil, fmt.Errorf("output %q: %w", prefix, ErrNoPort)
}

func (NullContext) Listen(prefix string, _ func(NoteInput)) (func(), error) {
	return nil, fmt.Errorf("input %q: %w", prefix, ErrNoPort)
}
