// Package rtmidi opens system MIDI ports through the rtmidi driver. It
// needs cgo.
package rtmidi

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tactus-audio/tactus/gomidi"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type Context struct {
	driver *rtmididrv.Driver
	opened []interface{ Close() error }
}

// NewContext opens the driver. If that fails the context has no ports.
func NewContext() *Context {
	c := &Context{}
	var err error
	if c.driver, err = rtmididrv.New(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "rtmidi.NewContext",
			"error":    err,
		}).Warn("MIDI driver not available")
		c.driver = nil
	}
	return c
}

func (c *Context) Outputs() []string {
	if c.driver == nil {
		return nil
	}
	outs, err := c.driver.Outs()
	if err != nil {
		return nil
	}
	ret := make([]string, len(outs))
	for i, o := range outs {
		ret[i] = o.String()
	}
	return ret
}

// OpenOutput opens the first output whose name starts with prefix. An
// empty prefix takes the first output.
func (c *Context) OpenOutput(prefix string) (gomidi.Sender, error) {
	if c.driver == nil {
		return nil, fmt.Errorf("output %q: %w", prefix, gomidi.ErrNoPort)
	}
	outs, err := c.driver.Outs()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI outputs: %w", err)
	}
	for _, o := range outs {
		if !strings.HasPrefix(o.String(), prefix) {
			continue
		}
		send, err := midi.SendTo(o)
		if err != nil {
			return nil, fmt.Errorf("opening MIDI output %q: %w", o.String(), err)
		}
		c.opened = append(c.opened, o)
		return send, nil
	}
	return nil, fmt.Errorf("output %q: %w", prefix, gomidi.ErrNoPort)
}

// Listen opens the first input whose name starts with prefix and calls
// handler for every note message it receives.
func (c *Context) Listen(prefix string, handler func(gomidi.NoteInput)) (func(), error) {
	if c.driver == nil {
		return nil, fmt.Errorf("input %q: %w", prefix, gomidi.ErrNoPort)
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI inputs: %w", err)
	}
	var in drivers.In
	for _, i := range ins {
		if strings.HasPrefix(i.String(), prefix) {
			in = i
			break
		}
	}
	if in == nil {
		return nil, fmt.Errorf("input %q: %w", prefix, gomidi.ErrNoPort)
	}
	if err := in.Open(); err != nil {
		return nil, fmt.Errorf("opening MIDI input %q: %w", in.String(), err)
	}
	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		if n, ok := gomidi.Decode(msg); ok {
			handler(n)
		}
	})
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("listening to MIDI input %q: %w", in.String(), err)
	}
	c.opened = append(c.opened, in)
	return stop, nil
}

func (c *Context) Close() error {
	if c.driver == nil {
		return nil
	}
	for _, p := range c.opened {
		p.Close()
	}
	c.opened = nil
	return c.driver.Close()
}
