//go:build !cgo

package cmd

import (
	"github.com/tactus-audio/tactus/gomidi"
)

func NewMidiContext() gomidi.Context {
	// with no cgo, we cannot use MIDI, so return a null context
	return gomidi.NullContext{}
}
