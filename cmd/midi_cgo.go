//go:build cgo

package cmd

import (
	"github.com/tactus-audio/tactus/gomidi"
	"github.com/tactus-audio/tactus/gomidi/rtmidi"
)

func NewMidiContext() gomidi.Context {
	return rtmidi.NewContext()
}
