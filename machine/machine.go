package machine

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/fx"
)

type (
	// Machine is an audio together with the recipes it maps onto its
	// channels. MapRecall maps the whole current topology once; afterwards
	// growing the audio maps the recipes over the new range only.
	Machine interface {
		Audio() *tactus.Audio
		MapRecall() error
		InputMapRecall(acStart, padStart int) error
		OutputMapRecall(acStart, padStart int) error
		MappedInputPad() int
		MappedOutputPad() int
		MappedAudioChannel() int
	}

	// Base implements Machine for a list of input and output recipes.
	// Concrete machines embed it and choose the recipes and the audio's
	// flags and bounds.
	Base struct {
		audio         *tactus.Audio
		inputRecipes  []string
		outputRecipes []string

		mu                 sync.Mutex
		mapped             bool
		mappedInputPad     int
		mappedOutputPad    int
		mappedAudioChannel int
		cancel             func()
	}
)

// NewBase wraps a and subscribes to its resizes.
func NewBase(a *tactus.Audio, inputRecipes, outputRecipes []string) *Base {
	b := &Base{audio: a, inputRecipes: inputRecipes, outputRecipes: outputRecipes}
	b.cancel = a.OnResize(b.resized)
	return b
}

func (b *Base) Audio() *tactus.Audio { return b.audio }

func (b *Base) MappedInputPad() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mappedInputPad
}

func (b *Base) MappedOutputPad() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mappedOutputPad
}

func (b *Base) MappedAudioChannel() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mappedAudioChannel
}

// MapRecall creates the recipes' containers and maps them over the whole
// audio. Calling it again does nothing.
func (b *Base) MapRecall() error {
	b.mu.Lock()
	if b.mapped {
		b.mu.Unlock()
		return nil
	}
	b.mapped = true
	b.mu.Unlock()
	if err := b.mapRange(tactus.Input, b.inputRecipes, 0, 0, fx.FlagAdd); err != nil {
		return err
	}
	return b.mapRange(tactus.Output, b.outputRecipes, 0, 0, fx.FlagAdd)
}

// InputMapRecall maps the input recipes over the input channels from
// acStart and padStart on.
func (b *Base) InputMapRecall(acStart, padStart int) error {
	return b.mapRange(tactus.Input, b.inputRecipes, acStart, padStart, fx.FlagRemap)
}

// OutputMapRecall maps the output recipes over the output channels from
// acStart and padStart on.
func (b *Base) OutputMapRecall(acStart, padStart int) error {
	return b.mapRange(tactus.Output, b.outputRecipes, acStart, padStart, fx.FlagRemap)
}

func (b *Base) mapRange(t tactus.ChannelType, recipes []string, acStart, padStart int, mode fx.CreateFlags) error {
	a := b.audio
	acEnd, padEnd := a.AudioChannels(), a.Pads(t)
	typeFlag := fx.FlagInput
	if t == tactus.Output {
		typeFlag = fx.FlagOutput
	}
	for _, recipe := range recipes {
		if _, err := fx.Create(a, nil, nil, recipe, nil, acStart, acEnd, padStart, padEnd, -1, mode|typeFlag); err != nil {
			return fmt.Errorf("mapping %s on %s: %w", recipe, a.Name, err)
		}
	}
	b.mu.Lock()
	if t == tactus.Input {
		b.mappedInputPad = padEnd
	} else {
		b.mappedOutputPad = padEnd
	}
	b.mappedAudioChannel = acEnd
	b.mu.Unlock()
	return nil
}

// resized maps the recipes over what a resize added, and forgets what it
// removed.
func (b *Base) resized(a *tactus.Audio, e tactus.ResizeEvent) {
	b.mu.Lock()
	mapped := b.mapped
	b.mu.Unlock()
	if !mapped {
		return
	}
	var err error
	switch {
	case e.New < e.Old:
		b.mu.Lock()
		if e.Kind == tactus.ResizeAudioChannels {
			b.mappedAudioChannel = min(b.mappedAudioChannel, e.New)
		} else if e.ChannelType == tactus.Input {
			b.mappedInputPad = min(b.mappedInputPad, e.New)
		} else {
			b.mappedOutputPad = min(b.mappedOutputPad, e.New)
		}
		b.mu.Unlock()
	case e.Kind == tactus.ResizeAudioChannels:
		if err = b.InputMapRecall(e.Old, 0); err == nil {
			err = b.OutputMapRecall(e.Old, 0)
		}
	case e.ChannelType == tactus.Input:
		err = b.InputMapRecall(0, e.Old)
	default:
		err = b.OutputMapRecall(0, e.Old)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Base.resized",
			"audio":    a.Name,
			"resize":   e.Kind.String(),
			"error":    err,
		}).Warn("could not map recalls over resized range")
	}
}

// Close stops following the audio's resizes.
func (b *Base) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}
