package tactus

import (
	"fmt"
	"sync"
)

type (
	// ChannelType is the direction of a Channel.
	ChannelType int

	// Channel is one (pad, audio channel) cell of an Audio. It owns its
	// recycling, its pattern and its play and recall lists. The audio
	// reference is non-owning and fixed at construction.
	Channel struct {
		Type ChannelType

		audio *Audio

		mu           sync.RWMutex
		pad          int
		audioChannel int
		line         int
		samplerate   int // 0 inherits from the audio
		bufferSize   int
		format       *SampleFormat
		pattern      *Pattern
		recycling    *Recycling
		play         []*Recall
		recall       []*Recall
	}
)

const (
	Input ChannelType = iota
	Output
)

func (t ChannelType) String() string {
	switch t {
	case Input:
		return "input"
	case Output:
		return "output"
	}
	return fmt.Sprintf("ChannelType(%d)", int(t))
}

func newChannel(a *Audio, t ChannelType, pad, audioChannel int) *Channel {
	ch := &Channel{Type: t, audio: a, pad: pad, audioChannel: audioChannel}
	ch.recycling = NewRecycling(ch)
	if a != nil && a.Flags&FlagSequencer != 0 {
		ch.pattern = NewPattern(a.BankDim[0], a.BankDim[1], a.BankDim[2])
	}
	return ch
}

func (ch *Channel) Audio() *Audio {
	return ch.audio
}

func (ch *Channel) Pad() int {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.pad
}

func (ch *Channel) AudioChannel() int {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.audioChannel
}

// Line is the position of the channel in its direction's channel list:
// pad*audioChannels + audioChannel. It changes when the audio channel count
// changes; the channel's identity does not.
func (ch *Channel) Line() int {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.line
}

func (ch *Channel) Samplerate() int {
	ch.mu.RLock()
	sr := ch.samplerate
	ch.mu.RUnlock()
	if sr == 0 && ch.audio != nil {
		return ch.audio.Samplerate
	}
	return sr
}

func (ch *Channel) BufferSize() int {
	ch.mu.RLock()
	bs := ch.bufferSize
	ch.mu.RUnlock()
	if bs == 0 && ch.audio != nil {
		return ch.audio.BufferSize
	}
	return bs
}

func (ch *Channel) Format() SampleFormat {
	ch.mu.RLock()
	f := ch.format
	ch.mu.RUnlock()
	if f == nil {
		if ch.audio != nil {
			return ch.audio.Format
		}
		return FormatFloat
	}
	return *f
}

// SetFormat overrides the audio's samplerate, buffer size and sample format
// for this channel. Zero samplerate or buffer size keeps inheriting.
func (ch *Channel) SetFormat(samplerate, bufferSize int, format SampleFormat) {
	ch.mu.Lock()
	ch.samplerate = samplerate
	ch.bufferSize = bufferSize
	ch.format = &format
	ch.mu.Unlock()
}

// Pattern returns the step grid, or nil if the audio is not a sequencer.
func (ch *Channel) Pattern() *Pattern {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.pattern
}

func (ch *Channel) Recycling() *Recycling {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.recycling
}

// AddRecall appends r to the play or recall list and binds r to the
// channel.
func (ch *Channel) AddRecall(r *Recall, play bool) {
	ch.InsertRecall(r, play, -1)
}

// InsertRecall inserts r at position of the play or recall list; a
// negative or too large position appends.
func (ch *Channel) InsertRecall(r *Recall, play bool, position int) {
	ch.mu.Lock()
	if play {
		ch.play = insertRecall(ch.play, r, position)
	} else {
		ch.recall = insertRecall(ch.recall, r, position)
	}
	ch.mu.Unlock()
	r.BindChannel(ch)
	r.setOwner(ch, play)
}

// RemoveRecall drops r from both lists. It does not change r's state.
func (ch *Channel) RemoveRecall(r *Recall) {
	ch.removeRecall(r)
	r.setOwner(nil, r.IsPlay())
}

func (ch *Channel) removeRecall(r *Recall) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.play = removeRecall(ch.play, r)
	ch.recall = removeRecall(ch.recall, r)
}

// Recalls returns a snapshot of the play or recall list.
func (ch *Channel) Recalls(play bool) []*Recall {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	if play {
		return append([]*Recall(nil), ch.play...)
	}
	return append([]*Recall(nil), ch.recall...)
}

// FindRecall returns the recalls of the list named name. With templates
// set only templates are returned, otherwise only runtime recalls.
func (ch *Channel) FindRecall(name string, play, templates bool) []*Recall {
	var ret []*Recall
	for _, r := range ch.Recalls(play) {
		if r.Name == name && r.IsTemplate() == templates {
			ret = append(ret, r)
		}
	}
	return ret
}

func (ch *Channel) String() string {
	return fmt.Sprintf("%s[pad %d, ac %d]", ch.Type, ch.Pad(), ch.AudioChannel())
}

// teardown cancels and removes every recall of the channel, templates
// included, and drops the runtime audio signals. It is used when the
// channel is removed by a shrinking resize.
func (ch *Channel) teardown() {
	for _, play := range []bool{true, false} {
		for _, r := range ch.Recalls(play) {
			r.Cancel()
			r.Remove()
		}
	}
	rc := ch.Recycling()
	for _, s := range rc.AudioSignals() {
		if !s.IsTemplate() {
			rc.RemoveAudioSignal(s)
		}
	}
}
