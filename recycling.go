package tactus

import (
	"fmt"
	"sync"
)

// Recycling owns the audio signal chain of one channel: a singly linked
// list that only grows at its tail. At most one of the signals is the
// template.
type Recycling struct {
	mu      sync.RWMutex
	channel *Channel
	first   *AudioSignal
	last    *AudioSignal
}

// NewRecycling creates an empty recycling for ch. The channel reference is
// non-owning.
func NewRecycling(ch *Channel) *Recycling {
	return &Recycling{channel: ch}
}

func (r *Recycling) Channel() *Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

// Template returns the template audio signal, or nil if the channel's
// content has not been loaded yet.
func (r *Recycling) Template() *AudioSignal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for s := r.first; s != nil; s = s.next {
		if s.IsTemplate() {
			return s
		}
	}
	return nil
}

// AddAudioSignal appends s at the tail of the chain.
func (r *Recycling) AddAudioSignal(s *AudioSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.IsTemplate() {
		for x := r.first; x != nil; x = x.next {
			if x.IsTemplate() {
				return fmt.Errorf("adding template signal: %w", ErrTemplateExists)
			}
		}
	}
	s.mu.Lock()
	s.recycling = r
	s.next = nil
	s.mu.Unlock()
	if r.last == nil {
		r.first = s
	} else {
		r.last.mu.Lock()
		r.last.next = s
		r.last.mu.Unlock()
	}
	r.last = s
	return nil
}

// SetTemplate replaces the template signal, or adds one if there is none.
func (r *Recycling) SetTemplate(s *AudioSignal) error {
	if old := r.Template(); old != nil {
		r.RemoveAudioSignal(old)
	}
	s.mu.Lock()
	s.template = true
	s.mu.Unlock()
	return r.AddAudioSignal(s)
}

// RemoveAudioSignal unlinks s from the chain. It reports whether s was
// found.
func (r *Recycling) RemoveAudioSignal(s *AudioSignal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	var prev *AudioSignal
	for x := r.first; x != nil; prev, x = x, x.next {
		if x != s {
			continue
		}
		if prev == nil {
			r.first = x.next
		} else {
			prev.mu.Lock()
			prev.next = x.next
			prev.mu.Unlock()
		}
		if r.last == x {
			r.last = prev
		}
		x.mu.Lock()
		x.next = nil
		x.recycling = nil
		x.mu.Unlock()
		return true
	}
	return false
}

// RemoveByRecallID unlinks every runtime signal of the run id and returns
// how many were removed.
func (r *Recycling) RemoveByRecallID(id RecallID) int {
	n := 0
	for _, s := range r.AudioSignals() {
		if !s.IsTemplate() && s.RecallID() == id && r.RemoveAudioSignal(s) {
			n++
		}
	}
	return n
}

// AudioSignals returns a snapshot of the chain, template included.
func (r *Recycling) AudioSignals() []*AudioSignal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ret []*AudioSignal
	for s := r.first; s != nil; s = s.next {
		ret = append(ret, s)
	}
	return ret
}

// RuntimeSignals returns the runtime signals of the run id.
func (r *Recycling) RuntimeSignals(id RecallID) []*AudioSignal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ret []*AudioSignal
	for s := r.first; s != nil; s = s.next {
		if !s.IsTemplate() && s.RecallID() == id {
			ret = append(ret, s)
		}
	}
	return ret
}
