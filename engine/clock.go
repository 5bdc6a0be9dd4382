package engine

import (
	"math"
	"sync/atomic"
)

// Clock is the global playback position: the note offset in ticks, the
// delay in ticks per pattern step and the loop range. Only the scheduling
// goroutine moves the offset, through Advance and tasks; everyone else
// reads it atomically.
type Clock struct {
	offset    atomic.Uint64
	wrapped   atomic.Bool
	sought    atomic.Bool
	delay     atomic.Uint64
	bpm       atomic.Uint64
	loop      atomic.Bool
	loopStart atomic.Uint64
	loopEnd   atomic.Uint64

	delayFactor  float64
	stepsPerBeat int
	samplerate   int
	bufferSize   int
}

func NewClock(cfg Config) *Clock {
	c := &Clock{
		delayFactor:  cfg.DelayFactor,
		stepsPerBeat: cfg.StepsPerBeat,
		samplerate:   cfg.Samplerate,
		bufferSize:   cfg.BufferSize,
	}
	c.SetBpm(cfg.Bpm)
	c.SetLoop(cfg.Loop, cfg.LoopStart, cfg.LoopEnd)
	return c
}

func (c *Clock) Offset() uint64 { return c.offset.Load() }

func (c *Clock) Delay() float64 { return math.Float64frombits(c.delay.Load()) }

func (c *Clock) Bpm() float64 { return math.Float64frombits(c.bpm.Load()) }

// SetBpm changes the tempo and recomputes the delay.
func (c *Clock) SetBpm(bpm float64) {
	c.bpm.Store(math.Float64bits(bpm))
	c.delay.Store(math.Float64bits(Delay(bpm, c.delayFactor, c.stepsPerBeat, c.samplerate, c.bufferSize)))
}

// SetLoop sets the loop range [start, end) in ticks.
func (c *Clock) SetLoop(on bool, start, end uint64) {
	c.loopStart.Store(start)
	c.loopEnd.Store(end)
	c.loop.Store(on && end > start)
}

func (c *Clock) Loop() (on bool, start, end uint64) {
	return c.loop.Load(), c.loopStart.Load(), c.loopEnd.Load()
}

// Current returns the offset of the block about to be processed and
// whether it was reached by a loop wrap or by a seek.
func (c *Clock) Current() (offset uint64, wrapped, sought bool) {
	return c.offset.Load(), c.wrapped.Load(), c.sought.Load()
}

// Advance moves to the next tick. With loop on, reaching loop end wraps to
// loop start. It returns the new offset and whether it wrapped.
func (c *Clock) Advance() (offset uint64, wrapped bool) {
	next := c.offset.Load() + 1
	if on, start, end := c.Loop(); on && next >= end {
		next, wrapped = start, true
	}
	c.offset.Store(next)
	c.wrapped.Store(wrapped)
	c.sought.Store(false)
	return next, wrapped
}

// Seek moves the offset by steps pattern steps, forward or back. Moving
// back past zero stops at zero.
func (c *Clock) Seek(steps uint64, forward bool) uint64 {
	ticks := uint64(math.Floor(float64(steps) * c.Delay()))
	cur := c.offset.Load()
	next := cur + ticks
	if !forward {
		next = cur - min(ticks, cur)
	}
	c.offset.Store(next)
	c.sought.Store(true)
	return next
}

// Step returns the pattern step at the current offset.
func (c *Clock) Step() uint64 {
	d := c.Delay()
	if d <= 0 {
		return 0
	}
	return uint64(math.Floor(float64(c.Offset()) / d))
}
