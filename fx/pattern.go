package fx

import (
	"math"

	"github.com/tactus-audio/tactus"
)

// PatternChannelRun plays the pattern grid of its channel. On every block it
// computes the current step from the note offset; entering a set step emits
// a note-on and spawns a runtime copy of the channel's template signal,
// entering an unset step after a set one emits a note-off.
type PatternChannelRun struct {
	channelRun
	lastStep int
	noteOn   bool
	key      byte
}

func newPatternChannelRun() tactus.Behavior { return &PatternChannelRun{lastStep: -1} }

func (p *PatternChannelRun) Duplicate() tactus.Behavior { return newPatternChannelRun() }

func (p *PatternChannelRun) Connect(r *tactus.Recall) error {
	if !r.IsTemplate() {
		p.bind(r)
	}
	return nil
}

func (p *PatternChannelRun) RunInit(r *tactus.Recall) error {
	releaseSignals(r)
	return nil
}

func (p *PatternChannelRun) Run(r *tactus.Recall, ctx *tactus.RunContext) {
	p.OnTick(r, ctx)
}

// Step returns the pattern step for offset: floor(offset/delay) mod length.
func Step(offset uint64, delay float64, length int) int {
	if delay <= 0 || length <= 0 {
		return 0
	}
	return int(uint64(math.Floor(float64(offset)/delay)) % uint64(length))
}

// OnTick evaluates the pattern at ctx.NoteOffset.
func (p *PatternChannelRun) OnTick(r *tactus.Recall, ctx *tactus.RunContext) {
	ch := r.Channel()
	if ch == nil || ctx.Delay <= 0 {
		return
	}
	pat := ch.Pattern()
	if pat == nil {
		return
	}
	if ctx.Looped || ctx.Sought {
		if p.noteOn {
			ctx.EmitNote(noteEvent(r, ctx, false, p.key, 0))
			p.noteOn = false
		}
		p.lastStep = -1
	}
	_, _, steps := pat.Dim()
	length := min(int(number(p.audioRun, "./length[0]", 16)), steps)
	step := Step(ctx.NoteOffset, ctx.Delay, length)
	if step == p.lastStep {
		return
	}
	p.lastStep = step
	bank0 := int(number(p.audioRun, "./bank-index-0[0]", 0))
	bank1 := int(number(p.audioRun, "./bank-index-1[0]", 0))
	if !pat.Get(bank0, bank1, step) {
		if p.noteOn {
			ctx.EmitNote(noteEvent(r, ctx, false, p.key, 0))
			p.noteOn = false
		}
		return
	}
	p.key = byte(min(number(p.config, "./key[0]", 60)+float64(ch.Pad()), 127))
	velocity := byte(min(number(p.config, "./velocity[0]", 100), 127))
	ctx.EmitNote(noteEvent(r, ctx, true, p.key, velocity))
	p.noteOn = true
	spawn(r, ctx.NoteOffset)
}
