package fx

import (
	"math"

	"github.com/tactus-audio/tactus"
)

// NotationChannelRun plays the notes of its audio channel's notation whose
// key equals the channel's pad. Note x0 and x1 are in steps.
type NotationChannelRun struct {
	channelRun
	lastStep uint64
	started  bool
}

func newNotationChannelRun() tactus.Behavior { return &NotationChannelRun{} }

func (n *NotationChannelRun) Duplicate() tactus.Behavior { return newNotationChannelRun() }

func (n *NotationChannelRun) Connect(r *tactus.Recall) error {
	if !r.IsTemplate() {
		n.bind(r)
	}
	return nil
}

func (n *NotationChannelRun) RunInit(r *tactus.Recall) error {
	releaseSignals(r)
	return nil
}

func (n *NotationChannelRun) Run(r *tactus.Recall, ctx *tactus.RunContext) {
	ch := r.Channel()
	if ch == nil || ctx.Delay <= 0 {
		return
	}
	a := ch.Audio()
	if a == nil {
		return
	}
	step := uint64(math.Floor(float64(ctx.NoteOffset) / ctx.Delay))
	if ctx.Looped || ctx.Sought {
		n.started = false
	}
	if n.started && step == n.lastStep {
		return
	}
	n.lastStep, n.started = step, true
	notation := a.Notation(ch.AudioChannel())
	pad := ch.Pad()
	maxLength := uint64(number(n.config, "./max-length[0]", 256))
	for _, note := range notation.NotesEndingAt(step, maxLength) {
		if note.Y == pad {
			ctx.EmitNote(noteEvent(r, ctx, false, byte(min(max(note.Y, 0), 127)), 0))
		}
	}
	for _, note := range notation.FindAt(step) {
		if note.Y != pad {
			continue
		}
		ctx.EmitNote(noteEvent(r, ctx, true, byte(min(max(note.Y, 0), 127)), note.Velocity))
		spawn(r, ctx.NoteOffset)
	}
}
