package fx

import "github.com/tactus-audio/tactus"

// transport is the audio-level behaviour of the playback, pattern and
// notation recipes. Each block it publishes bpm, delay and tact through its
// ports, forwards loop wraps, and finishes the run once duration steps
// have elapsed with loop off. A zero duration never finishes.
type transport struct {
	start   uint64
	started bool
}

func newPlaybackAudio() tactus.Behavior { return &transport{} }
func newPatternAudio() tactus.Behavior  { return &transport{} }
func newNotationAudio() tactus.Behavior { return &transport{} }

func (t *transport) Duplicate() tactus.Behavior { return &transport{} }

func (t *transport) RunInit(*tactus.Recall) error { return nil }

func (t *transport) Run(r *tactus.Recall, ctx *tactus.RunContext) {
	if !t.started || ctx.NoteOffset < t.start && !ctx.Looped {
		t.start, t.started = ctx.NoteOffset, true
	}
	write(r, "./bpm[0]", ctx.Bpm)
	write(r, "./delay[0]", ctx.Delay)
	if ctx.Delay > 0 {
		write(r, "./tact[0]", float64(ctx.NoteOffset)/ctx.Delay)
	}
	if ctx.Looped {
		r.EmitLoop()
		ctx.EmitRecall(tactus.RecallEvent{
			Kind:     tactus.RecallEventLoop,
			Name:     r.Name,
			Level:    r.Level,
			RecallID: r.ID(),
			Offset:   ctx.NoteOffset,
		})
	}
	if number(r, "./loop[0]", 0) != 0 {
		return
	}
	duration := number(r, "./duration[0]", 0)
	if duration <= 0 || ctx.Delay <= 0 || ctx.NoteOffset < t.start {
		return
	}
	if float64(ctx.NoteOffset-t.start) >= duration*ctx.Delay {
		r.Done()
	}
}
