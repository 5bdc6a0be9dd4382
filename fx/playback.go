package fx

import (
	"github.com/tactus-audio/tactus"
	"github.com/viterin/vek/vek32"
)

// PlaybackChannelRun mixes the runtime signals of its channel's run into
// the output bus of the channel's audio channel. Each signal block is first
// passed through the signal processors of the same channel and run.
// Played out signals are removed.
//
// On an audio that neither sequences nor reads notation the run streams
// the channel's template instead: a runtime copy is spawned at run init
// and the run is done once it has played out, unless the audio-level loop
// port is set.
type PlaybackChannelRun struct {
	channelRun
	scratch []float32
	stream  bool
}

func newPlaybackChannelRun() tactus.Behavior { return &PlaybackChannelRun{} }

func (p *PlaybackChannelRun) Duplicate() tactus.Behavior { return newPlaybackChannelRun() }

func (p *PlaybackChannelRun) Connect(r *tactus.Recall) error {
	if !r.IsTemplate() {
		p.bind(r)
	}
	return nil
}

func (p *PlaybackChannelRun) RunInit(r *tactus.Recall) error {
	ch := r.Channel()
	if ch == nil {
		return nil
	}
	releaseSignals(r)
	if a := ch.Audio(); a != nil && a.Flags&(tactus.FlagSequencer|tactus.FlagNotation) == 0 {
		p.stream = true
		spawn(r, 0)
	}
	p.scratch = make([]float32, ch.BufferSize())
	return nil
}

func (p *PlaybackChannelRun) Run(r *tactus.Recall, ctx *tactus.RunContext) {
	ch := r.Channel()
	if ch == nil {
		return
	}
	out := ctx.Output(ch.AudioChannel())
	if out == nil {
		return
	}
	if len(p.scratch) < len(out) {
		p.scratch = make([]float32, len(out))
	}
	gain := float32(number(p.config, "./gain[0]", 1))
	loop := p.stream && number(p.audioRun, "./loop[0]", 0) != 0
	procs := processors(r)
	rc := ch.Recycling()
	signals := rc.RuntimeSignals(r.ID())
	for _, s := range signals {
		block := p.scratch[:len(out)]
		clear(block)
		frame := s.Position()
		n := s.ReadInto(block, 1, loop)
		for _, pr := range procs {
			pr.Process(pr.recall, ctx, s, block[:n], frame)
		}
		if gain != 1 {
			vek32.MulNumber_Inplace(block[:n], gain)
		}
		vek32.Add_Inplace(out[:n], block[:n])
		if s.PlayedOut() {
			rc.RemoveAudioSignal(s)
		}
	}
	if p.stream && len(signals) > 0 && len(rc.RuntimeSignals(r.ID())) == 0 {
		r.Done()
	}
}
