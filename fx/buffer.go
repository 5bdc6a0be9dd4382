package fx

import (
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/tactus-audio/tactus"
)

type (
	// BufferChannelRun copies the runtime signals of an input channel into
	// the output channel of the same audio channel at the configured output
	// pad. The copying is done by a recycling-level child.
	BufferChannelRun struct {
		channelRun
	}

	// CopyRecycling pairs a source and a destination recycling. For every
	// runtime signal of its run appearing in the source it creates a copy in
	// the destination, shaped by the signal processors of the source
	// channel, and an audio-signal-level CopyAudioSignal child that owns the
	// pair.
	CopyRecycling struct {
		src, dst *tactus.Recycling
		pairs    map[*tactus.AudioSignal]*tactus.Recall
	}

	// CopyAudioSignal owns one copied signal. It is done once its source has
	// been removed or played out, or once the copy has played out, in which
	// case it releases the source too. The copy is removed when the recall is
	// done or cancelled.
	CopyAudioSignal struct {
		src, dst *tactus.AudioSignal
	}
)

func newBufferChannelRun() tactus.Behavior { return &BufferChannelRun{} }

func (b *BufferChannelRun) Duplicate() tactus.Behavior { return newBufferChannelRun() }

func (b *BufferChannelRun) Connect(r *tactus.Recall) error {
	if !r.IsTemplate() {
		b.bind(r)
	}
	return nil
}

func (b *BufferChannelRun) RunInit(r *tactus.Recall) error {
	ch := r.Channel()
	if ch == nil || ch.Type != tactus.Input {
		return nil
	}
	a := ch.Audio()
	pad := int(number(b.config, "./output-pad[0]", 0))
	dst := a.Channel(tactus.Output, pad, ch.AudioChannel())
	if dst == nil {
		logrus.WithFields(logrus.Fields{
			"function": "BufferChannelRun.RunInit",
			"channel":  ch.String(),
			"pad":      pad,
		}).Debug("no output channel to copy into")
		return nil
	}
	child := tactus.NewRuntime(r.Name, tactus.LevelRecycling, newCopyRecycling(ch.Recycling(), dst.Recycling()), r.ID())
	child.BindChannel(ch)
	child.BindRecycling(dst.Recycling())
	r.AddChild(child)
	return child.RunInit()
}

func (b *BufferChannelRun) Run(*tactus.Recall, *tactus.RunContext) {}

func newCopyRecycling(src, dst *tactus.Recycling) *CopyRecycling {
	return &CopyRecycling{src: src, dst: dst, pairs: make(map[*tactus.AudioSignal]*tactus.Recall)}
}

func (c *CopyRecycling) Duplicate() tactus.Behavior { return newCopyRecycling(c.src, c.dst) }

func (c *CopyRecycling) RunInit(*tactus.Recall) error { return nil }

func (c *CopyRecycling) Run(r *tactus.Recall, ctx *tactus.RunContext) {
	id := r.ID()
	live := c.src.RuntimeSignals(id)
	for src, child := range c.pairs {
		if child.State().Terminal() && !child.Hidden() {
			child.RequestCancel()
		}
		if !slices.Contains(live, src) {
			delete(c.pairs, src)
		}
	}
	var procs []processorRecall
	if parent := r.Parent(); parent != nil {
		procs = processors(parent)
	}
	for _, src := range live {
		if _, ok := c.pairs[src]; ok {
			continue
		}
		dst := tactus.NewAudioSignal(src.Samplerate, src.BufferSize, src.Format)
		if err := dst.DuplicateStream(src); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "CopyRecycling.Run",
				"error":    err,
			}).Warn("could not copy signal")
			continue
		}
		dst.SetRecallID(id)
		dst.SetNoteOffset(src.NoteOffset())
		process(ctx, dst, procs)
		if err := c.dst.AddAudioSignal(dst); err != nil {
			continue
		}
		child := tactus.NewRuntime(r.Name, tactus.LevelAudioSignal, &CopyAudioSignal{src: src, dst: dst}, id)
		child.BindChannel(r.Channel())
		child.BindRecycling(c.dst)
		child.BindAudioSignal(dst)
		r.AddChild(child)
		if err := child.RunInit(); err != nil {
			continue
		}
		c.pairs[src] = child
	}
}

// process runs the whole stream of s through the signal processors of the
// channel it was copied from.
func process(ctx *tactus.RunContext, s *tactus.AudioSignal, procs []processorRecall) {
	if len(procs) == 0 {
		return
	}
	block := make([]float32, s.Frames())
	for i := range block {
		block[i] = float32(s.At(i))
	}
	for _, pr := range procs {
		pr.Process(pr.recall, ctx, s, block, 0)
	}
	for i, v := range block {
		s.SetAt(i, float64(v))
	}
}

func (c *CopyAudioSignal) Duplicate() tactus.Behavior { return &CopyAudioSignal{src: c.src, dst: c.dst} }

func (c *CopyAudioSignal) RunInit(r *tactus.Recall) error {
	release := func(*tactus.Recall) {
		if rc := c.dst.Recycling(); rc != nil {
			rc.RemoveAudioSignal(c.dst)
		}
	}
	r.OnDone(release)
	r.OnCancel(release)
	return nil
}

func (c *CopyAudioSignal) Run(r *tactus.Recall, ctx *tactus.RunContext) {
	switch {
	case c.src.Recycling() == nil || c.src.PlayedOut():
		r.Done()
	case c.dst.Recycling() == nil || c.dst.PlayedOut():
		if rc := c.src.Recycling(); rc != nil {
			rc.RemoveAudioSignal(c.src)
		}
		r.Done()
	}
}
