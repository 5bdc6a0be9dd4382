package fx

import (
	"github.com/sirupsen/logrus"
	"github.com/tactus-audio/tactus"
)

type (
	// SignalProcessor is implemented by channel-run behaviours that shape
	// the block of a runtime signal before the playback recall of the same
	// channel and run mixes it. frame is the stream position of block[0].
	SignalProcessor interface {
		Process(r *tactus.Recall, ctx *tactus.RunContext, s *tactus.AudioSignal, block []float32, frame int)
	}

	// config is the behaviour of channel-level recalls. They only carry
	// ports; the channel-run recalls of the same container read them.
	config struct{}

	// channelRun holds what every channel-run behaviour resolves when it is
	// connected: the channel-level recall of its container and the
	// audio-level recall of its run. Both references are non-owning.
	channelRun struct {
		config   *tactus.Recall
		audioRun *tactus.Recall
	}
)

func newConfig() tactus.Behavior          { return config{} }
func (config) Duplicate() tactus.Behavior { return config{} }

// bind resolves the config and audio recalls of a runtime channel-run and
// makes r depend on the audio-level run, so r is cancelled when the run
// goes away.
func (c *channelRun) bind(r *tactus.Recall) {
	ch := r.Channel()
	cont := r.Container()
	if ch == nil || cont == nil {
		logrus.WithFields(logrus.Fields{
			"function": "channelRun.bind",
			"recall":   r.Name,
		}).Debug("channel-run without channel or container")
		return
	}
	c.config = cont.FindChannel(ch)
	c.audioRun = cont.RecallAudio()
	if run := findAudioRun(r); run != nil {
		c.audioRun = run
		r.DependOn(run)
	}
}

func (c *channelRun) Disconnect(*tactus.Recall) {}

// findAudioRun returns the runtime audio-level recall sharing r's
// container and run id, or nil.
func findAudioRun(r *tactus.Recall) *tactus.Recall {
	a := r.Audio()
	if a == nil {
		return nil
	}
	id := r.ID()
	cont := r.Container()
	for _, x := range a.Recalls(r.IsPlay()) {
		if !x.IsTemplate() && x.ID() == id && x.Container() == cont {
			return x
		}
	}
	return nil
}

// number reads a numeric port of r, or def if r or the port is missing.
func number(r *tactus.Recall, specifier string, def float64) float64 {
	if r == nil {
		return def
	}
	p := r.FindPort(specifier)
	if p == nil {
		return def
	}
	return p.Number()
}

// write stores a numeric value in a port of r, converted to the port's
// type. Missing ports are ignored.
func write(r *tactus.Recall, specifier string, v float64) {
	if r == nil {
		return
	}
	if p := r.FindPort(specifier); p != nil {
		p.SafeWrite(tactus.NumberValue(p.Type(), v))
	}
}

// processors returns the signal processors running for the same channel
// and run as r, in list order.
func processors(r *tactus.Recall) []processorRecall {
	ch := r.Channel()
	if ch == nil {
		return nil
	}
	id := r.ID()
	var ret []processorRecall
	for _, x := range ch.Recalls(r.IsPlay()) {
		if x == r || x.IsTemplate() || x.ID() != id || x.Hidden() || x.State() != tactus.RecallStateRunning {
			continue
		}
		if p, ok := x.Behavior().(SignalProcessor); ok {
			ret = append(ret, processorRecall{x, p})
		}
	}
	return ret
}

type processorRecall struct {
	recall *tactus.Recall
	SignalProcessor
}

// spawn adds a runtime copy of the channel's template signal for the run of
// r, attacked at offset. It returns nil if the channel has no template.
func spawn(r *tactus.Recall, offset uint64) *tactus.AudioSignal {
	ch := r.Channel()
	if ch == nil {
		return nil
	}
	rc := ch.Recycling()
	t := rc.Template()
	if t == nil {
		return nil
	}
	s, err := t.SpawnRuntime(r.ID())
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "fx.spawn",
			"channel":  ch.String(),
			"error":    err,
		}).Warn("could not spawn runtime signal")
		return nil
	}
	s.SetNoteOffset(offset)
	if err := rc.AddAudioSignal(s); err != nil {
		return nil
	}
	return s
}

// releaseSignals removes the runtime signals of r's run from its channel
// as soon as r is done or cancelled.
func releaseSignals(r *tactus.Recall) {
	ch := r.Channel()
	if ch == nil {
		return
	}
	rc := ch.Recycling()
	id := r.ID()
	release := func(*tactus.Recall) { rc.RemoveByRecallID(id) }
	r.OnDone(release)
	r.OnCancel(release)
}

func noteEvent(r *tactus.Recall, ctx *tactus.RunContext, on bool, key, velocity byte) tactus.NoteEvent {
	ch := r.Channel()
	e := tactus.NoteEvent{
		On:       on,
		Key:      key,
		Velocity: velocity,
		Offset:   ctx.NoteOffset,
		RecallID: r.ID(),
	}
	if ch != nil {
		e.Line, e.Pad, e.AudioChannel = ch.Line(), ch.Pad(), ch.AudioChannel()
		if a := ch.Audio(); a != nil {
			e.Audio = a.Name
		}
	}
	return e
}
