package fx

import (
	"math"

	"github.com/tactus-audio/tactus"
	"github.com/viterin/vek/vek32"
)

type (
	// PeakChannelRun publishes the peak amplitude of the blocks it sees in
	// the ./peak[0] port of its config, one value per processing block.
	PeakChannelRun struct {
		channelRun
		abs    []float32
		offset uint64
		peak   float32
	}

	// AnalyseChannelRun publishes the RMS level of the last block and a
	// per-frame magnitude buffer through a pointer port. The buffer is
	// swapped every block; holders of an older pointer must copy it if they
	// need it to stay stable.
	AnalyseChannelRun struct {
		channelRun
		front, back []float64
		offset      uint64
		started     bool
		energy      float32
		frames      int
	}
)

func newPeakChannelRun() tactus.Behavior { return &PeakChannelRun{} }

func (p *PeakChannelRun) Duplicate() tactus.Behavior { return newPeakChannelRun() }

func (p *PeakChannelRun) Connect(r *tactus.Recall) error {
	if !r.IsTemplate() {
		p.bind(r)
	}
	return nil
}

func (p *PeakChannelRun) Process(r *tactus.Recall, ctx *tactus.RunContext, s *tactus.AudioSignal, block []float32, frame int) {
	if len(block) == 0 {
		return
	}
	if ctx.NoteOffset != p.offset {
		p.offset, p.peak = ctx.NoteOffset, 0
	}
	if cap(p.abs) < len(block) {
		p.abs = make([]float32, len(block))
	}
	abs := p.abs[:len(block)]
	copy(abs, block)
	vek32.Abs_Inplace(abs)
	p.peak = max(p.peak, vek32.Max(abs))
	write(p.config, "./peak[0]", float64(p.peak))
}

func newAnalyseChannelRun() tactus.Behavior { return &AnalyseChannelRun{} }

func (a *AnalyseChannelRun) Duplicate() tactus.Behavior { return newAnalyseChannelRun() }

func (a *AnalyseChannelRun) Connect(r *tactus.Recall) error {
	if !r.IsTemplate() {
		a.bind(r)
	}
	return nil
}

func (a *AnalyseChannelRun) Process(r *tactus.Recall, ctx *tactus.RunContext, s *tactus.AudioSignal, block []float32, frame int) {
	if len(block) == 0 {
		return
	}
	if len(a.back) < len(block) {
		a.front = make([]float64, len(block))
		a.back = make([]float64, len(block))
	}
	if !a.started || ctx.NoteOffset != a.offset {
		a.offset, a.started, a.energy, a.frames = ctx.NoteOffset, true, 0, 0
		clear(a.back)
	}
	a.energy += vek32.Dot(block, block)
	a.frames = max(a.frames, len(block))
	for i, v := range block {
		a.back[i] += math.Abs(float64(v))
	}
	write(a.config, "./rms[0]", math.Sqrt(float64(a.energy)/float64(a.frames)))
	if a.config != nil {
		if p := a.config.FindPort("./magnitude-buffer[0]"); p != nil {
			p.SafeWrite(tactus.PointerValue(a.back))
		}
	}
	a.front, a.back = a.back, a.front
	copy(a.back, a.front)
}
