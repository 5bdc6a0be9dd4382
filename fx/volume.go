package fx

import (
	"github.com/tactus-audio/tactus"
	"github.com/viterin/vek/vek32"
)

// VolumeChannelRun scales signal blocks by the volume port of its config,
// or silences them while muted.
type VolumeChannelRun struct {
	channelRun
}

func newVolumeChannelRun() tactus.Behavior { return &VolumeChannelRun{} }

func (v *VolumeChannelRun) Duplicate() tactus.Behavior { return newVolumeChannelRun() }

func (v *VolumeChannelRun) Connect(r *tactus.Recall) error {
	if !r.IsTemplate() {
		v.bind(r)
	}
	return nil
}

func (v *VolumeChannelRun) Process(r *tactus.Recall, ctx *tactus.RunContext, s *tactus.AudioSignal, block []float32, frame int) {
	if number(v.config, "./muted[0]", 0) != 0 {
		clear(block)
		return
	}
	if g := float32(number(v.config, "./volume[0]", 1)); g != 1 {
		vek32.MulNumber_Inplace(block, g)
	}
}
