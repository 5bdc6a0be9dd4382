package engine

import (
	"fmt"

	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/fx"
)

type (
	ResizeAudioChannelsTask struct {
		Audio *tactus.Audio
		Count int
	}

	ResizePadsTask struct {
		Audio *tactus.Audio
		Type  tactus.ChannelType
		Count int
	}

	// StartPlaybackTask instantiates the run ID of the play or recall
	// templates of Audio.
	StartPlaybackTask struct {
		Engine *Engine
		Audio  *tactus.Audio
		Play   bool
		ID     tactus.RecallID
	}

	// StopPlaybackTask cancels the run ID of Audio, or every run with the
	// zero ID.
	StopPlaybackTask struct {
		Audio *tactus.Audio
		ID    tactus.RecallID
	}

	SeekTask struct {
		Clock   *Clock
		Steps   uint64
		Forward bool
	}

	// CancelRecallTask cancels and removes one runtime recall.
	CancelRecallTask struct {
		Recall *tactus.Recall
	}

	SetBpmTask struct {
		Clock *Clock
		Bpm   float64
	}

	// SetLoopTask moves the clock's loop range, in ticks.
	SetLoopTask struct {
		Clock      *Clock
		Loop       bool
		Start, End uint64
	}

	// FuncTask runs an arbitrary function at a block boundary.
	FuncTask = tactus.TaskFunc
)

func (t ResizeAudioChannelsTask) Run() error {
	t.Audio.SetAudioChannels(t.Count)
	return nil
}

func (t ResizePadsTask) Run() error {
	t.Audio.SetPads(t.Type, t.Count)
	return nil
}

func (t StartPlaybackTask) Run() error {
	recalls, err := fx.Instantiate(t.Audio, t.Play, t.ID)
	if err != nil {
		return fmt.Errorf("starting playback of %s: %w", t.Audio.Name, err)
	}
	if t.Engine != nil {
		t.Engine.watch(recalls)
	}
	return nil
}

func (t StopPlaybackTask) Run() error {
	fx.Cancel(t.Audio, t.ID)
	return nil
}

func (t SeekTask) Run() error {
	t.Clock.Seek(t.Steps, t.Forward)
	return nil
}

func (t CancelRecallTask) Run() error {
	t.Recall.Cancel()
	return t.Recall.Remove()
}

func (t SetBpmTask) Run() error {
	t.Clock.SetBpm(t.Bpm)
	return nil
}

func (t SetLoopTask) Run() error {
	t.Clock.SetLoop(t.Loop, t.Start, t.End)
	return nil
}
