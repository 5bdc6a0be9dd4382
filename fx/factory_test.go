package fx_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/fx"
)

func TestCreateAddIsIdempotent(t *testing.T) {
	a := newSequencer(t, 4)
	first, err := fx.Create(a, nil, nil, fx.Pattern, nil, 0, 1, 0, 4, -1, fx.FlagAdd)
	require.NoError(t, err)
	// audio singleton + (config, channel-run) per pad, both directions
	assert.Len(t, first, 2*(1+2*4))
	second, err := fx.Create(a, nil, nil, fx.Pattern, nil, 0, 1, 0, 4, -1, fx.FlagAdd)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Len(t, a.RecallContainers(), 2)
	for _, play := range []bool{true, false} {
		c := a.FindRecallContainer(fx.Pattern, play)
		require.NotNil(t, c)
		assert.NotNil(t, c.RecallAudio())
		assert.Len(t, c.RecallChannels(), 4)
		assert.Len(t, c.RecallChannelRuns(), 4)
		assert.Len(t, a.FindRecall(fx.Pattern, play, true), 1)
	}
	for _, ch := range a.Channels(tactus.Input) {
		assert.Len(t, ch.FindRecall(fx.Pattern, false, true), 2)
	}
}

func TestCreateConnectsOnConnectedAudio(t *testing.T) {
	a := newSequencer(t, 1)
	recalls, err := fx.Create(a, nil, nil, fx.Volume, nil, 0, 1, 0, 1, -1, fx.FlagRecall)
	require.NoError(t, err)
	require.Len(t, recalls, 2)
	for _, r := range recalls {
		assert.True(t, r.HasFlags(tactus.RecallFlagConnected), r.Name)
		assert.Equal(t, fx.DefaultFactory.Version, r.Version)
		assert.NotEmpty(t, r.BuildID)
	}
	assert.Nil(t, a.FindRecallContainer(fx.Volume, true))
}

func TestRemapNeedsContainer(t *testing.T) {
	a := newSequencer(t, 2)
	_, err := fx.Create(a, nil, nil, fx.Playback, nil, 0, 1, 0, 2, -1, fx.FlagRemap|fx.FlagRecall)
	if !errors.Is(err, fx.ErrNoContainer) {
		t.Fatalf("remap without container: got %v, want ErrNoContainer", err)
	}
}

func TestRemapCoversGrownPads(t *testing.T) {
	a := newSequencer(t, 2)
	_, err := fx.Create(a, nil, nil, fx.Playback, nil, 0, 1, 0, 2, -1, fx.FlagAdd|fx.FlagRecall)
	require.NoError(t, err)
	c := a.FindRecallContainer(fx.Playback, false)
	audioRecall := c.RecallAudio()
	a.SetPads(tactus.Input, 5)
	created, err := fx.Create(a, nil, nil, fx.Playback, nil, 0, 1, 0, 5, -1, fx.FlagRemap|fx.FlagRecall)
	require.NoError(t, err)
	assert.Len(t, created, 2*3)
	assert.Same(t, audioRecall, c.RecallAudio())
	assert.Len(t, c.RecallChannels(), 5)
	for _, ch := range a.Channels(tactus.Input) {
		assert.NotNil(t, c.FindChannel(ch), ch.String())
	}
}

func TestCreateFilterAndOutputDefault(t *testing.T) {
	a := tactus.NewAudio("panel", 44100, 4, tactus.FormatFloat, tactus.FlagPlayback)
	a.SetAudioChannels(2)
	a.SetPads(tactus.Input, 1)
	a.SetPads(tactus.Output, 1)
	only := func(ch *tactus.Channel) bool { return ch.AudioChannel() == 1 }
	created, err := fx.Create(a, nil, nil, fx.Peak, only, 0, 2, 0, 1, -1, fx.FlagRecall)
	require.NoError(t, err)
	require.Len(t, created, 2)
	for _, r := range created {
		assert.Equal(t, tactus.Output, r.Channel().Type)
		assert.Equal(t, 1, r.Channel().AudioChannel())
	}
}

func TestCreateUnknownRecipe(t *testing.T) {
	a := newSequencer(t, 1)
	_, err := fx.Create(a, nil, nil, "ags-fx-nope", nil, 0, 1, 0, 1, -1, 0)
	assert.ErrorIs(t, err, fx.ErrUnknownRecipe)
}
