package fx_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tactus-audio/tactus/fx"
)

func TestEmbeddedRecipesLoad(t *testing.T) {
	names := fx.Recipes()
	assert.ElementsMatch(t, []string{
		fx.Playback, fx.Pattern, fx.Notation, fx.Buffer, fx.Volume,
		fx.Envelope, fx.LFO, fx.Peak, fx.Analyse,
	}, names)
	for _, name := range names {
		r, err := fx.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, r.Name)
		assert.NotEmpty(t, r.Ports.Channel, name)
		if r.NewAudio != nil {
			assert.NotEmpty(t, r.Ports.Audio, name)
		}
		for _, spec := range append(append([]fx.PortSpec(nil), r.Ports.Audio...), r.Ports.Channel...) {
			assert.True(t, strings.HasPrefix(spec.Specifier, "./") && strings.HasSuffix(spec.Specifier, "[0]"), "%s: %q", name, spec.Specifier)
			_, err := spec.Value()
			assert.NoError(t, err, "%s: %s", name, spec.Specifier)
		}
	}
	_, err := fx.Lookup("ags-fx-nothing")
	assert.ErrorIs(t, err, fx.ErrUnknownRecipe)
}

func TestLoopPortsOnTransportRecipes(t *testing.T) {
	for _, name := range []string{fx.Playback, fx.Pattern, fx.Notation} {
		r, err := fx.Lookup(name)
		require.NoError(t, err)
		var specs []string
		for _, spec := range r.Ports.Audio {
			specs = append(specs, spec.Specifier)
		}
		assert.Subset(t, specs, []string{"./bpm[0]", "./loop[0]", "./loop-start[0]", "./loop-end[0]"}, name)
	}
}
