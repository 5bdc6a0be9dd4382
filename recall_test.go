package tactus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tactus-audio/tactus"
)

type counter struct {
	inits, runs int
}

func (c *counter) Duplicate() tactus.Behavior             { return &counter{} }
func (c *counter) Run(*tactus.Recall, *tactus.RunContext) { c.runs++ }

func (c *counter) RunInit(*tactus.Recall) error {
	c.inits++
	return nil
}

func newTemplate(t *testing.T) *tactus.Recall {
	t.Helper()
	r := tactus.NewTemplate("ags-fx-volume", tactus.LevelChannelRun, &counter{})
	require.NoError(t, r.AddPort(tactus.NewPort("ags-fx-volume", "./volume[0]", "1/1", tactus.FloatValue(1))))
	r.AddChild(tactus.NewTemplate("ags-fx-volume", tactus.LevelRecycling, &counter{}))
	return r
}

func TestDuplicateCreatesIndependentRuntime(t *testing.T) {
	tmpl := newTemplate(t)
	id := tactus.NewRecallID()
	r, err := tmpl.Duplicate(id)
	require.NoError(t, err)

	assert.Equal(t, tactus.RecallStateInitialized, r.State())
	assert.False(t, r.IsTemplate())
	assert.Equal(t, id, r.ID())
	assert.Same(t, tmpl, r.Template())
	require.Len(t, r.Children(), 1)
	assert.Equal(t, id, r.Children()[0].ID())
	assert.NotSame(t, tmpl.Children()[0], r.Children()[0])

	require.NotSame(t, tmpl.FindPort("./volume[0]"), r.FindPort("./volume[0]"))
	require.NoError(t, r.FindPort("./volume[0]").SafeWrite(tactus.FloatValue(0.5)))
	assert.InDelta(t, 1, tmpl.FindPort("./volume[0]").Number(), 1e-9)
	assert.NotSame(t, tmpl.Behavior(), r.Behavior())

	_, err = r.Duplicate(tactus.NewRecallID())
	assert.ErrorIs(t, err, tactus.ErrNotTemplate)
}

func TestRecallLifecycle(t *testing.T) {
	r, err := newTemplate(t).Duplicate(tactus.NewRecallID())
	require.NoError(t, err)
	done := 0
	r.OnDone(func(*tactus.Recall) { done++ })

	require.NoError(t, r.RunInit())
	require.NoError(t, r.RunInit())
	assert.Equal(t, tactus.RecallStateRunning, r.State())
	assert.Equal(t, 1, r.Behavior().(*counter).inits)
	assert.ErrorIs(t, r.Remove(), tactus.ErrInvalidState)

	r.Run(&tactus.RunContext{})
	assert.Equal(t, 1, r.Behavior().(*counter).runs)
	assert.Equal(t, 1, r.Children()[0].Behavior().(*counter).runs)

	child := r.Children()[0]
	r.Done()
	r.Done()
	assert.Equal(t, 1, done)
	assert.Equal(t, tactus.RecallStateDone, r.State())
	assert.Equal(t, tactus.RecallStateCancelled, child.State())
	r.Run(&tactus.RunContext{})
	assert.Equal(t, 1, r.Behavior().(*counter).runs, "terminated recalls do not run")

	require.NoError(t, r.Remove())
	assert.Equal(t, tactus.RecallStateRemoved, r.State())
	assert.Equal(t, tactus.RecallStateRemoved, child.State())
	assert.Empty(t, r.Children())
	assert.NoError(t, r.Remove())
}

func TestTemplateCannotRun(t *testing.T) {
	tmpl := newTemplate(t)
	assert.ErrorIs(t, tmpl.RunInit(), tactus.ErrInvalidState)
	tmpl.Run(&tactus.RunContext{})
	assert.Zero(t, tmpl.Behavior().(*counter).runs)
}

func TestDependOnCancels(t *testing.T) {
	id := tactus.NewRecallID()
	dep := tactus.NewRuntime("ags-fx-pattern", tactus.LevelAudio, &counter{}, id)
	r := tactus.NewRuntime("ags-fx-pattern", tactus.LevelChannelRun, &counter{}, id)
	require.NoError(t, dep.RunInit())
	require.NoError(t, r.RunInit())
	r.DependOn(dep)
	cancelled := false
	r.OnCancel(func(*tactus.Recall) { cancelled = true })

	dep.Cancel()
	assert.True(t, cancelled)
	// without a task submitter the cancel and removal happen right away
	assert.Equal(t, tactus.RecallStateRemoved, r.State())
}
