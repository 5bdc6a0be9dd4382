package tactus

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

type (
	// RecallFlags is the flag bitset of a Recall.
	RecallFlags uint32

	// RecallLevel tells what a Recall is bound to: the whole audio, one
	// channel, one channel for one playback run, one recycling or one audio
	// signal.
	RecallLevel int

	// RecallState is the lifecycle state of a Recall. Templates stay in
	// RecallStateTemplate until removed; runtime instances go Initialized,
	// Running, then Done or Cancelled, and finally Removed.
	RecallState int

	// Behavior is the concrete effect carried by a Recall. Duplicate must
	// return a value sharing no mutable state with the receiver.
	Behavior interface {
		Duplicate() Behavior
	}

	// Connectable behaviours acquire their subscriptions in Connect and drop
	// them in Disconnect.
	Connectable interface {
		Connect(r *Recall) error
		Disconnect(r *Recall)
	}

	// Runner behaviours process audio. RunInit is called once per runtime
	// instance, Run once per block while the recall is running and visible.
	Runner interface {
		RunInit(r *Recall) error
		Run(r *Recall, ctx *RunContext)
	}

	// Finalizer behaviours release resources when the recall is removed,
	// e.g. the runtime audio signals they created.
	Finalizer interface {
		Finalize(r *Recall)
	}

	// RecallHandler is a done, cancel, loop or remove listener.
	RecallHandler func(r *Recall)

	recallOwner interface {
		removeRecall(r *Recall)
	}

	handlerList struct {
		mu       sync.Mutex
		handlers []RecallHandler
	}

	// Recall is one unit of audio processing state and behaviour. A template
	// recall lives on the template lists of an Audio or Channel and is only
	// ever duplicated; a runtime recall is duplicated from a template for one
	// playback run and processes blocks until it is done or cancelled.
	//
	// A recall exclusively owns its children and its ports (ports may still
	// be shared with external readers). References to the audio, channel,
	// recycling, audio signal and container are non-owning.
	Recall struct {
		Name    string
		Version string
		BuildID string
		Level   RecallLevel

		mu        sync.Mutex
		behavior  Behavior
		flags     RecallFlags
		state     RecallState
		id        RecallID
		play      bool
		ports     []*Port
		container *RecallContainer
		parent    *Recall
		children  []*Recall
		template  *Recall
		audio     *Audio
		channel   *Channel
		recycling *Recycling
		signal    *AudioSignal
		owner     recallOwner

		onDone   handlerList
		onCancel handlerList
		onLoop   handlerList
		onRemove handlerList
	}
)

const (
	RecallFlagTemplate RecallFlags = 1 << iota
	RecallFlagRunInitialized
	RecallFlagDone
	RecallFlagHide
	RecallFlagRemove
	RecallFlagConnected
	RecallFlagCancel
)

const (
	LevelAudio RecallLevel = iota
	LevelChannel
	LevelChannelRun
	LevelRecycling
	LevelAudioSignal
)

const (
	RecallStateTemplate RecallState = iota
	RecallStateInitialized
	RecallStateRunning
	RecallStateDone
	RecallStateCancelled
	RecallStateRemoved
)

var levelNames = [...]string{"audio", "channel", "channel-run", "recycling", "audio-signal"}
var stateNames = [...]string{"template", "initialized", "running", "done", "cancelled", "removed"}

func (l RecallLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("RecallLevel(%d)", int(l))
	}
	return levelNames[l]
}

func (s RecallState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("RecallState(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether s is Done, Cancelled or Removed.
func (s RecallState) Terminal() bool {
	return s == RecallStateDone || s == RecallStateCancelled || s == RecallStateRemoved
}

func (h *handlerList) add(fn RecallHandler) {
	h.mu.Lock()
	h.handlers = append(h.handlers, fn)
	h.mu.Unlock()
}

func (h *handlerList) emit(r *Recall) {
	h.mu.Lock()
	handlers := append([]RecallHandler(nil), h.handlers...)
	h.mu.Unlock()
	for _, fn := range handlers {
		fn(r)
	}
}

// NewTemplate creates a template recall. Templates never process audio.
func NewTemplate(name string, level RecallLevel, b Behavior) *Recall {
	return &Recall{
		Name:     name,
		Level:    level,
		behavior: b,
		flags:    RecallFlagTemplate,
		state:    RecallStateTemplate,
	}
}

// NewRuntime creates a runtime recall that was not duplicated from a
// template, e.g. the per-signal children a recycling-level recall spawns
// while running.
func NewRuntime(name string, level RecallLevel, b Behavior, id RecallID) *Recall {
	return &Recall{
		Name:     name,
		Level:    level,
		behavior: b,
		state:    RecallStateInitialized,
		id:       id,
	}
}

func (r *Recall) Behavior() Behavior {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.behavior
}

func (r *Recall) ID() RecallID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func (r *Recall) Flags() RecallFlags {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flags
}

// HasFlags reports whether all of f are set.
func (r *Recall) HasFlags(f RecallFlags) bool {
	return r.Flags()&f == f
}

func (r *Recall) SetFlags(f RecallFlags) {
	r.mu.Lock()
	r.flags |= f
	r.mu.Unlock()
}

func (r *Recall) State() RecallState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recall) IsTemplate() bool {
	return r.HasFlags(RecallFlagTemplate)
}

// IsPlay reports whether the recall lives on the play lists rather than
// the recall lists of its audio or channel.
func (r *Recall) IsPlay() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.play
}

// Hidden reports whether the recall should be skipped by block processing.
func (r *Recall) Hidden() bool {
	return r.Flags()&RecallFlagHide != 0
}

// AddPort appends a port. Specifiers are unique within one recall.
func (r *Recall) AddPort(p *Port) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.ports {
		if q.Specifier == p.Specifier {
			return fmt.Errorf("recall %s: %s: %w", r.Name, p.Specifier, ErrDuplicateSpecifier)
		}
	}
	r.ports = append(r.ports, p)
	return nil
}

// Ports returns a snapshot of the port list in declaration order.
func (r *Recall) Ports() []*Port {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Port(nil), r.ports...)
}

// FindPort returns the port with the given specifier, or nil.
func (r *Recall) FindPort(specifier string) *Port {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.ports {
		if p.Specifier == specifier {
			return p
		}
	}
	return nil
}

// Container returns the container the recall was created under.
func (r *Recall) Container() *RecallContainer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.container
}

func (r *Recall) SetContainer(c *RecallContainer) {
	r.mu.Lock()
	r.container = c
	r.mu.Unlock()
}

func (r *Recall) Parent() *Recall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.parent
}

func (r *Recall) Children() []*Recall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Recall(nil), r.children...)
}

// Template returns the template this recall was duplicated from, or nil.
func (r *Recall) Template() *Recall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.template
}

func (r *Recall) Audio() *Audio {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.audio
}

func (r *Recall) Channel() *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel
}

func (r *Recall) Recycling() *Recycling {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recycling
}

func (r *Recall) AudioSignal() *AudioSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signal
}

// BindAudio sets the audio the recall works on.
func (r *Recall) BindAudio(a *Audio) {
	r.mu.Lock()
	r.audio = a
	r.mu.Unlock()
}

// BindChannel sets the channel (and its audio) the recall works on.
func (r *Recall) BindChannel(ch *Channel) {
	r.mu.Lock()
	r.channel = ch
	if ch != nil {
		r.audio = ch.Audio()
	}
	r.mu.Unlock()
}

func (r *Recall) BindRecycling(rc *Recycling) {
	r.mu.Lock()
	r.recycling = rc
	r.mu.Unlock()
}

func (r *Recall) BindAudioSignal(s *AudioSignal) {
	r.mu.Lock()
	r.signal = s
	r.mu.Unlock()
}

func (r *Recall) setOwner(o recallOwner, play bool) {
	r.mu.Lock()
	r.owner = o
	r.play = play
	r.mu.Unlock()
}

func (r *Recall) OnDone(fn RecallHandler)   { r.onDone.add(fn) }
func (r *Recall) OnCancel(fn RecallHandler) { r.onCancel.add(fn) }
func (r *Recall) OnLoop(fn RecallHandler)   { r.onLoop.add(fn) }
func (r *Recall) OnRemove(fn RecallHandler) { r.onRemove.add(fn) }

// EmitLoop notifies the loop listeners, e.g. when pattern playback wrapped
// to its loop start.
func (r *Recall) EmitLoop() {
	r.onLoop.emit(r)
}

// Duplicate creates a runtime copy of a template for the run identified by
// id. Ports are copied into new Port instances and children are duplicated
// recursively. Duplicating a runtime recall is an invalid-state error: it is
// logged and nothing is created.
func (r *Recall) Duplicate(id RecallID) (*Recall, error) {
	r.mu.Lock()
	if r.flags&RecallFlagTemplate == 0 {
		r.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "Recall.Duplicate",
			"recall":   r.Name,
			"level":    r.Level.String(),
		}).Warn("refusing to duplicate a recall that is not a template")
		return nil, fmt.Errorf("recall %s: %w", r.Name, ErrNotTemplate)
	}
	ports := append([]*Port(nil), r.ports...)
	children := append([]*Recall(nil), r.children...)
	var b Behavior
	if r.behavior != nil {
		b = r.behavior.Duplicate()
	}
	ret := &Recall{
		Name:      r.Name,
		Version:   r.Version,
		BuildID:   r.BuildID,
		Level:     r.Level,
		behavior:  b,
		state:     RecallStateInitialized,
		id:        id,
		play:      r.play,
		container: r.container,
		template:  r,
		audio:     r.audio,
		channel:   r.channel,
		recycling: r.recycling,
		signal:    r.signal,
	}
	r.mu.Unlock()
	for _, p := range ports {
		ret.ports = append(ret.ports, p.Duplicate())
	}
	for _, c := range children {
		d, err := c.Duplicate(id)
		if err != nil {
			return nil, fmt.Errorf("duplicating child %s: %w", c.Name, err)
		}
		ret.AddChild(d)
	}
	return ret, nil
}

// Connect lets the behaviour subscribe to whatever it needs. It is
// idempotent.
func (r *Recall) Connect() error {
	r.mu.Lock()
	if r.flags&RecallFlagConnected != 0 {
		r.mu.Unlock()
		return nil
	}
	r.flags |= RecallFlagConnected
	b := r.behavior
	r.mu.Unlock()
	if c, ok := b.(Connectable); ok {
		if err := c.Connect(r); err != nil {
			r.mu.Lock()
			r.flags &^= RecallFlagConnected
			r.mu.Unlock()
			return fmt.Errorf("connecting %s: %w", r.Name, err)
		}
	}
	return nil
}

// Disconnect undoes Connect.
func (r *Recall) Disconnect() {
	r.mu.Lock()
	if r.flags&RecallFlagConnected == 0 {
		r.mu.Unlock()
		return
	}
	r.flags &^= RecallFlagConnected
	b := r.behavior
	r.mu.Unlock()
	if c, ok := b.(Connectable); ok {
		c.Disconnect(r)
	}
}

// RunInit prepares a runtime recall and its children for processing and
// moves them to the running state. The RunInitialized flag guards against
// re-entry.
func (r *Recall) RunInit() error {
	r.mu.Lock()
	if r.flags&RecallFlagTemplate != 0 {
		r.mu.Unlock()
		return fmt.Errorf("run init of template %s: %w", r.Name, ErrInvalidState)
	}
	if r.flags&RecallFlagRunInitialized != 0 {
		r.mu.Unlock()
		return nil
	}
	if r.state != RecallStateInitialized {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("run init of %s in state %s: %w", r.Name, state, ErrInvalidState)
	}
	r.flags |= RecallFlagRunInitialized
	b := r.behavior
	children := append([]*Recall(nil), r.children...)
	r.mu.Unlock()

	if err := r.Connect(); err != nil {
		return err
	}
	if rn, ok := b.(Runner); ok {
		if err := rn.RunInit(r); err != nil {
			return fmt.Errorf("run init of %s: %w", r.Name, err)
		}
	}
	r.mu.Lock()
	if r.state == RecallStateInitialized {
		r.state = RecallStateRunning
	}
	r.mu.Unlock()
	for _, c := range children {
		if err := c.RunInit(); err != nil {
			return err
		}
	}
	return nil
}

// Run processes one block: first the recall's own behaviour, then its
// children. Hidden or non-running recalls are skipped.
func (r *Recall) Run(ctx *RunContext) {
	r.mu.Lock()
	if r.state != RecallStateRunning || r.flags&RecallFlagHide != 0 {
		r.mu.Unlock()
		return
	}
	b := r.behavior
	r.mu.Unlock()
	if rn, ok := b.(Runner); ok {
		rn.Run(r, ctx)
	}
	for _, c := range r.Children() {
		c.Run(ctx)
	}
}

// AddChild makes r the exclusive owner of child. A child added to an
// already terminated parent is cancelled right away.
func (r *Recall) AddChild(child *Recall) {
	r.mu.Lock()
	r.children = append(r.children, child)
	terminal := r.state.Terminal()
	r.mu.Unlock()
	child.mu.Lock()
	child.parent = r
	if child.container == nil {
		child.container = r.Container()
	}
	child.mu.Unlock()
	if terminal {
		child.Cancel()
	}
}

// RemoveChild drops child from r without changing its state.
func (r *Recall) RemoveChild(child *Recall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.children {
		if c == child {
			r.children = append(r.children[:i], r.children[i+1:]...)
			return
		}
	}
}

func (r *Recall) cancelChildren() {
	for _, c := range r.Children() {
		c.Cancel()
	}
}

// Done marks a running recall as finished normally. Children are cancelled
// first.
func (r *Recall) Done() {
	r.mu.Lock()
	if r.state != RecallStateRunning && r.state != RecallStateInitialized {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.cancelChildren()
	r.mu.Lock()
	if r.state.Terminal() {
		r.mu.Unlock()
		return
	}
	r.state = RecallStateDone
	r.flags |= RecallFlagDone
	r.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"function": "Recall.Done",
		"recall":   r.Name,
		"level":    r.Level.String(),
	}).Debug("recall done")
	r.onDone.emit(r)
}

// Cancel stops a runtime recall. Children are cancelled first and the Hide
// flag is set so concurrently running code skips it.
func (r *Recall) Cancel() {
	r.mu.Lock()
	if r.state != RecallStateRunning && r.state != RecallStateInitialized {
		r.mu.Unlock()
		return
	}
	r.flags |= RecallFlagHide | RecallFlagCancel
	r.mu.Unlock()
	r.cancelChildren()
	r.mu.Lock()
	if r.state.Terminal() {
		r.mu.Unlock()
		return
	}
	r.state = RecallStateCancelled
	r.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"function": "Recall.Cancel",
		"recall":   r.Name,
		"level":    r.Level.String(),
	}).Debug("recall cancelled")
	r.onCancel.emit(r)
}

// Remove detaches a terminated runtime recall, or a template being torn
// down, from its owner and container. Children are removed first. Removing
// a running recall is an invalid-state error.
func (r *Recall) Remove() error {
	r.mu.Lock()
	switch r.state {
	case RecallStateRemoved:
		r.mu.Unlock()
		return nil
	case RecallStateDone, RecallStateCancelled, RecallStateTemplate:
	default:
		state := r.state
		r.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "Recall.Remove",
			"recall":   r.Name,
			"state":    state.String(),
		}).Warn("refusing to remove a live recall")
		return fmt.Errorf("removing %s in state %s: %w", r.Name, state, ErrInvalidState)
	}
	r.flags |= RecallFlagHide | RecallFlagRemove
	r.state = RecallStateRemoved
	owner := r.owner
	r.owner = nil
	container := r.container
	parent := r.parent
	children := append([]*Recall(nil), r.children...)
	b := r.behavior
	r.mu.Unlock()

	for _, c := range children {
		c.Cancel()
		c.Remove()
	}
	if owner != nil {
		owner.removeRecall(r)
	}
	if container != nil {
		container.Remove(r)
	}
	if parent != nil {
		parent.RemoveChild(r)
	}
	r.Disconnect()
	if f, ok := b.(Finalizer); ok {
		f.Finalize(r)
	}
	r.onRemove.emit(r)
	return nil
}

// RequestCancel hides the recall immediately and defers the actual cancel
// and removal to a task, so it is never executed from inside another
// recall's processing. Without a task submitter, or when the submitter
// rejects the task, the recall is cancelled synchronously and the next
// sweep removes it.
func (r *Recall) RequestCancel() {
	r.SetFlags(RecallFlagHide)
	var submitter TaskSubmitter
	if a := r.Audio(); a != nil {
		submitter = a.TaskSubmitter()
	}
	task := TaskFunc(func() error {
		r.Cancel()
		return r.Remove()
	})
	if submitter == nil {
		task.Run()
		return
	}
	if err := submitter.Submit(task); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Recall.RequestCancel",
			"recall":   r.Name,
			"error":    err,
		}).Warn("could not queue cancel task, cancelling now")
		r.Cancel()
	}
}

// DependOn cancels r when dep is cancelled or removed while r is still
// live.
func (r *Recall) DependOn(dep *Recall) {
	gone := func(*Recall) {
		s := r.State()
		if s == RecallStateRunning || s == RecallStateInitialized {
			r.RequestCancel()
		}
	}
	dep.OnCancel(gone)
	dep.OnRemove(gone)
}
