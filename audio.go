package tactus

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

type (
	// AudioFlags holds the ability and behaviour flags of an Audio.
	AudioFlags uint32

	// ResizeKind tells which dimension of an Audio a resize changed.
	ResizeKind int

	// ResizeEvent describes one applied resize. For ResizeAudioChannels the
	// ChannelType is meaningless: both directions grew or shrank.
	ResizeEvent struct {
		Kind        ResizeKind
		ChannelType ChannelType
		New         int
		Old         int
	}

	// ResizeListener is called after a resize was applied, with the
	// topology lock of the audio still held. Listeners may add recalls and
	// containers but must not resize the audio again.
	ResizeListener func(a *Audio, e ResizeEvent)

	// Audio is the static topology of one machine: audioChannels × pads
	// channels per direction, the audio-level play and recall lists and the
	// recall containers.
	//
	// Resizes are serialized by the topology lock. Channels not affected by a
	// resize keep their identity.
	Audio struct {
		Name       string
		Flags      AudioFlags
		Samplerate int
		BufferSize int
		Format     SampleFormat
		BankDim    [3]int

		// A zero maximum means unbounded.
		MinAudioChannels, MaxAudioChannels int
		MinInputPads, MaxInputPads         int
		MinOutputPads, MaxOutputPads       int

		topoMu sync.Mutex

		mu            sync.RWMutex
		audioChannels int
		inputPads     int
		outputPads    int
		input         [][]*Channel // [pad][audio channel]
		output        [][]*Channel
		play          []*Recall
		recall        []*Recall
		containers    []*RecallContainer
		connected     bool
		submitter     TaskSubmitter
		notation      map[int]*Notation
		automation    []*Automation

		listenerMu sync.Mutex
		listeners  map[int]ResizeListener
		nextID     int
	}
)

const (
	FlagPlayback AudioFlags = 1 << iota
	FlagSequencer
	FlagNotation
	FlagPatternMode
	FlagDefaultsToInput
)

const (
	ResizeAudioChannels ResizeKind = iota
	ResizePads
)

func (k ResizeKind) String() string {
	if k == ResizeAudioChannels {
		return "audio-channels"
	}
	return "pads"
}

// NewAudio creates an audio without channels.
func NewAudio(name string, samplerate, bufferSize int, format SampleFormat, flags AudioFlags) *Audio {
	return &Audio{
		Name:       name,
		Flags:      flags,
		Samplerate: samplerate,
		BufferSize: bufferSize,
		Format:     format,
		BankDim:    [3]int{1, 1, 1},
		listeners:  make(map[int]ResizeListener),
	}
}

func (a *Audio) String() string {
	return a.Name
}

func (a *Audio) AudioChannels() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.audioChannels
}

// Pads returns the pad count of the given direction.
func (a *Audio) Pads(t ChannelType) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if t == Input {
		return a.inputPads
	}
	return a.outputPads
}

// Channel returns the channel at (pad, audioChannel), or nil if out of
// range.
func (a *Audio) Channel(t ChannelType, pad, audioChannel int) *Channel {
	a.mu.RLock()
	defer a.mu.RUnlock()
	grid := a.grid(t)
	if pad < 0 || pad >= len(grid) || audioChannel < 0 || audioChannel >= len(grid[pad]) {
		return nil
	}
	return grid[pad][audioChannel]
}

// Channels returns the channels of a direction in line order.
func (a *Audio) Channels(t ChannelType) []*Channel {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var ret []*Channel
	for _, row := range a.grid(t) {
		ret = append(ret, row...)
	}
	return ret
}

func (a *Audio) grid(t ChannelType) [][]*Channel {
	if t == Input {
		return a.input
	}
	return a.output
}

func (a *Audio) bounds(t ChannelType) (lo, hi int) {
	if t == Input {
		return a.MinInputPads, a.MaxInputPads
	}
	return a.MinOutputPads, a.MaxOutputPads
}

func (a *Audio) clamp(what string, n, lo, hi int) int {
	ret := max(n, lo, 0)
	if hi > 0 {
		ret = min(ret, hi)
	}
	if ret != n {
		logrus.WithFields(logrus.Fields{
			"function":  "Audio.clamp",
			"audio":     a.Name,
			"dimension": what,
			"requested": n,
			"applied":   ret,
		}).Warn("resize request clamped")
	}
	return ret
}

// SetAudioChannels grows or shrinks every pad of both directions to n
// audio channels. Requests outside the audio's bounds are clamped with a
// warning. Growth notifies the resize listeners; shrink cancels and removes
// every recall referencing a dropped channel. It returns the applied count.
func (a *Audio) SetAudioChannels(n int) int {
	a.topoMu.Lock()
	defer a.topoMu.Unlock()
	n = a.clamp("audio channels", n, a.MinAudioChannels, a.MaxAudioChannels)

	a.mu.Lock()
	old := a.audioChannels
	if n == old {
		a.mu.Unlock()
		return n
	}
	var dropped []*Channel
	for _, t := range []ChannelType{Input, Output} {
		grid := a.grid(t)
		for pad, row := range grid {
			if n > old {
				for ac := old; ac < n; ac++ {
					row = append(row, newChannel(a, t, pad, ac))
				}
			} else {
				dropped = append(dropped, row[n:]...)
				clear(row[n:])
				row = row[:n]
			}
			grid[pad] = row
		}
	}
	a.audioChannels = n
	a.relineLocked()
	a.mu.Unlock()

	a.detach(dropped)
	logrus.WithFields(logrus.Fields{
		"function": "Audio.SetAudioChannels",
		"audio":    a.Name,
		"old":      old,
		"new":      n,
	}).Debug("audio channels resized")
	a.notify(ResizeEvent{Kind: ResizeAudioChannels, New: n, Old: old})
	return n
}

// SetPads grows or shrinks the pads of one direction to n. Requests below
// the minimum (the pad floor of sequencers) are clamped upward with a
// warning. It returns the applied count.
func (a *Audio) SetPads(t ChannelType, n int) int {
	a.topoMu.Lock()
	defer a.topoMu.Unlock()
	lo, hi := a.bounds(t)
	n = a.clamp(t.String()+" pads", n, lo, hi)

	a.mu.Lock()
	grid := a.grid(t)
	old := len(grid)
	if n == old {
		a.mu.Unlock()
		return n
	}
	var dropped []*Channel
	if n > old {
		for pad := old; pad < n; pad++ {
			row := make([]*Channel, a.audioChannels)
			for ac := range row {
				row[ac] = newChannel(a, t, pad, ac)
			}
			grid = append(grid, row)
		}
	} else {
		for _, row := range grid[n:] {
			dropped = append(dropped, row...)
		}
		clear(grid[n:])
		grid = grid[:n]
	}
	if t == Input {
		a.input, a.inputPads = grid, n
	} else {
		a.output, a.outputPads = grid, n
	}
	a.relineLocked()
	a.mu.Unlock()

	a.detach(dropped)
	logrus.WithFields(logrus.Fields{
		"function": "Audio.SetPads",
		"audio":    a.Name,
		"type":     t.String(),
		"old":      old,
		"new":      n,
	}).Debug("pads resized")
	a.notify(ResizeEvent{Kind: ResizePads, ChannelType: t, New: n, Old: old})
	return n
}

func (a *Audio) relineLocked() {
	for _, grid := range [][][]*Channel{a.input, a.output} {
		for pad, row := range grid {
			for ac, ch := range row {
				ch.mu.Lock()
				ch.pad, ch.audioChannel, ch.line = pad, ac, pad*a.audioChannels+ac
				ch.mu.Unlock()
			}
		}
	}
}

// detach tears down dropped channels, every audio-level recall bound to
// one of them, and every child recall of a surviving channel that writes
// into the recycling of a dropped channel.
func (a *Audio) detach(dropped []*Channel) {
	if len(dropped) == 0 {
		return
	}
	gone := make(map[*Channel]bool, len(dropped))
	for _, ch := range dropped {
		gone[ch] = true
		ch.teardown()
	}
	bound := func(r *Recall) bool {
		if ch := r.Channel(); ch != nil && gone[ch] {
			return true
		}
		rc := r.Recycling()
		return rc != nil && gone[rc.Channel()]
	}
	var prune func(r *Recall)
	prune = func(r *Recall) {
		for _, c := range r.Children() {
			if bound(c) {
				c.Cancel()
				c.Remove()
				continue
			}
			prune(c)
		}
	}
	for _, play := range []bool{true, false} {
		for _, r := range a.Recalls(play) {
			if bound(r) {
				r.Cancel()
				r.Remove()
				continue
			}
			prune(r)
		}
		for _, t := range []ChannelType{Input, Output} {
			for _, ch := range a.Channels(t) {
				for _, r := range ch.Recalls(play) {
					prune(r)
				}
			}
		}
	}
}

// OnResize registers a resize listener and returns a function removing it.
func (a *Audio) OnResize(l ResizeListener) (cancel func()) {
	a.listenerMu.Lock()
	defer a.listenerMu.Unlock()
	if a.listeners == nil {
		a.listeners = make(map[int]ResizeListener)
	}
	id := a.nextID
	a.nextID++
	a.listeners[id] = l
	return func() {
		a.listenerMu.Lock()
		delete(a.listeners, id)
		a.listenerMu.Unlock()
	}
}

func (a *Audio) notify(e ResizeEvent) {
	a.listenerMu.Lock()
	listeners := make([]ResizeListener, 0, len(a.listeners))
	for id := 0; id < a.nextID; id++ {
		if l, ok := a.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	a.listenerMu.Unlock()
	for _, l := range listeners {
		l(a, e)
	}
}

// AddRecall appends r to the audio's play or recall list and binds it to
// the audio.
func (a *Audio) AddRecall(r *Recall, play bool) {
	a.InsertRecall(r, play, -1)
}

// InsertRecall inserts r at position of the play or recall list; a
// negative or too large position appends.
func (a *Audio) InsertRecall(r *Recall, play bool, position int) {
	a.mu.Lock()
	if play {
		a.play = insertRecall(a.play, r, position)
	} else {
		a.recall = insertRecall(a.recall, r, position)
	}
	a.mu.Unlock()
	r.BindAudio(a)
	r.setOwner(a, play)
}

// RemoveRecall drops r from the audio's lists without changing its state.
func (a *Audio) RemoveRecall(r *Recall) {
	a.removeRecall(r)
	r.setOwner(nil, r.IsPlay())
}

func (a *Audio) removeRecall(r *Recall) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.play = removeRecall(a.play, r)
	a.recall = removeRecall(a.recall, r)
}

// Recalls returns a snapshot of the audio-level play or recall list.
func (a *Audio) Recalls(play bool) []*Recall {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if play {
		return append([]*Recall(nil), a.play...)
	}
	return append([]*Recall(nil), a.recall...)
}

// FindRecall returns the audio-level recalls of a list named name. With
// templates set only templates are returned, otherwise only runtime
// recalls.
func (a *Audio) FindRecall(name string, play, templates bool) []*Recall {
	var ret []*Recall
	for _, r := range a.Recalls(play) {
		if r.Name == name && r.IsTemplate() == templates {
			ret = append(ret, r)
		}
	}
	return ret
}

func (a *Audio) AddRecallContainer(c *RecallContainer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, x := range a.containers {
		if x == c {
			return
		}
	}
	a.containers = append(a.containers, c)
}

func (a *Audio) RemoveRecallContainer(c *RecallContainer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, x := range a.containers {
		if x == c {
			a.containers = append(a.containers[:i], a.containers[i+1:]...)
			return
		}
	}
}

func (a *Audio) RecallContainers() []*RecallContainer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*RecallContainer(nil), a.containers...)
}

// FindRecallContainer returns the first container of the recipe and
// direction, or nil.
func (a *Audio) FindRecallContainer(recipe string, play bool) *RecallContainer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, c := range a.containers {
		if c.Recipe == recipe && c.IsPlay == play {
			return c
		}
	}
	return nil
}

// Connect marks the audio connected and connects every template recall of
// the audio and its channels. Recalls added afterwards are connected by
// whoever creates them.
func (a *Audio) Connect() error {
	a.mu.Lock()
	if a.connected {
		a.mu.Unlock()
		return nil
	}
	a.connected = true
	a.mu.Unlock()
	for _, r := range a.allRecalls() {
		if !r.IsTemplate() {
			continue
		}
		if err := r.Connect(); err != nil {
			return fmt.Errorf("connecting audio %s: %w", a.Name, err)
		}
	}
	return nil
}

func (a *Audio) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.connected
}

// SetTaskSubmitter sets where deferred work such as recall cancellation is
// queued.
func (a *Audio) SetTaskSubmitter(s TaskSubmitter) {
	a.mu.Lock()
	a.submitter = s
	a.mu.Unlock()
}

func (a *Audio) TaskSubmitter() TaskSubmitter {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.submitter
}

// allRecalls lists the audio-level recalls followed by the recalls of every
// input and output channel, play list before recall list.
func (a *Audio) allRecalls() []*Recall {
	ret := a.Recalls(true)
	ret = append(ret, a.Recalls(false)...)
	for _, t := range []ChannelType{Input, Output} {
		for _, ch := range a.Channels(t) {
			ret = append(ret, ch.Recalls(true)...)
			ret = append(ret, ch.Recalls(false)...)
		}
	}
	return ret
}

// RuntimeRecalls returns the top-level runtime recalls of the run id, or of
// every run if id is zero.
func (a *Audio) RuntimeRecalls(id RecallID) []*Recall {
	var ret []*Recall
	for _, r := range a.allRecalls() {
		if r.IsTemplate() {
			continue
		}
		if id.IsZero() || r.ID() == id {
			ret = append(ret, r)
		}
	}
	return ret
}

// RunBlock processes one block: every visible running runtime recall runs,
// audio-level ones first, then the terminated ones are swept.
func (a *Audio) RunBlock(ctx *RunContext) {
	for _, r := range a.RuntimeRecalls(RecallID{}) {
		if r.Hidden() {
			continue
		}
		r.Run(ctx)
	}
	a.Sweep()
}

// Sweep removes the runtime recalls that are done or cancelled and
// returns how many were removed.
func (a *Audio) Sweep() int {
	n := 0
	for _, r := range a.RuntimeRecalls(RecallID{}) {
		switch r.State() {
		case RecallStateDone, RecallStateCancelled:
			if err := r.Remove(); err == nil {
				n++
			}
		}
	}
	return n
}

// Notation returns the notation of an audio channel, creating an empty one
// on first use.
func (a *Audio) Notation(audioChannel int) *Notation {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.notation == nil {
		a.notation = make(map[int]*Notation)
	}
	n, ok := a.notation[audioChannel]
	if !ok {
		n = NewNotation(audioChannel)
		a.notation[audioChannel] = n
	}
	return n
}

// AddAutomation attaches an automation lane. Lanes are matched to ports by
// specifier.
func (a *Audio) AddAutomation(au *Automation) {
	a.mu.Lock()
	a.automation = append(a.automation, au)
	a.mu.Unlock()
}

func (a *Audio) Automations() []*Automation {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*Automation(nil), a.automation...)
}

// ApplyAutomation writes, for every automation lane, the value at step to
// the matching ports of every recall of the audio and its channels. Ports
// whose type cannot hold a number are skipped.
func (a *Audio) ApplyAutomation(step uint64) {
	lanes := a.Automations()
	if len(lanes) == 0 {
		return
	}
	recalls := a.allRecalls()
	for _, lane := range lanes {
		v, ok := lane.ValueAt(step)
		if !ok {
			continue
		}
		for _, r := range recalls {
			p := r.FindPort(lane.Specifier)
			if p == nil {
				continue
			}
			switch t := p.Type(); t {
			case PortPointer, PortObject:
			default:
				p.SafeWrite(NumberValue(t, v))
			}
		}
	}
}
