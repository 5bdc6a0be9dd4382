package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tactus-audio/tactus"
	"github.com/viterin/vek/vek32"
)

type (
	// Engine drives the block loop: once per block it drains the task
	// queue, processes every audio on the worker pool, mixes their output
	// buses into the master bus, writes the master bus to the sink and
	// advances the clock.
	Engine struct {
		cfg    Config
		clock  *Clock
		broker *Broker
		sink   tactus.AudioSink

		mu     sync.Mutex
		audios []*audioState

		commands chan<- workerCommand
		results  <-chan workerResult
		master   [][]float32
		frame    []float32
		closed   bool
	}

	audioState struct {
		audio  *tactus.Audio
		buses  [][]float32
		pooled []*[]float32
		ctx    tactus.RunContext
	}

	workerCommand struct {
		state *audioState
	}

	workerResult struct {
		state *audioState
	}
)

// New creates an engine writing to sink, which may be nil. The worker
// goroutines start right away; Close stops them.
func New(cfg Config, sink tactus.AudioSink) *Engine {
	cfg.Validate()
	e := &Engine{
		cfg:    cfg,
		clock:  NewClock(cfg),
		broker: NewBroker(cfg.TaskQueue),
		sink:   sink,
		master: make([][]float32, cfg.Channels),
		frame:  make([]float32, cfg.Channels*cfg.BufferSize),
	}
	for i := range e.master {
		e.master[i] = make([]float32, cfg.BufferSize)
	}
	e.startWorkers()
	return e
}

func (e *Engine) Config() Config     { return e.cfg }
func (e *Engine) Clock() *Clock      { return e.clock }
func (e *Engine) Broker() *Broker    { return e.broker }
func (e *Engine) Events() <-chan any { return e.broker.Events }

func (e *Engine) startWorkers() {
	cmdChan := make(chan workerCommand, e.cfg.Workers)
	e.commands = cmdChan
	resultsChan := make(chan workerResult, e.cfg.Workers)
	e.results = resultsChan
	for i := 0; i < e.cfg.Workers; i++ {
		go func(commandCh <-chan workerCommand, resultCh chan<- workerResult) {
			for cmd := range commandCh {
				cmd.state.audio.RunBlock(&cmd.state.ctx)
				resultCh <- workerResult{state: cmd.state}
			}
		}(cmdChan, resultsChan)
	}
}

// AddAudio connects a and puts it under the engine's control: its deferred
// work goes to the engine's task queue and it is processed every block.
func (e *Engine) AddAudio(a *tactus.Audio) error {
	if err := a.Connect(); err != nil {
		return err
	}
	a.SetTaskSubmitter(e.broker)
	for _, c := range a.RecallContainers() {
		e.followLoop(c.RecallAudio())
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.audios = append(e.audios, &audioState{audio: a})
	return nil
}

func (e *Engine) Audios() []*tactus.Audio {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := make([]*tactus.Audio, len(e.audios))
	for i, s := range e.audios {
		ret[i] = s.audio
	}
	return ret
}

// Submit queues t for the next block boundary.
func (e *Engine) Submit(t tactus.Task) error {
	return e.broker.Submit(t)
}

// StartPlayback queues the start of a new run of the recall (or play)
// templates of a and returns the run's id.
func (e *Engine) StartPlayback(a *tactus.Audio, play bool) (tactus.RecallID, error) {
	id := tactus.NewRecallID()
	if err := e.Submit(StartPlaybackTask{Engine: e, Audio: a, Play: play, ID: id}); err != nil {
		return tactus.RecallID{}, err
	}
	return id, nil
}

func (e *Engine) StopPlayback(a *tactus.Audio, id tactus.RecallID) error {
	return e.Submit(StopPlaybackTask{Audio: a, ID: id})
}

func (e *Engine) Seek(steps uint64, forward bool) error {
	return e.Submit(SeekTask{Clock: e.clock, Steps: steps, Forward: forward})
}

func (e *Engine) ResizeAudioChannels(a *tactus.Audio, n int) error {
	return e.Submit(ResizeAudioChannelsTask{Audio: a, Count: n})
}

func (e *Engine) ResizePads(a *tactus.Audio, t tactus.ChannelType, n int) error {
	return e.Submit(ResizePadsTask{Audio: a, Type: t, Count: n})
}

// loopPorts are the audio-level transport ports that move the clock's loop
// range when written.
var loopPorts = []string{"./loop[0]", "./loop-start[0]", "./loop-end[0]"}

// followLoop makes every write to a loop port of r queue a SetLoopTask
// with the loop flag and bounds r holds at that moment. The last write
// before a block boundary wins.
func (e *Engine) followLoop(r *tactus.Recall) {
	if r == nil || r.FindPort(loopPorts[0]) == nil {
		return
	}
	listener := func(*tactus.Port, tactus.PortValue) {
		on, start, end := e.clock.Loop()
		t := SetLoopTask{Clock: e.clock, Loop: on, Start: start, End: end}
		if p := r.FindPort(loopPorts[0]); p != nil {
			t.Loop = p.Number() != 0
		}
		if p := r.FindPort(loopPorts[1]); p != nil {
			t.Start = uint64(max(p.Number(), 0))
		}
		if p := r.FindPort(loopPorts[2]); p != nil {
			t.End = uint64(max(p.Number(), 0))
		}
		if err := e.Submit(t); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Engine.followLoop",
				"recall":   r.Name,
				"error":    err,
			}).Warn("loop change dropped")
		}
	}
	for _, specifier := range loopPorts {
		if p := r.FindPort(specifier); p != nil {
			p.OnSafeWrite(listener)
		}
	}
}

// watch forwards the done and cancel signals of runtime recalls to the
// event channel and follows their loop ports.
func (e *Engine) watch(recalls []*tactus.Recall) {
	for _, r := range recalls {
		if r.Level != tactus.LevelAudio {
			continue
		}
		e.followLoop(r)
		forward := func(kind tactus.RecallEventKind) tactus.RecallHandler {
			return func(r *tactus.Recall) {
				e.broker.RecallEvent(tactus.RecallEvent{
					Kind:     kind,
					Name:     r.Name,
					Level:    r.Level,
					RecallID: r.ID(),
					Offset:   e.clock.Offset(),
				})
			}
		}
		r.OnDone(forward(tactus.RecallEventDone))
		r.OnCancel(forward(tactus.RecallEventCancel))
	}
}

func (e *Engine) drainTasks() {
	for {
		select {
		case t := <-e.broker.Tasks:
			if err := t.Run(); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "Engine.drainTasks",
					"error":    err,
				}).Warn("task failed")
			}
		default:
			return
		}
	}
}

// ProcessBlock processes one block, writes it to the sink and returns the
// interleaved master output, valid until the next call.
func (e *Engine) ProcessBlock() ([]float32, error) {
	frame, offset, err := e.process()
	if err != nil {
		return nil, err
	}
	return frame, e.write(frame, offset)
}

func (e *Engine) write(frame []float32, offset uint64) error {
	if e.sink == nil {
		return nil
	}
	if err := e.sink.WriteAudio(frame); err != nil {
		return fmt.Errorf("writing block at offset %d: %w", offset, err)
	}
	return nil
}

func (e *Engine) process() ([]float32, uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, 0, ErrNotRunning
	}
	e.drainTasks()
	offset, wrapped, sought := e.clock.Current()
	delay := e.clock.Delay()
	bpm := e.clock.Bpm()
	var step uint64
	if delay > 0 {
		step = uint64(float64(offset) / delay)
	}
	for _, s := range e.audios {
		s.prepare(e.cfg, e.broker, offset, e.prevOffset(offset, wrapped || sought), delay, bpm, wrapped, sought)
		s.audio.ApplyAutomation(step)
		e.commands <- workerCommand{state: s}
	}
	for range e.audios {
		<-e.results
	}
	for _, m := range e.master {
		clear(m)
	}
	for _, s := range e.audios {
		e.mix(s)
	}
	for ch, m := range e.master {
		for i, v := range m {
			e.frame[i*len(e.master)+ch] = v
		}
	}
	e.clock.Advance()
	return e.frame, offset, nil
}

func (e *Engine) prevOffset(offset uint64, jumped bool) uint64 {
	if offset == 0 || jumped {
		return offset
	}
	return offset - 1
}

// mix adds the buses of s to the master bus. A mono audio goes to every
// master channel; otherwise audio channel i goes to master channel i modulo
// the master channel count.
func (e *Engine) mix(s *audioState) {
	if len(s.buses) == 1 {
		for _, m := range e.master {
			vek32.Add_Inplace(m, s.buses[0])
		}
		return
	}
	for i, b := range s.buses {
		vek32.Add_Inplace(e.master[i%len(e.master)], b)
	}
}

// prepare sets up the run context of s for one block. The output buses
// come from the broker's buffer pool and go back to it when the audio
// channel count changes.
func (s *audioState) prepare(cfg Config, b *Broker, offset, prev uint64, delay, bpm float64, wrapped, sought bool) {
	n := s.audio.AudioChannels()
	if len(s.buses) != n {
		for _, buf := range s.pooled {
			b.PutBuffer(buf)
		}
		s.pooled = s.pooled[:0]
		s.buses = make([][]float32, n)
		for i := range s.buses {
			buf := b.GetBuffer(cfg.BufferSize)
			s.pooled = append(s.pooled, buf)
			s.buses[i] = *buf
		}
	}
	for _, bus := range s.buses {
		clear(bus)
	}
	s.ctx = tactus.RunContext{
		NoteOffset: offset,
		PrevOffset: prev,
		Delay:      delay,
		Bpm:        bpm,
		Samplerate: cfg.Samplerate,
		BufferSize: cfg.BufferSize,
		Looped:     wrapped,
		Sought:     sought,
		Events:     b,
	}
	if delay > 0 {
		s.ctx.DelayCounter = float64(offset) - delay*float64(uint64(float64(offset)/delay))
	}
	s.ctx.SetOutputs(s.buses)
}

// Render processes blocks until frames frames have been produced and
// returns them interleaved.
func (e *Engine) Render(frames int) ([]float32, error) {
	ret := make([]float32, 0, frames*e.cfg.Channels)
	for len(ret) < frames*e.cfg.Channels {
		block, err := e.ProcessBlock()
		if err != nil {
			return ret, err
		}
		ret = append(ret, block...)
	}
	return ret[:frames*e.cfg.Channels], nil
}

// Run processes blocks until ctx is done or a close is requested through
// the broker. Without a sink the blocks are paced by a ticker of one block
// period; with a sink, by the sink. A block taking longer than its period
// is logged, and playback goes on.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.broker.Finished)
	period := time.Duration(float64(time.Second) * float64(e.cfg.BufferSize) / float64(e.cfg.Samplerate))
	var tick <-chan time.Time
	if e.sink == nil {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return ctx.Err()
			case <-e.broker.Close:
				return nil
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-e.broker.Close:
				return nil
			default:
			}
		}
		start := time.Now()
		frame, offset, err := e.process()
		if errors.Is(err, ErrNotRunning) {
			return err
		}
		took := time.Since(start)
		if err := e.write(frame, offset); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Engine.Run",
				"error":    err,
			}).Warn("block failed")
		}
		if took > period {
			logrus.WithFields(logrus.Fields{
				"function": "Engine.Run",
				"took":     took,
				"period":   period,
				"offset":   e.clock.Offset(),
			}).Warn("missed block deadline")
		}
	}
}

// Close stops the workers and closes the sink. Pending tasks are dropped.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.broker.closed.Store(true)
	TrySend(e.broker.Close, struct{}{})
	close(e.commands)
	if e.sink != nil {
		return e.sink.Close()
	}
	return nil
}
