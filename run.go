package tactus

import (
	"github.com/google/uuid"
)

type (
	// RecallID identifies one playback run. Every runtime recall and runtime
	// audio signal created for the run carries it; templates carry the zero
	// RecallID.
	RecallID uuid.UUID

	// NoteEvent is a note-on or note-off emitted by a pattern or notation
	// recall during a block. Offset is the note offset (tick) the event
	// happened on.
	NoteEvent struct {
		Audio        string
		Line         int
		Pad          int
		AudioChannel int
		On           bool
		Key          byte
		Velocity     byte
		Offset       uint64
		RecallID     RecallID
	}

	// RecallEventKind tells which lifecycle signal a RecallEvent carries.
	RecallEventKind int

	// RecallEvent forwards the done, cancel and loop signals of runtime
	// recalls to listeners outside the audio loop.
	RecallEvent struct {
		Kind     RecallEventKind
		Name     string
		Level    RecallLevel
		RecallID RecallID
		Offset   uint64
	}

	// EventSink receives the events produced while processing a block. The
	// implementation must not block.
	EventSink interface {
		NoteEvent(NoteEvent)
		RecallEvent(RecallEvent)
	}

	// Task is a unit of deferred work, executed by the scheduling goroutine at
	// a block boundary.
	Task interface {
		Run() error
	}

	// TaskFunc adapts a plain function to a Task.
	TaskFunc func() error

	// TaskSubmitter queues tasks for the next block boundary.
	TaskSubmitter interface {
		Submit(Task) error
	}

	// RunContext is what a runtime recall sees while processing one block.
	// NoteOffset is read once per block by the scheduler and is already
	// wrapped to the loop bounds, so every recall of the block agrees on it.
	RunContext struct {
		NoteOffset    uint64
		PrevOffset    uint64
		Delay         float64 // ticks per tact step
		Bpm           float64
		DelayCounter  float64
		Samplerate    int
		BufferSize    int
		Looped        bool // the offset wrapped to loop start at this block
		Sought        bool // the offset was moved by a seek at this block
		Events        EventSink
		outputs       [][]float32
		audioChannels int
	}
)

const (
	RecallEventDone RecallEventKind = iota
	RecallEventCancel
	RecallEventLoop
)

// NewRecallID returns a random RecallID.
func NewRecallID() RecallID {
	return RecallID(uuid.New())
}

// IsZero reports whether id is the zero RecallID used by templates.
func (id RecallID) IsZero() bool {
	return id == RecallID{}
}

func (id RecallID) String() string {
	return uuid.UUID(id).String()
}

func (f TaskFunc) Run() error {
	return f()
}

func (k RecallEventKind) String() string {
	switch k {
	case RecallEventDone:
		return "done"
	case RecallEventCancel:
		return "cancel"
	case RecallEventLoop:
		return "loop"
	}
	return "unknown"
}

// SetOutputs gives the context one output bus per audio channel. The
// buses are owned by the caller and reused between blocks.
func (c *RunContext) SetOutputs(outputs [][]float32) {
	c.outputs = outputs
	c.audioChannels = len(outputs)
}

// Output returns the output bus of the given audio channel, or nil if the
// context has no such bus.
func (c *RunContext) Output(audioChannel int) []float32 {
	if audioChannel < 0 || audioChannel >= c.audioChannels {
		return nil
	}
	return c.outputs[audioChannel]
}

// Outputs returns all the output buses.
func (c *RunContext) Outputs() [][]float32 {
	return c.outputs
}

// EmitNote forwards a note event to the context's sink, if any.
func (c *RunContext) EmitNote(e NoteEvent) {
	if c != nil && c.Events != nil {
		c.Events.NoteEvent(e)
	}
}

// EmitRecall forwards a recall lifecycle event to the context's sink, if
// any.
func (c *RunContext) EmitRecall(e RecallEvent) {
	if c != nil && c.Events != nil {
		c.Events.RecallEvent(e)
	}
}
