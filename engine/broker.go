package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tactus-audio/tactus"
)

var (
	ErrNotRunning = errors.New("engine is not running")
	ErrQueueFull  = errors.New("task queue full")
)

type (
	// Broker connects the engine to the rest of the program. Tasks flow in
	// through Tasks and are drained by the scheduling goroutine at block
	// boundaries, in submission order. Note and recall events produced while
	// processing flow out through Events; they are dropped, and counted, if
	// nobody keeps up with reading them. The broker also pools the float
	// buffers passed around per block.
	//
	// Closing follows the CloseXXX / FinishedXXX convention: sending to
	// Close never blocks (the capacity is 1, a full channel means closing
	// was already requested) and Finished is closed once the engine loop has
	// returned.
	Broker struct {
		Tasks  chan tactus.Task
		Events chan any

		Close    chan struct{}
		Finished chan struct{}

		closed     atomic.Bool
		dropped    atomic.Uint64
		bufferPool sync.Pool
	}
)

func NewBroker(taskCapacity int) *Broker {
	return &Broker{
		Tasks:      make(chan tactus.Task, taskCapacity),
		Events:     make(chan any, 1024),
		Close:      make(chan struct{}, 1),
		Finished:   make(chan struct{}),
		bufferPool: sync.Pool{New: func() any { ret := make([]float32, 0, 4096); return &ret }},
	}
}

// Submit queues a task for the next block boundary without blocking.
func (b *Broker) Submit(t tactus.Task) error {
	if b.closed.Load() {
		return ErrNotRunning
	}
	if !TrySend(b.Tasks, t) {
		return ErrQueueFull
	}
	return nil
}

func (b *Broker) NoteEvent(e tactus.NoteEvent) {
	if !TrySend(b.Events, any(e)) {
		b.dropped.Add(1)
	}
}

func (b *Broker) RecallEvent(e tactus.RecallEvent) {
	if !TrySend(b.Events, any(e)) {
		b.dropped.Add(1)
	}
}

// Dropped returns the number of events dropped because Events was full.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// GetBuffer returns a zeroed buffer of n samples from the pool. It should
// be returned with PutBuffer.
func (b *Broker) GetBuffer(n int) *[]float32 {
	buf := b.bufferPool.Get().(*[]float32)
	if cap(*buf) < n {
		*buf = make([]float32, n)
	}
	*buf = (*buf)[:n]
	clear(*buf)
	return buf
}

func (b *Broker) PutBuffer(buf *[]float32) {
	*buf = (*buf)[:0]
	b.bufferPool.Put(buf)
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
