package tactus

import (
	"fmt"
	"sync"
)

// MaxStreamFrames bounds the length of a single stream. Resizing beyond it
// fails with ErrResourceExhausted instead of attempting the allocation.
const MaxStreamFrames = 1 << 26

type (
	// AudioSignal is one buffer stream inside a Recycling. The template
	// signal holds the channel's source waveform; runtime signals are per-run
	// copies created when a note starts and destroyed when the recall that
	// produced them is done or cancelled.
	//
	// The stream has a single writer (the recall owning the runtime signal)
	// and possibly several readers, which take a snapshot with Buffers.
	AudioSignal struct {
		Samplerate int
		BufferSize int
		Format     SampleFormat

		mu         sync.RWMutex
		template   bool
		recallID   RecallID
		stream     []*Buffer
		frames     int
		loopStart  int
		loopEnd    int
		readFrame  int  // playback cursor of runtime signals
		done       bool // played out
		recycling  *Recycling
		next       *AudioSignal
		attackNote uint64
	}
)

// NewAudioSignal creates an empty stream. The format parameters are fixed
// for the lifetime of the signal.
func NewAudioSignal(samplerate, bufferSize int, format SampleFormat) *AudioSignal {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &AudioSignal{Samplerate: samplerate, BufferSize: bufferSize, Format: format}
}

// NewTemplateSignal creates a template signal of the given length.
func NewTemplateSignal(samplerate, bufferSize int, format SampleFormat, frames int) (*AudioSignal, error) {
	s := NewAudioSignal(samplerate, bufferSize, format)
	s.template = true
	if err := s.ResizeStream(frames); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AudioSignal) IsTemplate() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.template
}

func (s *AudioSignal) RecallID() RecallID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recallID
}

func (s *AudioSignal) SetRecallID(id RecallID) {
	s.mu.Lock()
	s.recallID = id
	s.mu.Unlock()
}

// Recycling returns the owning recycling. The reference is non-owning.
func (s *AudioSignal) Recycling() *Recycling {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recycling
}

// Frames returns the length of the stream in frames.
func (s *AudioSignal) Frames() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

func (s *AudioSignal) Loop() (start, end int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loopStart, s.loopEnd
}

// SetLoop sets the loop frame offsets, clamped to the stream.
func (s *AudioSignal) SetLoop(start, end int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start = max(0, min(start, s.frames))
	end = max(start, min(end, s.frames))
	s.loopStart, s.loopEnd = start, end
}

// Buffers returns a snapshot of the buffer queue. The buffers themselves
// are shared, so readers must not write to them.
func (s *AudioSignal) Buffers() []*Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Buffer(nil), s.stream...)
}

// At returns the normalized sample at frame, or 0 outside the stream.
func (s *AudioSignal) At(frame int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if frame < 0 || frame >= s.frames {
		return 0
	}
	return s.stream[frame/s.BufferSize].At(frame % s.BufferSize)
}

// SetAt stores a normalized sample at frame. Writes outside the stream are
// ignored.
func (s *AudioSignal) SetAt(frame int, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frame < 0 || frame >= s.frames {
		return
	}
	s.stream[frame/s.BufferSize].Set(frame%s.BufferSize, v)
}

// ResizeStream grows or shrinks the stream to frames. Samples in the
// overlapping region are kept, added frames are zero. Shrinking clears the
// dropped tail of the last buffer so that growing again yields zeros.
func (s *AudioSignal) ResizeStream(frames int) error {
	if frames < 0 {
		return fmt.Errorf("resize stream to %d frames: %w", frames, ErrOutOfRange)
	}
	if frames > MaxStreamFrames {
		return fmt.Errorf("resize stream to %d frames: %w", frames, ErrResourceExhausted)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	buffers := (frames + s.BufferSize - 1) / s.BufferSize
	for len(s.stream) < buffers {
		s.stream = append(s.stream, NewBuffer(s.Format, s.BufferSize))
	}
	if len(s.stream) > buffers {
		clear(s.stream[buffers:])
		s.stream = s.stream[:buffers]
	}
	if rem := frames % s.BufferSize; rem != 0 && buffers > 0 {
		s.stream[buffers-1].Clear(rem)
	}
	s.frames = frames
	s.loopStart = min(s.loopStart, frames)
	s.loopEnd = min(s.loopEnd, frames)
	s.readFrame = min(s.readFrame, frames)
	return nil
}

// DuplicateStream deep-copies the stream of src into s. Both signals must
// share samplerate, buffer size and format.
func (s *AudioSignal) DuplicateStream(src *AudioSignal) error {
	if s == src {
		return nil
	}
	src.mu.RLock()
	if src.Samplerate != s.Samplerate || src.BufferSize != s.BufferSize || src.Format != s.Format {
		err := fmt.Errorf("duplicate stream %d/%d/%s into %d/%d/%s: %w",
			src.Samplerate, src.BufferSize, src.Format, s.Samplerate, s.BufferSize, s.Format, ErrFormatMismatch)
		src.mu.RUnlock()
		return err
	}
	stream := make([]*Buffer, len(src.stream))
	for i, b := range src.stream {
		stream[i] = b.Clone()
	}
	frames, loopStart, loopEnd := src.frames, src.loopStart, src.loopEnd
	src.mu.RUnlock()

	s.mu.Lock()
	s.stream = stream
	s.frames = frames
	s.loopStart, s.loopEnd = loopStart, loopEnd
	s.readFrame = 0
	s.done = false
	s.mu.Unlock()
	return nil
}

// SpawnRuntime creates a runtime copy of the template for the run id.
func (s *AudioSignal) SpawnRuntime(id RecallID) (*AudioSignal, error) {
	ret := NewAudioSignal(s.Samplerate, s.BufferSize, s.Format)
	if err := ret.DuplicateStream(s); err != nil {
		return nil, err
	}
	ret.recallID = id
	return ret, nil
}

// ReadInto mixes the next len(out) frames of a runtime signal into out,
// starting at the playback cursor, and advances the cursor. With loop set
// and a non-empty loop range the cursor wraps from loop end to loop start.
// It returns the number of frames mixed; when the stream is exhausted the
// signal is marked played out.
func (s *AudioSignal) ReadInto(out []float32, gain float32, loop bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for n < len(out) {
		if loop && s.loopEnd > s.loopStart && s.readFrame >= s.loopEnd {
			s.readFrame = s.loopStart
		}
		if s.readFrame >= s.frames {
			s.done = true
			break
		}
		b := s.stream[s.readFrame/s.BufferSize]
		off := s.readFrame % s.BufferSize
		chunk := min(len(out)-n, s.BufferSize-off, s.frames-s.readFrame)
		if loop && s.loopEnd > s.loopStart && s.readFrame < s.loopEnd {
			chunk = min(chunk, s.loopEnd-s.readFrame)
		}
		for i := 0; i < chunk; i++ {
			out[n+i] += gain * float32(b.At(off+i))
		}
		n += chunk
		s.readFrame += chunk
	}
	if s.readFrame >= s.frames && !(loop && s.loopEnd > s.loopStart) {
		s.done = true
	}
	return n
}

// PlayedOut reports whether ReadInto reached the end of the stream.
func (s *AudioSignal) PlayedOut() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// Rewind puts the playback cursor back to the start.
func (s *AudioSignal) Rewind() {
	s.mu.Lock()
	s.readFrame = 0
	s.done = false
	s.mu.Unlock()
}

// Next returns the following signal in the recycling's chain.
func (s *AudioSignal) Next() *AudioSignal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next
}

// NoteOffset returns the note offset at which a runtime signal was
// attacked.
func (s *AudioSignal) NoteOffset() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attackNote
}

func (s *AudioSignal) SetNoteOffset(offset uint64) {
	s.mu.Lock()
	s.attackNote = offset
	s.mu.Unlock()
}

// Apply runs fn over every buffer of the stream under the write lock. It is
// meant for the owning recall only, e.g. to apply an envelope in place.
func (s *AudioSignal) Apply(fn func(index int, b *Buffer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.stream {
		fn(i, b)
	}
}

// Position returns the playback cursor of a runtime signal in frames.
func (s *AudioSignal) Position() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readFrame
}
