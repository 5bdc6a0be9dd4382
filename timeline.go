package tactus

import (
	"sort"
	"sync"
)

// DefaultTimelineOffset is the width, in ticks, of the windows notation and
// automation entries are bucketed into. Lookups only scan the buckets a
// range touches.
const DefaultTimelineOffset = 4096

type (
	// Timed is anything stored on a Timeline.
	Timed interface {
		Tick() uint64
	}

	// Timeline stores entries bucketed by Tick()/DefaultTimelineOffset. Each
	// bucket is kept sorted by tick.
	Timeline[T Timed] struct {
		mu      sync.RWMutex
		buckets map[uint64][]T
	}

	// Note is a notation entry: a key y held from tick x0 up to (not
	// including) x1.
	Note struct {
		X0       uint64
		X1       uint64
		Y        int
		Velocity byte
	}

	// Acceleration is an automation entry: the value y a port should take at
	// tick x.
	Acceleration struct {
		X uint64
		Y float64
	}

	// Notation holds the notes of one audio channel.
	Notation struct {
		Timeline[*Note]
		AudioChannel int
	}

	// Automation holds the accelerations of one port.
	Automation struct {
		Timeline[*Acceleration]
		Specifier string
	}
)

func (n *Note) Tick() uint64         { return n.X0 }
func (a *Acceleration) Tick() uint64 { return a.X }

// Timestamp returns the bucket key of a tick.
func Timestamp(tick uint64) uint64 {
	return tick - tick%DefaultTimelineOffset
}

func NewNotation(audioChannel int) *Notation {
	return &Notation{AudioChannel: audioChannel}
}

func NewAutomation(specifier string) *Automation {
	return &Automation{Specifier: specifier}
}

// Add inserts v into its bucket, keeping the bucket sorted.
func (t *Timeline[T]) Add(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.buckets == nil {
		t.buckets = make(map[uint64][]T)
	}
	key := Timestamp(v.Tick())
	b := t.buckets[key]
	i := sort.Search(len(b), func(i int) bool { return b[i].Tick() > v.Tick() })
	var zero T
	b = append(b, zero)
	copy(b[i+1:], b[i:])
	b[i] = v
	t.buckets[key] = b
}

// Remove deletes the entry v (compared by identity for pointer types) and
// reports whether it was present.
func (t *Timeline[T]) Remove(match func(T) bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, b := range t.buckets {
		for i, x := range b {
			if match(x) {
				b = append(b[:i], b[i+1:]...)
				if len(b) == 0 {
					delete(t.buckets, key)
				} else {
					t.buckets[key] = b
				}
				return true
			}
		}
	}
	return false
}

// FindRange returns the entries with x0 <= Tick() < x1 in tick order.
func (t *Timeline[T]) FindRange(x0, x1 uint64) []T {
	if x1 <= x0 {
		return nil
	}
	return t.findInclusive(x0, x1-1)
}

// FindAt returns the entries starting exactly at tick.
func (t *Timeline[T]) FindAt(tick uint64) []T {
	return t.findInclusive(tick, tick)
}

// findInclusive returns the entries with x0 <= Tick() <= x1 in tick order.
// It walks the bucket keys of the range, or the stored keys when there are
// fewer of them.
func (t *Timeline[T]) findInclusive(x0, x1 uint64) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	first, last := Timestamp(x0), Timestamp(x1)
	var keys []uint64
	if (last-first)/DefaultTimelineOffset >= uint64(len(t.buckets)) {
		for key := range t.buckets {
			if key >= first && key <= last {
				keys = append(keys, key)
			}
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	} else {
		for key := first; ; key += DefaultTimelineOffset {
			keys = append(keys, key)
			if key == last {
				break
			}
		}
	}
	var ret []T
	for _, key := range keys {
		for _, v := range t.buckets[key] {
			if tick := v.Tick(); tick >= x0 && tick <= x1 {
				ret = append(ret, v)
			}
		}
	}
	return ret
}

// FindNear returns the entry closest to tick within its own bucket and the
// neighbouring buckets, and false if there is none.
func (t *Timeline[T]) FindNear(tick uint64) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var best T
	found := false
	var bestDist uint64
	key := Timestamp(tick)
	keys := []uint64{key, key + DefaultTimelineOffset}
	if key >= DefaultTimelineOffset {
		keys = append(keys, key-DefaultTimelineOffset)
	}
	for _, k := range keys {
		for _, v := range t.buckets[k] {
			d := v.Tick() - tick
			if v.Tick() < tick {
				d = tick - v.Tick()
			}
			if !found || d < bestDist || (d == bestDist && v.Tick() < best.Tick()) {
				best, bestDist, found = v, d, true
			}
		}
	}
	return best, found
}

// Len returns the number of entries.
func (t *Timeline[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, b := range t.buckets {
		n += len(b)
	}
	return n
}

// Timestamps returns the sorted keys of the non-empty buckets.
func (t *Timeline[T]) Timestamps() []uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ret := make([]uint64, 0, len(t.buckets))
	for k := range t.buckets {
		ret = append(ret, k)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// NotesEndingAt returns the notes whose x1 equals tick. Notes are bucketed
// by x0, so the buckets back to the longest possible note are scanned.
func (n *Notation) NotesEndingAt(tick uint64, maxLength uint64) []*Note {
	var from uint64
	if tick > maxLength {
		from = tick - maxLength
	}
	var ret []*Note
	for _, note := range n.FindRange(from, tick) {
		if note.X1 == tick {
			ret = append(ret, note)
		}
	}
	return ret
}

// ValueAt returns the value of the latest acceleration at or before tick,
// searching back at most one bucket, and false if there is none.
func (a *Automation) ValueAt(tick uint64) (float64, bool) {
	var from uint64
	if Timestamp(tick) >= DefaultTimelineOffset {
		from = Timestamp(tick) - DefaultTimelineOffset
	}
	entries := a.findInclusive(from, tick)
	if len(entries) == 0 {
		return 0, false
	}
	return entries[len(entries)-1].Y, true
}
