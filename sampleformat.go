package tactus

import (
	"fmt"
	"math"

	"github.com/viterin/vek"
	"github.com/viterin/vek/vek32"
)

type (
	// SampleFormat is the storage format of the samples of a Buffer.
	SampleFormat int

	// Sample is the set of Go types used for the real-valued formats. 24-bit
	// samples are stored in int32.
	Sample interface {
		~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
	}

	// Buffer is one block of mono samples in a stream. The samples are kept
	// in a typed slice matching Format: []int8, []int16, []int32 (also for
	// S24), []int64, []float32, []float64 or []complex128.
	Buffer struct {
		Format SampleFormat
		data   any
	}
)

const (
	FormatS8 SampleFormat = iota
	FormatS16
	FormatS24
	FormatS32
	FormatS64
	FormatFloat
	FormatDouble
	FormatComplex
)

var formatNames = [...]string{"s8", "s16", "s24", "s32", "s64", "float", "double", "complex"}

func (f SampleFormat) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("SampleFormat(%d)", int(f))
	}
	return formatNames[f]
}

// ParseSampleFormat is the inverse of SampleFormat.String.
func ParseSampleFormat(s string) (SampleFormat, error) {
	for i, n := range formatNames {
		if n == s {
			return SampleFormat(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sample format %q", s)
}

func (f SampleFormat) MarshalYAML() (any, error) {
	return f.String(), nil
}

func (f *SampleFormat) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := ParseSampleFormat(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// FullScale is the sample value corresponding to 1.0. Floating point
// formats have a full scale of 1.
func (f SampleFormat) FullScale() float64 {
	switch f {
	case FormatS8:
		return math.MaxInt8
	case FormatS16:
		return math.MaxInt16
	case FormatS24:
		return 8388607
	case FormatS32:
		return math.MaxInt32
	case FormatS64:
		return math.MaxInt64
	}
	return 1
}

// IsInteger reports whether the format saturates on overflow.
func (f SampleFormat) IsInteger() bool {
	return f <= FormatS64
}

func (f SampleFormat) limits() (lo, hi float64) {
	switch f {
	case FormatS8:
		return math.MinInt8, math.MaxInt8
	case FormatS16:
		return math.MinInt16, math.MaxInt16
	case FormatS24:
		return -8388608, 8388607
	case FormatS32:
		return math.MinInt32, math.MaxInt32
	case FormatS64:
		return math.MinInt64, math.MaxInt64
	}
	return math.Inf(-1), math.Inf(1)
}

// NewBuffer allocates a zeroed buffer of frames samples.
func NewBuffer(format SampleFormat, frames int) *Buffer {
	b := &Buffer{Format: format}
	switch format {
	case FormatS8:
		b.data = make([]int8, frames)
	case FormatS16:
		b.data = make([]int16, frames)
	case FormatS24, FormatS32:
		b.data = make([]int32, frames)
	case FormatS64:
		b.data = make([]int64, frames)
	case FormatFloat:
		b.data = make([]float32, frames)
	case FormatDouble:
		b.data = make([]float64, frames)
	case FormatComplex:
		b.data = make([]complex128, frames)
	default:
		b.Format = FormatFloat
		b.data = make([]float32, frames)
	}
	return b
}

// Samples returns the typed sample slice of b, or nil if T does not match
// the buffer's format.
func Samples[T Sample | complex128](b *Buffer) []T {
	s, _ := b.data.([]T)
	return s
}

// Len returns the number of frames in the buffer.
func (b *Buffer) Len() int {
	switch s := b.data.(type) {
	case []int8:
		return len(s)
	case []int16:
		return len(s)
	case []int32:
		return len(s)
	case []int64:
		return len(s)
	case []float32:
		return len(s)
	case []float64:
		return len(s)
	case []complex128:
		return len(s)
	}
	return 0
}

// Clear zeroes frames [from, Len()).
func (b *Buffer) Clear(from int) {
	switch s := b.data.(type) {
	case []int8:
		clearTail(s, from)
	case []int16:
		clearTail(s, from)
	case []int32:
		clearTail(s, from)
	case []int64:
		clearTail(s, from)
	case []float32:
		clearTail(s, from)
	case []float64:
		clearTail(s, from)
	case []complex128:
		if from < len(s) {
			clear(s[max(from, 0):])
		}
	}
}

func clearTail[T Sample](s []T, from int) {
	if from < len(s) {
		clear(s[max(from, 0):])
	}
}

// Clone returns a deep copy of b.
func (b *Buffer) Clone() *Buffer {
	ret := NewBuffer(b.Format, b.Len())
	switch s := b.data.(type) {
	case []int8:
		copy(ret.data.([]int8), s)
	case []int16:
		copy(ret.data.([]int16), s)
	case []int32:
		copy(ret.data.([]int32), s)
	case []int64:
		copy(ret.data.([]int64), s)
	case []float32:
		copy(ret.data.([]float32), s)
	case []float64:
		copy(ret.data.([]float64), s)
	case []complex128:
		copy(ret.data.([]complex128), s)
	}
	return ret
}

// At returns frame i normalized to full scale 1. Complex samples give their
// real part.
func (b *Buffer) At(i int) float64 {
	scale := b.Format.FullScale()
	switch s := b.data.(type) {
	case []int8:
		return float64(s[i]) / scale
	case []int16:
		return float64(s[i]) / scale
	case []int32:
		return float64(s[i]) / scale
	case []int64:
		return float64(s[i]) / scale
	case []float32:
		return float64(s[i])
	case []float64:
		return s[i]
	case []complex128:
		return real(s[i])
	}
	return 0
}

// Set stores the normalized value v at frame i, saturating for integer
// formats.
func (b *Buffer) Set(i int, v float64) {
	switch s := b.data.(type) {
	case []int8:
		s[i] = int8(ConvertSample(v, b.Format))
	case []int16:
		s[i] = int16(ConvertSample(v, b.Format))
	case []int32:
		s[i] = int32(ConvertSample(v, b.Format))
	case []int64:
		switch f := ConvertSample(v, b.Format); {
		case f >= math.MaxInt64:
			s[i] = math.MaxInt64
		case f <= math.MinInt64:
			s[i] = math.MinInt64
		default:
			s[i] = int64(f)
		}
	case []float32:
		s[i] = float32(v)
	case []float64:
		s[i] = v
	case []complex128:
		s[i] = complex(v, 0)
	}
}

// ConvertSample scales the normalized value v to the given format. Integer
// formats truncate toward zero and saturate at their limits; floating point
// formats are returned unscaled and unclamped.
func ConvertSample(v float64, to SampleFormat) float64 {
	if !to.IsInteger() {
		return v
	}
	lo, hi := to.limits()
	f := v * to.FullScale()
	if f >= hi {
		return hi
	}
	if f <= lo {
		return lo
	}
	return math.Trunc(f)
}

// CopyBuffer overwrites dst with src converted to dst's format. Frames
// beyond the shorter of the two are left untouched.
func CopyBuffer(dst, src *Buffer) {
	n := min(dst.Len(), src.Len())
	if dst.Format == src.Format {
		switch s := src.data.(type) {
		case []int8:
			copy(dst.data.([]int8), s[:n])
		case []int16:
			copy(dst.data.([]int16), s[:n])
		case []int32:
			copy(dst.data.([]int32), s[:n])
		case []int64:
			copy(dst.data.([]int64), s[:n])
		case []float32:
			copy(dst.data.([]float32), s[:n])
		case []float64:
			copy(dst.data.([]float64), s[:n])
		case []complex128:
			copy(dst.data.([]complex128), s[:n])
		}
		return
	}
	for i := 0; i < n; i++ {
		dst.Set(i, src.At(i))
	}
}

// MixBuffer adds gain*src into dst. Integer destinations saturate, float
// and double do not. Complex buffers mix both parts when both sides are
// complex; otherwise the real part is used.
func MixBuffer(dst, src *Buffer, gain float64) {
	n := min(dst.Len(), src.Len())
	switch {
	case dst.Format == FormatFloat && src.Format == FormatFloat:
		d, s := dst.data.([]float32)[:n], src.data.([]float32)[:n]
		if gain == 1 {
			vek32.Add_Inplace(d, s)
			return
		}
		for i := range d {
			d[i] += float32(gain) * s[i]
		}
		return
	case dst.Format == FormatDouble && src.Format == FormatDouble:
		d, s := dst.data.([]float64)[:n], src.data.([]float64)[:n]
		if gain == 1 {
			vek.Add_Inplace(d, s)
			return
		}
		for i := range d {
			d[i] += gain * s[i]
		}
		return
	case dst.Format == FormatComplex && src.Format == FormatComplex:
		d, s := dst.data.([]complex128), src.data.([]complex128)
		g := complex(gain, 0)
		for i := 0; i < n; i++ {
			d[i] += g * s[i]
		}
		return
	}
	for i := 0; i < n; i++ {
		dst.Set(i, dst.At(i)+gain*src.At(i))
	}
}

// MixInto adds gain*src, converted to float32, into the first frames of
// out. It is how runtime signals end up on an output bus.
func MixInto(out []float32, src *Buffer, gain float32) {
	n := min(len(out), src.Len())
	if src.Format == FormatFloat && gain == 1 {
		vek32.Add_Inplace(out[:n], src.data.([]float32)[:n])
		return
	}
	for i := 0; i < n; i++ {
		out[i] += gain * float32(src.At(i))
	}
}

// PitchShift resamples src into dst by ratio using linear interpolation:
// ratio 2 plays src an octave higher. dst keeps its format; integer
// destinations saturate.
func PitchShift(dst, src *Buffer, ratio float64) {
	n := dst.Len()
	sn := src.Len()
	if ratio <= 0 || sn == 0 {
		dst.Clear(0)
		return
	}
	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= sn {
			dst.Clear(i)
			return
		}
		frac := pos - float64(j)
		a := src.At(j)
		b := a
		if j+1 < sn {
			b = src.At(j + 1)
		}
		dst.Set(i, a+(b-a)*frac)
	}
}
