package tactus

import "errors"

var (
	// ErrNotTemplate is returned when a runtime recall is asked to do
	// something only templates can do, most notably Duplicate.
	ErrNotTemplate = errors.New("recall is not a template")

	// ErrPortTypeMismatch is returned by Port.SafeWrite when the written
	// value has a different type than the port was declared with. The port
	// keeps its old value.
	ErrPortTypeMismatch = errors.New("port value type mismatch")

	// ErrDuplicateSpecifier is returned when a recall already owns a port
	// with the same specifier.
	ErrDuplicateSpecifier = errors.New("duplicate port specifier")

	// ErrFormatMismatch is returned when two streams with different
	// samplerate, buffer size or format are combined.
	ErrFormatMismatch = errors.New("audio signal format mismatch")

	// ErrResourceExhausted is returned when a stream resize would exceed
	// MaxStreamFrames.
	ErrResourceExhausted = errors.New("stream resource exhausted")

	// ErrTemplateExists is returned when a second template audio signal is
	// added to a recycling.
	ErrTemplateExists = errors.New("recycling already has a template audio signal")

	ErrInvalidState = errors.New("invalid recall state")
	ErrOutOfRange   = errors.New("index out of range")
)
