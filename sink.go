package tactus

type (
	// AudioSink receives interleaved float32 frames, one block at a time.
	AudioSink interface {
		WriteAudio(buffer []float32) error
		Close() error
	}

	// AudioContext opens sinks on an output device.
	AudioContext interface {
		Output() AudioSink
		Close() error
	}
)
