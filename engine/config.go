package engine

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/tactus-audio/tactus"
	"gopkg.in/yaml.v3"
)

// Config holds the engine parameters. Loop bounds are in ticks, one tick
// being one block.
type Config struct {
	Samplerate   int                 `yaml:"samplerate"`
	BufferSize   int                 `yaml:"buffer-size"`
	Format       tactus.SampleFormat `yaml:"format"`
	Channels     int                 `yaml:"channels"`
	Bpm          float64             `yaml:"bpm"`
	DelayFactor  float64             `yaml:"delay-factor"`
	StepsPerBeat int                 `yaml:"steps-per-beat"`
	Workers      int                 `yaml:"workers"`
	TaskQueue    int                 `yaml:"task-queue"`
	Loop         bool                `yaml:"loop"`
	LoopStart    uint64              `yaml:"loop-start"`
	LoopEnd      uint64              `yaml:"loop-end"`
}

func DefaultConfig() Config {
	return Config{
		Samplerate:   44100,
		BufferSize:   512,
		Format:       tactus.FormatFloat,
		Channels:     2,
		Bpm:          120,
		DelayFactor:  1,
		StepsPerBeat: 4,
		Workers:      4,
		TaskQueue:    1024,
	}
}

// LoadConfig reads a YAML config. Keys missing from the file keep their
// default values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config %v: %w", path, err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("could not parse config: %w", err)
	}
	cfg.Validate()
	return cfg, nil
}

// Validate replaces invalid values by their defaults, logging a warning
// for each.
func (c *Config) Validate() {
	d := DefaultConfig()
	warn := func(key string, got, used any) {
		logrus.WithFields(logrus.Fields{
			"function": "Config.Validate",
			"key":      key,
			"value":    got,
			"default":  used,
		}).Warn("invalid config value replaced by default")
	}
	if c.Samplerate <= 0 {
		warn("samplerate", c.Samplerate, d.Samplerate)
		c.Samplerate = d.Samplerate
	}
	if c.BufferSize <= 0 {
		warn("buffer-size", c.BufferSize, d.BufferSize)
		c.BufferSize = d.BufferSize
	}
	if c.Format < tactus.FormatS8 || c.Format >= tactus.FormatComplex {
		warn("format", c.Format, d.Format)
		c.Format = d.Format
	}
	if c.Channels <= 0 {
		warn("channels", c.Channels, d.Channels)
		c.Channels = d.Channels
	}
	if c.Bpm <= 0 {
		warn("bpm", c.Bpm, d.Bpm)
		c.Bpm = d.Bpm
	}
	if c.DelayFactor <= 0 {
		warn("delay-factor", c.DelayFactor, d.DelayFactor)
		c.DelayFactor = d.DelayFactor
	}
	if c.StepsPerBeat <= 0 {
		warn("steps-per-beat", c.StepsPerBeat, d.StepsPerBeat)
		c.StepsPerBeat = d.StepsPerBeat
	}
	if c.Workers <= 0 {
		warn("workers", c.Workers, d.Workers)
		c.Workers = d.Workers
	}
	if c.TaskQueue <= 0 {
		warn("task-queue", c.TaskQueue, d.TaskQueue)
		c.TaskQueue = d.TaskQueue
	}
	if c.Loop && c.LoopEnd <= c.LoopStart {
		warn("loop-end", c.LoopEnd, c.LoopStart+1)
		c.LoopEnd = c.LoopStart + 1
	}
}

// Delay returns the number of ticks per pattern step:
// DelayPerTact(bpm, delayFactor) / stepsPerBeat seconds per step, divided
// by the duration of a block.
func (c Config) Delay() float64 {
	return Delay(c.Bpm, c.DelayFactor, c.StepsPerBeat, c.Samplerate, c.BufferSize)
}

func Delay(bpm, delayFactor float64, stepsPerBeat, samplerate, bufferSize int) float64 {
	if stepsPerBeat <= 0 || samplerate <= 0 || bufferSize <= 0 {
		return 0
	}
	step := tactus.DelayPerTact(bpm, delayFactor) / float64(stepsPerBeat)
	return step * float64(samplerate) / float64(bufferSize)
}
