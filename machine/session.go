package machine

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/fx"
	"gopkg.in/yaml.v3"
)

type (
	// Session describes a set of machines: their dimensions and the content
	// the core consumes at runtime, i.e. generated template waveforms,
	// pattern bits, notation, automation and port values.
	Session struct {
		Machines []MachineSpec `yaml:"machines"`
	}

	MachineSpec struct {
		Name          string           `yaml:"name"`
		Type          string           `yaml:"type"`
		AudioChannels int              `yaml:"audio-channels,omitempty"`
		InputPads     int              `yaml:"input-pads,omitempty"`
		OutputPads    int              `yaml:"output-pads,omitempty"`
		Samples       []SampleSpec     `yaml:"samples,omitempty"`
		Patterns      []PatternSpec    `yaml:"patterns,omitempty"`
		Notes         []NoteSpec       `yaml:"notes,omitempty"`
		Automation    []AutomationSpec `yaml:"automation,omitempty"`
		Ports         []PortSetting    `yaml:"ports,omitempty"`
	}

	// SampleSpec generates the template of one input channel: a decaying
	// oscillator of the given wave.
	SampleSpec struct {
		Pad          int     `yaml:"pad"`
		AudioChannel int     `yaml:"audio-channel"`
		Wave         string  `yaml:"wave"`
		Freq         float64 `yaml:"freq"`
		Seconds      float64 `yaml:"seconds"`
		Gain         float64 `yaml:"gain"`
		Decay        float64 `yaml:"decay"`
	}

	PatternSpec struct {
		Pad          int   `yaml:"pad"`
		AudioChannel int   `yaml:"audio-channel"`
		Bank0        int   `yaml:"bank0"`
		Bank1        int   `yaml:"bank1"`
		Steps        []int `yaml:",flow"`
	}

	NoteSpec struct {
		AudioChannel int    `yaml:"audio-channel"`
		X0           uint64 `yaml:"x0"`
		X1           uint64 `yaml:"x1"`
		Y            int    `yaml:"y"`
		Velocity     byte   `yaml:"velocity"`
	}

	AutomationSpec struct {
		Specifier string       `yaml:"specifier"`
		Points    [][2]float64 `yaml:",flow"`
	}

	// PortSetting writes an initial value to a template port. With Audio
	// set the port is looked up on the audio-level recall of the recipe,
	// otherwise on the channel-level recall of the channel at (Pad,
	// AudioChannel).
	PortSetting struct {
		Recipe       string  `yaml:"recipe"`
		Specifier    string  `yaml:"specifier"`
		Play         bool    `yaml:"play,omitempty"`
		Audio        bool    `yaml:"audio,omitempty"`
		Output       bool    `yaml:"output,omitempty"`
		Pad          int     `yaml:"pad,omitempty"`
		AudioChannel int     `yaml:"audio-channel,omitempty"`
		Value        float64 `yaml:"value"`
	}
)

var (
	ErrUnknownMachine = errors.New("unknown machine type")
	ErrUnknownWave    = errors.New("unknown wave")
	ErrNoSuchPort     = errors.New("no such port")
)

//go:embed default.yml
var defaultSession []byte

// DefaultSession returns the built-in demo session.
func DefaultSession() (*Session, error) {
	return ParseSession(defaultSession)
}

func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read session %v: %w", path, err)
	}
	return ParseSession(data)
}

func ParseSession(data []byte) (*Session, error) {
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("could not parse session: %w", err)
	}
	return &s, nil
}

// Build creates and maps the machines of the session.
func (s *Session) Build(samplerate, bufferSize int, format tactus.SampleFormat) ([]Machine, error) {
	var ret []Machine
	for _, spec := range s.Machines {
		m, err := spec.Build(samplerate, bufferSize, format)
		if err != nil {
			return nil, err
		}
		ret = append(ret, m)
	}
	return ret, nil
}

// Build creates the machine, maps its recipes, resizes it and loads its
// content.
func (spec MachineSpec) Build(samplerate, bufferSize int, format tactus.SampleFormat) (Machine, error) {
	var m Machine
	switch spec.Type {
	case "drum":
		m = NewDrum(spec.Name, samplerate, bufferSize, format)
	case "matrix":
		m = NewMatrix(spec.Name, samplerate, bufferSize, format)
	case "panel":
		m = NewPanel(spec.Name, samplerate, bufferSize, format, max(spec.AudioChannels, 1))
	default:
		return nil, fmt.Errorf("machine %s of type %q: %w", spec.Name, spec.Type, ErrUnknownMachine)
	}
	a := m.Audio()
	if err := m.MapRecall(); err != nil {
		return nil, err
	}
	if spec.AudioChannels > 0 {
		a.SetAudioChannels(spec.AudioChannels)
	}
	if spec.InputPads > 0 || a.MinInputPads > 0 {
		a.SetPads(tactus.Input, spec.InputPads)
	}
	if spec.OutputPads > 0 {
		a.SetPads(tactus.Output, spec.OutputPads)
	}
	for _, smp := range spec.Samples {
		if err := smp.load(a); err != nil {
			return nil, fmt.Errorf("machine %s: %w", spec.Name, err)
		}
	}
	for _, p := range spec.Patterns {
		ch := a.Channel(tactus.Input, p.Pad, p.AudioChannel)
		if ch == nil || ch.Pattern() == nil {
			return nil, fmt.Errorf("machine %s: pattern of pad %d, audio channel %d: %w", spec.Name, p.Pad, p.AudioChannel, tactus.ErrOutOfRange)
		}
		for _, step := range p.Steps {
			ch.Pattern().Set(p.Bank0, p.Bank1, step, true)
		}
	}
	for _, n := range spec.Notes {
		a.Notation(n.AudioChannel).Add(&tactus.Note{X0: n.X0, X1: n.X1, Y: n.Y, Velocity: n.Velocity})
	}
	for _, au := range spec.Automation {
		lane := tactus.NewAutomation(au.Specifier)
		for _, pt := range au.Points {
			lane.Add(&tactus.Acceleration{X: uint64(max(pt[0], 0)), Y: pt[1]})
		}
		a.AddAutomation(lane)
	}
	for _, ps := range spec.Ports {
		if err := ps.apply(a); err != nil {
			return nil, fmt.Errorf("machine %s: %w", spec.Name, err)
		}
	}
	return m, nil
}

// ParseWave maps a wave name to an oscillator shape.
func ParseWave(name string) (fx.Wave, error) {
	switch name {
	case "", "sine":
		return fx.WaveSine, nil
	case "triangle":
		return fx.WaveTriangle, nil
	case "square":
		return fx.WaveSquare, nil
	case "sawtooth":
		return fx.WaveSawtooth, nil
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownWave)
}

func (smp SampleSpec) load(a *tactus.Audio) error {
	ch := a.Channel(tactus.Input, smp.Pad, smp.AudioChannel)
	if ch == nil {
		return fmt.Errorf("sample of pad %d, audio channel %d: %w", smp.Pad, smp.AudioChannel, tactus.ErrOutOfRange)
	}
	w, err := ParseWave(smp.Wave)
	if err != nil {
		return err
	}
	sr := ch.Samplerate()
	frames := int(smp.Seconds * float64(sr))
	s, err := tactus.NewTemplateSignal(sr, ch.BufferSize(), ch.Format(), frames)
	if err != nil {
		return err
	}
	gain := smp.Gain
	if gain == 0 {
		gain = 1
	}
	for i := 0; i < frames; i++ {
		t := float64(i) / float64(sr)
		s.SetAt(i, gain*fx.Oscillate(w, 2*math.Pi*smp.Freq*t)*math.Exp(-smp.Decay*t))
	}
	return ch.Recycling().SetTemplate(s)
}

func (ps PortSetting) apply(a *tactus.Audio) error {
	c := a.FindRecallContainer(ps.Recipe, ps.Play)
	if c == nil {
		return fmt.Errorf("port %s of %s: %w", ps.Specifier, ps.Recipe, fx.ErrNoContainer)
	}
	var r *tactus.Recall
	if ps.Audio {
		r = c.RecallAudio()
	} else {
		t := tactus.Input
		if ps.Output {
			t = tactus.Output
		}
		if ch := a.Channel(t, ps.Pad, ps.AudioChannel); ch != nil {
			r = c.FindChannel(ch)
		}
	}
	var p *tactus.Port
	if r != nil {
		p = r.FindPort(ps.Specifier)
	}
	if p == nil {
		return fmt.Errorf("port %s of %s: %w", ps.Specifier, ps.Recipe, ErrNoSuchPort)
	}
	return p.SafeWrite(tactus.NumberValue(p.Type(), ps.Value))
}
