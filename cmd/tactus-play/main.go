package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/cmd"
	"github.com/tactus-audio/tactus/engine"
	"github.com/tactus-audio/tactus/gomidi"
	"github.com/tactus-audio/tactus/machine"
	"github.com/tactus-audio/tactus/oto"
	"github.com/tactus-audio/tactus/version"
)

var (
	configFile  = flag.String("config", "", "Engine config file (YAML). Defaults are used for missing keys.")
	bpm         = flag.Float64("bpm", 0, "Override the tempo of the config.")
	seconds     = flag.Float64("seconds", 8, "Seconds to render. In live mode, 0 plays until interrupted.")
	wavOut      = flag.Bool("w", false, "Output the rendered session as .wav file.")
	rawOut      = flag.Bool("r", false, "Output the rendered session as .raw file.")
	pcm         = flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	directory   = flag.String("o", "", "Directory where to output all files. Defaults to the working directory.")
	live        = flag.Bool("live", false, "Play in real time through the soundcard instead of rendering first.")
	midiOut     = flag.String("midi-out", "", "In live mode, send note events to the MIDI output matching this name prefix.")
	midiIn      = flag.String("midi-in", "", "In live mode, start a new run on every note-on from the MIDI input matching this name prefix.")
	logLevel    = flag.String("loglevel", "info", "Log level: trace, debug, info, warn, error.")
	versionFlag = flag.Bool("v", false, "Print version.")
	help        = flag.Bool("h", false, "Show help.")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if err := cmd.SetLogLevel(*logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := engine.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = engine.LoadConfig(*configFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *bpm > 0 {
		cfg.Bpm = *bpm
	}
	sessions, err := cmd.LoadSessions(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	play := *live || (!*wavOut && !*rawOut)
	var audioContext *oto.OtoContext
	if play {
		audioContext, err = oto.NewContext(cfg.Samplerate, cfg.Channels)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire oto AudioContext: %v\n", err)
			os.Exit(1)
		}
		defer audioContext.Close()
	}
	retval := 0
	for _, s := range sessions {
		var err error
		if *live {
			err = playLive(cfg, s, audioContext)
		} else {
			err = render(cfg, s, audioContext)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not process session %v: %v\n", s.Name(), err)
			retval = 1
		}
	}
	os.Exit(retval)
}

func startAll(e *engine.Engine, machines []machine.Machine) error {
	for _, m := range machines {
		if _, err := e.StartPlayback(m.Audio(), false); err != nil {
			return fmt.Errorf("starting %s: %w", m.Audio().Name, err)
		}
	}
	return nil
}

func newEngine(cfg engine.Config, s cmd.SessionFile, sink tactus.AudioSink) (*engine.Engine, []machine.Machine, error) {
	machines, err := s.Session.Build(cfg.Samplerate, cfg.BufferSize, cfg.Format)
	if err != nil {
		return nil, nil, err
	}
	e := engine.New(cfg, sink)
	for _, m := range machines {
		if err := e.AddAudio(m.Audio()); err != nil {
			e.Close()
			return nil, nil, err
		}
	}
	if err := startAll(e, machines); err != nil {
		e.Close()
		return nil, nil, err
	}
	return e, machines, nil
}

// render processes the session offline, writes the requested files and
// then plays the result if a soundcard was opened.
func render(cfg engine.Config, s cmd.SessionFile, audioContext *oto.OtoContext) error {
	e, _, err := newEngine(cfg, s, nil)
	if err != nil {
		return err
	}
	defer e.Close()
	buffer, err := e.Render(int(*seconds * float64(cfg.Samplerate)))
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	notes := 0
	for len(e.Events()) > 0 {
		if _, ok := (<-e.Events()).(tactus.NoteEvent); ok {
			notes++
		}
	}
	logrus.WithFields(logrus.Fields{
		"function": "render",
		"session":  s.Name(),
		"frames":   len(buffer) / cfg.Channels,
		"notes":    notes,
		"dropped":  e.Broker().Dropped(),
	}).Info("rendered")
	if *rawOut {
		raw, err := tactus.Raw(buffer, *pcm)
		if err != nil {
			return fmt.Errorf("could not generate .raw file: %w", err)
		}
		if err := output(s, ".raw", raw); err != nil {
			return err
		}
	}
	if *wavOut {
		wav, err := tactus.Wav(buffer, cfg.Samplerate, cfg.Channels, *pcm)
		if err != nil {
			return fmt.Errorf("could not generate .wav file: %w", err)
		}
		if err := output(s, ".wav", wav); err != nil {
			return err
		}
	}
	if audioContext == nil {
		return nil
	}
	sink := audioContext.Output()
	defer sink.Close()
	block := cfg.BufferSize * cfg.Channels
	// trailing silence lets the player drain before it is closed
	buffer = append(buffer, make([]float32, cfg.Samplerate/4*cfg.Channels)...)
	for i := 0; i < len(buffer); i += block {
		if err := sink.WriteAudio(buffer[i:min(i+block, len(buffer))]); err != nil {
			return err
		}
	}
	return nil
}

// playLive runs the engine against the soundcard until interrupted or the
// requested seconds have elapsed.
func playLive(cfg engine.Config, s cmd.SessionFile, audioContext *oto.OtoContext) error {
	e, machines, err := newEngine(cfg, s, audioContext.Output())
	if err != nil {
		return err
	}
	defer e.Close()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if *seconds > 0 {
		var c context.CancelFunc
		ctx, c = context.WithTimeout(ctx, time.Duration(*seconds*float64(time.Second)))
		defer c()
	}
	midiContext := cmd.NewMidiContext()
	defer midiContext.Close()
	forwarder := &gomidi.Forwarder{
		OnRecall: func(ev tactus.RecallEvent) {
			logrus.WithFields(logrus.Fields{
				"function": "playLive",
				"recall":   ev.Name,
				"kind":     ev.Kind.String(),
				"offset":   ev.Offset,
			}).Debug("recall event")
		},
	}
	if *midiOut != "" {
		if forwarder.Send, err = midiContext.OpenOutput(*midiOut); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "playLive",
				"outputs":  midiContext.Outputs(),
				"error":    err,
			}).Warn("MIDI output not opened")
		}
	}
	if *midiIn != "" {
		stop, err := midiContext.Listen(*midiIn, func(n gomidi.NoteInput) {
			if !n.On {
				return
			}
			if err := startAll(e, machines); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "playLive",
					"key":      n.Key,
					"error":    err,
				}).Warn("could not start a run")
			}
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "playLive",
				"error":    err,
			}).Warn("MIDI input not opened")
		} else {
			defer stop()
		}
	}
	forwarded := make(chan struct{}, 1)
	go func() {
		forwarder.Run(ctx, e.Events())
		forwarded <- struct{}{}
	}()
	err = e.Run(ctx)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		err = nil
	}
	cancel()
	if _, ok := engine.TimeoutReceive(forwarded, time.Second); !ok {
		logrus.WithFields(logrus.Fields{
			"function": "playLive",
		}).Warn("MIDI forwarder did not stop")
	}
	sent, failed := forwarder.Stats()
	logrus.WithFields(logrus.Fields{
		"function":    "playLive",
		"session":     s.Name(),
		"offset":      e.Clock().Offset(),
		"midi-sent":   sent,
		"midi-failed": failed,
	}).Info("stopped")
	return err
}

func output(s cmd.SessionFile, extension string, contents []byte) error {
	dir := *directory
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return fmt.Errorf("could not get working directory, specify the output directory explicitly: %w", err)
		}
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("could not create output directory %v: %w", dir, err)
	}
	f := filepath.Join(dir, s.Name()+extension)
	if err := os.WriteFile(f, contents, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %w", f, err)
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Plays or renders tactus session files; with no files, the built-in demo session.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
