package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/cmd"
	"github.com/tactus-audio/tactus/engine"
	"github.com/tactus-audio/tactus/fx"
	"github.com/tactus-audio/tactus/version"
)

var (
	configFile  = flag.String("config", "", "Engine config file (YAML).")
	run         = flag.Bool("run", false, "Instantiate one run of the recall templates before printing.")
	play        = flag.Bool("play", false, "With -run, instantiate the play templates instead of the recall templates.")
	logLevel    = flag.String("loglevel", "warn", "Log level: trace, debug, info, warn, error.")
	versionFlag = flag.Bool("v", false, "Print version.")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
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
	sessions, err := cmd.LoadSessions(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	retval := 0
	for _, s := range sessions {
		if err := inspect(cfg, s); err != nil {
			fmt.Fprintf(os.Stderr, "could not inspect session %v: %v\n", s.Name(), err)
			retval = 1
		}
	}
	os.Exit(retval)
}

func inspect(cfg engine.Config, s cmd.SessionFile) error {
	machines, err := s.Session.Build(cfg.Samplerate, cfg.BufferSize, cfg.Format)
	if err != nil {
		return err
	}
	fmt.Printf("# session %s\n", s.Name())
	for _, m := range machines {
		a := m.Audio()
		if err := a.Connect(); err != nil {
			return err
		}
		if *run {
			if _, err := fx.Instantiate(a, *play, tactus.NewRecallID()); err != nil {
				return fmt.Errorf("instantiating %s: %w", a.Name, err)
			}
		}
		if err := fx.DumpGraph(os.Stdout, a); err != nil {
			return err
		}
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Prints the recall graph of the machines of tactus session files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
