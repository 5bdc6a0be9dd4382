// Package cmd holds what the command line tools share: log setup, session
// loading and the MIDI context chosen by build tag.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/tactus-audio/tactus/machine"
)

// SessionFile is a session and the file it came from. The embedded
// default session has an empty Path.
type SessionFile struct {
	Path    string
	Session *machine.Session
}

// SetLogLevel sets the logrus level by name and sends logs to stderr.
func SetLogLevel(name string) error {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("log level %q: %w", name, err)
	}
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(level)
	return nil
}

// LoadSessions loads the session files named by args. A directory
// contributes its .yml and .yaml files. No args gives the default session.
func LoadSessions(args []string) ([]SessionFile, error) {
	if len(args) == 0 {
		s, err := machine.DefaultSession()
		if err != nil {
			return nil, fmt.Errorf("default session: %w", err)
		}
		return []SessionFile{{Session: s}}, nil
	}
	var files []string
	for _, param := range args {
		info, err := os.Stat(param)
		if err != nil {
			return nil, fmt.Errorf("could not stat %v: %w", param, err)
		}
		if !info.IsDir() {
			files = append(files, param)
			continue
		}
		for _, pattern := range []string{"*.yml", "*.yaml"} {
			matches, err := filepath.Glob(filepath.Join(param, pattern))
			if err != nil {
				return nil, fmt.Errorf("could not glob the path %v: %w", param, err)
			}
			files = append(files, matches...)
		}
	}
	ret := make([]SessionFile, 0, len(files))
	for _, f := range files {
		s, err := machine.LoadSession(f)
		if err != nil {
			return nil, err
		}
		ret = append(ret, SessionFile{Path: f, Session: s})
	}
	return ret, nil
}

// Name is the base name of the session file without extension, or
// "default".
func (f SessionFile) Name() string {
	if f.Path == "" {
		return "default"
	}
	_, name := filepath.Split(f.Path)
	return name[:len(name)-len(filepath.Ext(name))]
}
