package fx

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tactus-audio/tactus"
	"github.com/tactus-audio/tactus/version"
)

// CreateFlags selects what Create does and where.
type CreateFlags uint32

const (
	// FlagAdd creates missing containers and recalls.
	FlagAdd CreateFlags = 1 << iota
	// FlagRemap only extends existing containers to channels they do not
	// cover yet.
	FlagRemap
	FlagInput
	FlagOutput
	FlagPlay
	FlagRecall
)

// Factory creates the recalls of recipes. Every recall it creates is
// stamped with Version and BuildID.
type Factory struct {
	Version string
	BuildID string
}

// DefaultFactory stamps the build version.
var DefaultFactory = &Factory{Version: version.VersionOrHash, BuildID: version.BuildID}

// Create is DefaultFactory.Create.
func Create(a *tactus.Audio, play, recall *tactus.RecallContainer, recipe string, filter func(*tactus.Channel) bool, acStart, acEnd, padStart, padEnd, position int, flags CreateFlags) ([]*tactus.Recall, error) {
	return DefaultFactory.Create(a, play, recall, recipe, filter, acStart, acEnd, padStart, padEnd, position, flags)
}

// Create instantiates recipe on the channels of a in the audio channel
// range [acStart, acEnd) and pad range [padStart, padEnd), which are
// clamped to the audio's current dimensions. filter, if not nil, further
// selects the channels.
//
// For each direction (play and recall) the recalls go into the given
// container, or into the audio's existing container of the recipe when it
// is nil. In FlagAdd mode a missing container is created; in FlagRemap mode
// it is an ErrNoContainer error. The audio-level singleton is created only
// once per container and every channel is covered at most once per
// container, so calling Create again over the same range creates nothing.
//
// Without FlagPlay and FlagRecall both directions are created. Without
// FlagInput and FlagOutput the audio's FlagDefaultsToInput picks the
// channel type. New recalls are inserted at position of the lists
// (negative appends) and connected right away when the audio is connected.
func (f *Factory) Create(a *tactus.Audio, play, recall *tactus.RecallContainer, recipe string, filter func(*tactus.Channel) bool, acStart, acEnd, padStart, padEnd, position int, flags CreateFlags) ([]*tactus.Recall, error) {
	rec, err := Lookup(recipe)
	if err != nil {
		return nil, err
	}
	if flags&(FlagAdd|FlagRemap) == 0 {
		flags |= FlagAdd
	}
	if flags&(FlagPlay|FlagRecall) == 0 {
		flags |= FlagPlay | FlagRecall
	}
	if flags&(FlagInput|FlagOutput) == 0 {
		if a.Flags&tactus.FlagDefaultsToInput != 0 {
			flags |= FlagInput
		} else {
			flags |= FlagOutput
		}
	}
	var ret []*tactus.Recall
	for _, d := range []struct {
		play bool
		flag CreateFlags
		c    *tactus.RecallContainer
	}{{true, FlagPlay, play}, {false, FlagRecall, recall}} {
		if flags&d.flag == 0 {
			continue
		}
		created, err := f.createDirection(a, d.c, rec, filter, acStart, acEnd, padStart, padEnd, position, flags, d.play)
		ret = append(ret, created...)
		if err != nil {
			return ret, err
		}
	}
	if a.IsConnected() {
		for _, r := range ret {
			if err := r.Connect(); err != nil {
				return ret, err
			}
		}
	}
	logrus.WithFields(logrus.Fields{
		"function": "Factory.Create",
		"audio":    a.Name,
		"recipe":   recipe,
		"created":  len(ret),
	}).Debug("recipe instantiated")
	return ret, nil
}

func (f *Factory) createDirection(a *tactus.Audio, c *tactus.RecallContainer, rec *Recipe, filter func(*tactus.Channel) bool, acStart, acEnd, padStart, padEnd, position int, flags CreateFlags, play bool) ([]*tactus.Recall, error) {
	if c == nil {
		c = a.FindRecallContainer(rec.Name, play)
	}
	if c == nil {
		if flags&FlagAdd == 0 {
			return nil, fmt.Errorf("remap %s on %s: %w", rec.Name, a.Name, ErrNoContainer)
		}
		c = tactus.NewRecallContainer(rec.Name, play)
	}
	a.AddRecallContainer(c)

	var ret []*tactus.Recall
	if rec.NewAudio != nil && c.RecallAudio() == nil {
		r, err := f.newRecall(rec, tactus.LevelAudio, rec.NewAudio(), rec.Ports.Audio)
		if err != nil {
			return nil, err
		}
		a.InsertRecall(r, play, position)
		c.SetRecallAudio(r)
		ret = append(ret, r)
	}
	acStart, acEnd = max(acStart, 0), min(acEnd, a.AudioChannels())
	for _, t := range []struct {
		typ  tactus.ChannelType
		flag CreateFlags
	}{{tactus.Input, FlagInput}, {tactus.Output, FlagOutput}} {
		if flags&t.flag == 0 {
			continue
		}
		start, end := max(padStart, 0), min(padEnd, a.Pads(t.typ))
		for pad := start; pad < end; pad++ {
			for ac := acStart; ac < acEnd; ac++ {
				ch := a.Channel(t.typ, pad, ac)
				if ch == nil || (filter != nil && !filter(ch)) || c.FindChannel(ch) != nil {
					continue
				}
				cfg, err := f.newRecall(rec, tactus.LevelChannel, rec.NewChannel(), rec.Ports.Channel)
				if err != nil {
					return ret, err
				}
				ch.InsertRecall(cfg, play, position)
				c.AddRecallChannel(cfg)
				ret = append(ret, cfg)
				if rec.NewChannelRun == nil {
					continue
				}
				run, err := f.newRecall(rec, tactus.LevelChannelRun, rec.NewChannelRun(), nil)
				if err != nil {
					return ret, err
				}
				insertAt := position
				if insertAt >= 0 {
					insertAt++
				}
				ch.InsertRecall(run, play, insertAt)
				c.AddRecallChannelRun(run)
				ret = append(ret, run)
			}
		}
	}
	return ret, nil
}

func (f *Factory) newRecall(rec *Recipe, level tactus.RecallLevel, b tactus.Behavior, ports []PortSpec) (*tactus.Recall, error) {
	r := tactus.NewTemplate(rec.Name, level, b)
	r.Version = f.Version
	r.BuildID = f.BuildID
	if err := newPorts(rec.Name, ports, r); err != nil {
		return nil, err
	}
	return r, nil
}
