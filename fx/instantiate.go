package fx

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tactus-audio/tactus"
)

// Instantiate starts the run id on a: for every container of the direction
// it duplicates the audio-level template and the channel-run templates,
// adds the copies next to their templates and run-initializes them,
// audio-level recalls first. It returns the new top-level runtime recalls.
//
// On error the recalls created so far are cancelled and removed.
func Instantiate(a *tactus.Audio, play bool, id tactus.RecallID) ([]*tactus.Recall, error) {
	var audioRuns, channelRuns []*tactus.Recall
	fail := func(err error) ([]*tactus.Recall, error) {
		for _, r := range append(channelRuns, audioRuns...) {
			r.Cancel()
			r.Remove()
		}
		return nil, err
	}
	for _, c := range a.RecallContainers() {
		if c.IsPlay != play {
			continue
		}
		if t := c.RecallAudio(); t != nil && t.IsTemplate() {
			dup, err := t.Duplicate(id)
			if err != nil {
				return fail(err)
			}
			a.AddRecall(dup, play)
			audioRuns = append(audioRuns, dup)
		}
		for _, t := range c.RecallChannelRuns() {
			if !t.IsTemplate() {
				continue
			}
			ch := t.Channel()
			if ch == nil {
				continue
			}
			dup, err := t.Duplicate(id)
			if err != nil {
				return fail(err)
			}
			ch.AddRecall(dup, play)
			c.AddRecallChannelRun(dup)
			channelRuns = append(channelRuns, dup)
		}
	}
	ret := append(audioRuns, channelRuns...)
	for _, r := range ret {
		if err := r.RunInit(); err != nil {
			return fail(fmt.Errorf("instantiating %s on %s: %w", r.Name, a.Name, err))
		}
	}
	logrus.WithFields(logrus.Fields{
		"function": "fx.Instantiate",
		"audio":    a.Name,
		"run":      id.String(),
		"recalls":  len(ret),
	}).Debug("run started")
	return ret, nil
}

// Cancel cancels every runtime recall of the run id on a. The recalls are
// removed by the next sweep. The zero id cancels every run.
func Cancel(a *tactus.Audio, id tactus.RecallID) int {
	var live []*tactus.Recall
	for _, r := range a.RuntimeRecalls(id) {
		if !r.State().Terminal() {
			live = append(live, r)
		}
	}
	for _, r := range live {
		r.Cancel()
	}
	return len(live)
}
