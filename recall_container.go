package tactus

import "sync"

// RecallContainer groups the recalls created for one direction (play or
// recall) of one effect instantiation: the audio-level singleton, the
// channel-level recalls and the channel-run recalls (templates and runtime
// instances). It is owned by its Audio and referenced by every recall
// created under it.
type RecallContainer struct {
	Recipe string
	IsPlay bool

	mu          sync.RWMutex
	recallAudio *Recall
	channels    []*Recall
	channelRuns []*Recall
}

func NewRecallContainer(recipe string, play bool) *RecallContainer {
	return &RecallContainer{Recipe: recipe, IsPlay: play}
}

func (c *RecallContainer) RecallAudio() *Recall {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recallAudio
}

// SetRecallAudio sets the audio-level recall and points its container
// back-reference here.
func (c *RecallContainer) SetRecallAudio(r *Recall) {
	c.mu.Lock()
	c.recallAudio = r
	c.mu.Unlock()
	if r != nil {
		r.SetContainer(c)
	}
}

func (c *RecallContainer) AddRecallChannel(r *Recall) {
	c.mu.Lock()
	c.channels = append(c.channels, r)
	c.mu.Unlock()
	r.SetContainer(c)
}

func (c *RecallContainer) AddRecallChannelRun(r *Recall) {
	c.mu.Lock()
	c.channelRuns = append(c.channelRuns, r)
	c.mu.Unlock()
	r.SetContainer(c)
}

func (c *RecallContainer) RecallChannels() []*Recall {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Recall(nil), c.channels...)
}

func (c *RecallContainer) RecallChannelRuns() []*Recall {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Recall(nil), c.channelRuns...)
}

// FindChannel returns the channel-level recall bound to ch, or nil.
func (c *RecallContainer) FindChannel(ch *Channel) *Recall {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.channels {
		if r.Channel() == ch {
			return r
		}
	}
	return nil
}

// FindChannelRun returns the channel-run recalls bound to ch that belong to
// the run id. The zero id finds the templates.
func (c *RecallContainer) FindChannelRun(ch *Channel, id RecallID) []*Recall {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ret []*Recall
	for _, r := range c.channelRuns {
		if r.Channel() == ch && r.ID() == id {
			ret = append(ret, r)
		}
	}
	return ret
}

// Remove forgets r wherever it is in the container.
func (c *RecallContainer) Remove(r *Recall) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recallAudio == r {
		c.recallAudio = nil
	}
	c.channels = removeRecall(c.channels, r)
	c.channelRuns = removeRecall(c.channelRuns, r)
}

// Empty reports whether the container holds no recalls at all.
func (c *RecallContainer) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recallAudio == nil && len(c.channels) == 0 && len(c.channelRuns) == 0
}

func removeRecall(list []*Recall, r *Recall) []*Recall {
	for i, x := range list {
		if x == r {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func insertRecall(list []*Recall, r *Recall, position int) []*Recall {
	if position < 0 || position >= len(list) {
		return append(list, r)
	}
	list = append(list, nil)
	copy(list[position+1:], list[position:])
	list[position] = r
	return list
}
