package game

import "time"

// Phase is the staged completion commit state.
type Phase string

const (
	// PhaseIdle: nothing in flight.
	PhaseIdle Phase = "idle"
	// PhasePending: a batch is published as pending; the record is not yet
	// updated.
	PhasePending Phase = "pending"
	// PhaseCommitted: the record holds the batch; pending clears on the next
	// frame.
	PhaseCommitted Phase = "committed"
)

// commitState sequences one batch of newly completed words across two frame
// boundaries. There is at most one batch in flight; begin overwrites it.
type commitState struct {
	phase       Phase
	target      Record
	batch       []WordID
	pending     wordSet
	recent      wordSet
	recentUntil time.Time
}

func newCommitState() commitState {
	return commitState{phase: PhaseIdle, pending: wordSet{}, recent: wordSet{}}
}

// begin publishes batch as pending. target is installed at the next frame.
func (c *commitState) begin(target Record, batch []WordID) {
	c.phase = PhasePending
	c.target = target
	c.batch = batch
	c.pending = newWordSet(batch...)
}

// inFlight reports whether a target has been published but not installed.
func (c *commitState) inFlight() bool {
	return c.phase == PhasePending
}

// cancel drops an uninstalled batch.
func (c *commitState) cancel() {
	c.phase = PhaseIdle
	c.target = nil
	c.batch = nil
	c.pending = wordSet{}
}

// step advances one frame. install is non-nil when the pending batch must
// become the record now.
func (c *commitState) step(now time.Time, hold time.Duration) (install Record, changed bool) {
	switch c.phase {
	case PhasePending:
		install = c.target
		c.recent = newWordSet(c.batch...)
		c.recentUntil = now.Add(hold)
		c.phase = PhaseCommitted
		c.target = nil
		return install, true
	case PhaseCommitted:
		c.pending = wordSet{}
		c.batch = nil
		c.phase = PhaseIdle
		changed = true
	}
	if len(c.recent) > 0 && !now.Before(c.recentUntil) {
		c.recent = wordSet{}
		changed = true
	}
	return nil, changed
}

// busy reports whether a later step can still change something.
func (c *commitState) busy() bool {
	return c.phase != PhaseIdle || len(c.recent) > 0
}
