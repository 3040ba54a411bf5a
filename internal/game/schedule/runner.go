package schedule

import "github.com/cory-johannsen/npcmod/internal/game/clock"

// Step is the result of one Runner.Tick.
type Step struct {
	// Entry is the entry in effect at the tick time.
	Entry Entry
	// Until is the start of the following entry.
	Until clock.MilitaryTime
	// Started is true when Entry differs from the previous tick's entry, or
	// when evaluation resumes after preemption.
	Started bool
	// Preempted is true while the runner is suspended. Entry still reports
	// the last evaluated entry.
	Preempted bool
	// Idle is true when there is nothing to run: the timeline is empty,
	// inactive, or uninitialized.
	Idle bool
}

// Runner re-evaluates a timeline on every host tick.
type Runner struct {
	tl        *Timeline
	current   Entry
	has       bool
	preempted bool
	resumed   bool
}

// NewRunner returns a Runner over tl.
func NewRunner(tl *Timeline) *Runner {
	return &Runner{tl: tl}
}

// Timeline returns the evaluated timeline.
func (r *Runner) Timeline() *Timeline { return r.tl }

// Preempt suspends (on=true) or resumes (on=false) evaluation. The current
// entry is retained across the suspension and reported as Started again on
// the first tick after resuming.
func (r *Runner) Preempt(on bool) {
	if on == r.preempted {
		return
	}
	r.preempted = on
	if !on {
		r.resumed = true
	}
}

// Preempted reports whether evaluation is suspended.
func (r *Runner) Preempted() bool { return r.preempted }

// Tick evaluates the timeline at now.
func (r *Runner) Tick(now clock.MilitaryTime) Step {
	if r.tl == nil || r.tl.State() != Active || !r.tl.Initialized() {
		return Step{Idle: true}
	}
	if r.preempted {
		return Step{Entry: r.current, Preempted: true, Idle: !r.has}
	}
	e, ok := r.tl.At(now)
	if !ok {
		return Step{Idle: true}
	}
	next, _ := r.tl.Next(now)
	started := !r.has || e.seq != r.current.seq || r.resumed
	r.current, r.has, r.resumed = e, true, false
	return Step{Entry: e, Until: next.Start, Started: started}
}
