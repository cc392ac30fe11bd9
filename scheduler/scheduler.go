// Package scheduler is the lookahead step clock. A ticker wakes every
// Interval, re-reads transport state and hands every step that falls inside
// the schedule-ahead window to a trigger callback with an absolute time.
// The scheduler decides when, never how: it owns no voices.
package scheduler

import (
	"sync"
	"time"

	"go-groove/debug"
	"go-groove/pattern"
	"go-groove/rng"
)

// Timing defaults.
const (
	DefaultInterval   = 25 * time.Millisecond
	DefaultWindow     = 120 * time.Millisecond
	DefaultStartDelay = 50 * time.Millisecond
	MaxSwingFraction  = 0.12
)

// Transport is what the scheduler re-reads on every tick.
type Transport struct {
	Playing bool
	Loop    bool
	BPM     float64
	Pattern *pattern.Pattern
}

// StateFunc returns the current transport snapshot.
type StateFunc func() Transport

// Clock returns monotonic seconds. Trigger times use the same units.
type Clock func() float64

// TriggerFunc receives one scheduled hit. It must not block.
type TriggerFunc func(lane pattern.LaneID, step int, at, velocity float64, accent bool)

// WallClock returns a Clock counting seconds since the call.
func WallClock() Clock {
	t0 := time.Now()
	return func() float64 { return time.Since(t0).Seconds() }
}

// Options configure timing. Zero fields take the defaults.
type Options struct {
	Interval   time.Duration
	Window     time.Duration
	StartDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.StartDelay <= 0 {
		o.StartDelay = DefaultStartDelay
	}
	return o
}

// Position is the scheduling cursor.
type Position struct {
	Bar  int
	Step int
}

// Scheduler is one independent step clock. The zero value is not usable;
// call New.
type Scheduler struct {
	opts Options

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	state   StateFunc
	clock   Clock
	trigger TriggerFunc

	nextTime float64
	pos      Position
}

// New creates a stopped scheduler.
func New(opts Options) *Scheduler {
	return &Scheduler{opts: opts.withDefaults()}
}

type hit struct {
	lane     pattern.LaneID
	step     int
	at       float64
	velocity float64
	accent   bool
}

// Start moves Stopped -> Running. It refuses, returning false, when already
// running or when the current pattern has no lanes.
func (s *Scheduler) Start(state StateFunc, clock Clock, trigger TriggerFunc) bool {
	stop, done, ok := s.prime(state, clock, trigger)
	if !ok {
		return false
	}
	go s.loop(stop, done)
	return true
}

// prime sets up a run and hands back the channels that identify it.
func (s *Scheduler) prime(state StateFunc, clock Clock, trigger TriggerFunc) (stop, done chan struct{}, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || state == nil || clock == nil || trigger == nil {
		return nil, nil, false
	}
	st := state()
	if !st.Pattern.Valid() || st.BPM <= 0 {
		debug.Log("sched", "refusing to start: valid=%v bpm=%.1f", st.Pattern.Valid(), st.BPM)
		return nil, nil, false
	}
	s.state, s.clock, s.trigger = state, clock, trigger
	s.nextTime = clock() + s.opts.StartDelay.Seconds()
	s.pos = Position{}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	debug.Log("sched", "start bpm=%.1f loop=%v", st.BPM, st.Loop)
	return s.stop, s.done, true
}

func (s *Scheduler) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	if !s.tick(stop) {
		return
	}
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.tick(stop) {
				return
			}
		}
	}
}

// Stop moves Running -> Stopped. Safe to call any number of times.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked("stop")
}

func (s *Scheduler) stopLocked(why string) {
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
	debug.Log("sched", "stopped (%s) at bar=%d step=%d", why, s.pos.Bar, s.pos.Step)
}

// Running reports the state.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Position returns the next step to be scheduled.
func (s *Scheduler) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Done is closed when the loop goroutine of the last Start has exited.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		c := make(chan struct{})
		close(c)
		return c
	}
	return s.done
}

// tick schedules everything inside the window and reports whether the
// scheduler is still running. Triggers run after the lock is released.
func (s *Scheduler) tick(stop chan struct{}) bool {
	s.mu.Lock()
	if !s.running || s.stop != stop {
		s.mu.Unlock()
		return false
	}
	st := s.state()
	p := st.Pattern
	if !st.Playing || !p.Valid() || st.BPM <= 0 {
		s.stopLocked("transport")
		s.mu.Unlock()
		return false
	}

	stepDur := StepDuration(st.BPM)
	horizon := s.clock() + s.opts.Window.Seconds()
	var hits []hit
	for s.nextTime < horizon {
		hits = s.scheduleStep(p, stepDur, hits)
		s.nextTime += stepDur
		s.pos.Step++
		if s.pos.Step >= p.StepsPerBar {
			s.pos.Step = 0
			s.pos.Bar++
			if !st.Loop && s.pos.Bar >= max(p.Bars, 1) {
				s.stopLocked("end of pattern")
				break
			}
		}
	}
	running, trigger, bar := s.running, s.trigger, s.pos.Bar
	s.mu.Unlock()

	for _, h := range hits {
		trigger(h.lane, h.step, h.at, h.velocity, h.accent)
	}
	if len(hits) > 0 {
		debug.LogEvery(64, "sched", "tick bar=%d hits=%d", bar, len(hits))
	}
	return running
}

func (s *Scheduler) scheduleStep(p *pattern.Pattern, stepDur float64, hits []hit) []hit {
	global := s.pos.Step
	for _, l := range p.Lanes {
		local := LaneStep(global, l.PlayStartOffsetSteps, p.StepsPerBar)
		if local >= len(l.Steps) {
			continue
		}
		step := l.Steps[local]
		if !ShouldFire(step, p.Seed, s.pos.Bar, l.ID, global) {
			continue
		}
		at := s.nextTime + SwingDelay(global, p.SwingPct, l.LaneSwingPct, stepDur) + float64(step.MicroShiftMs)/1000
		hits = append(hits, hit{
			lane:     l.ID,
			step:     local,
			at:       at,
			velocity: step.Velocity,
			accent:   step.Accent,
		})
	}
	return hits
}

// StepDuration is one sixteenth at bpm, in seconds.
func StepDuration(bpm float64) float64 {
	return 60 / bpm / 4
}

// LaneStep maps the global step to a lane's own step, rotated by offset.
func LaneStep(global, offset, stepsPerBar int) int {
	if stepsPerBar <= 0 {
		return 0
	}
	return ((global-offset)%stepsPerBar + stepsPerBar) % stepsPerBar
}

// SwingDelay is the delay in seconds for the step at global index. Only odd
// steps swing; the effective amount averages global and lane swing.
func SwingDelay(global int, globalPct, lanePct, stepDur float64) float64 {
	if global%2 == 0 {
		return 0
	}
	frac := ((globalPct+lanePct)/2 - 50) / 100
	if frac <= 0 {
		return 0
	}
	if frac > MaxSwingFraction {
		frac = MaxSwingFraction
	}
	return frac * stepDur
}

// ShouldFire decides whether a step sounds in the given bar. The roll for a
// (seed, bar, lane, step) is fixed, so replays agree; a new bar rolls again.
func ShouldFire(s pattern.Step, seed uint32, bar int, lane pattern.LaneID, global int) bool {
	switch {
	case !s.On || s.Probability <= 0:
		return false
	case s.Probability >= 1:
		return true
	}
	return rng.Roll(seed, bar, lane, global) <= s.Probability
}
