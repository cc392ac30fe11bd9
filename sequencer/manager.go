// Package sequencer owns one live session: the current pattern snapshot,
// transport, the step scheduler and the generation history around them.
package sequencer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go-groove/debug"
	"go-groove/groove"
	"go-groove/midi"
	"go-groove/patch"
	"go-groove/pattern"
	"go-groove/pipeline"
	"go-groove/scheduler"
	"go-groove/style"
)

// Tempo limits for live edits.
const (
	MinTempo = 20
	MaxTempo = 300
)

const historyLimit = 64

// Voice makes sound from scheduled triggers. midi.Output is one.
type Voice interface {
	Trigger(lane pattern.LaneID, step int, at, velocity float64, accent bool)
	Panic()
}

// Options for a new Manager.
type Options struct {
	Tempo     float64
	Seed      uint32
	Loop      bool
	LoopBars  int
	SwingPct  float64
	Tags      style.Tags
	Scheduler scheduler.Options
	Clock     scheduler.Clock // defaults to scheduler.WallClock
}

// Manager is safe for concurrent use. Readers get immutable pattern
// snapshots; writers serialise on editMu.
type Manager struct {
	pat atomic.Pointer[pattern.Pattern]

	editMu  sync.Mutex
	history []*pattern.Pattern

	mu      sync.Mutex
	playing bool
	loop    bool
	gen     int
	runSeed uint32
	tags    style.Tags
	last    pipeline.Output
	voice   Voice

	sched *scheduler.Scheduler
	clock scheduler.Clock
	hits  atomic.Int64

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// NewManager creates a stopped session with the default pattern.
func NewManager(opts Options) *Manager {
	if opts.Tempo <= 0 {
		opts.Tempo = 120
	}
	clock := opts.Clock
	if clock == nil {
		clock = scheduler.WallClock()
	}
	m := &Manager{
		loop:       opts.Loop,
		runSeed:    opts.Seed,
		tags:       opts.Tags,
		sched:      scheduler.New(opts.Scheduler),
		clock:      clock,
		UpdateChan: make(chan struct{}, 1),
	}
	p := pattern.New(clampTempo(opts.Tempo), opts.Seed).WithBars(max(opts.LoopBars, 1))
	if opts.SwingPct > 0 {
		p = p.WithSwing(opts.SwingPct)
	}
	m.pat.Store(p)
	return m
}

// SetVoice sets where triggers go. nil silences playback.
func (m *Manager) SetVoice(v Voice) {
	m.mu.Lock()
	m.voice = v
	m.mu.Unlock()
}

// Pattern returns the current snapshot. Never mutate it.
func (m *Manager) Pattern() *pattern.Pattern {
	return m.pat.Load()
}

// Transport is the scheduler's view of the session.
func (m *Manager) Transport() scheduler.Transport {
	p := m.pat.Load()
	m.mu.Lock()
	defer m.mu.Unlock()
	return scheduler.Transport{Playing: m.playing, Loop: m.loop, BPM: p.TempoBPM, Pattern: p}
}

// Play starts the scheduler. It reports false when the scheduler refused.
func (m *Manager) Play() bool {
	m.mu.Lock()
	if m.playing {
		m.mu.Unlock()
		return true
	}
	m.playing = true
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	if !m.sched.Start(m.Transport, m.clock, m.trigger) {
		m.mu.Lock()
		m.playing = false
		m.mu.Unlock()
		debug.Log("sched", "play refused")
		return false
	}
	done := m.sched.Done()
	go func() {
		<-done
		m.mu.Lock()
		if m.gen == gen {
			m.playing = false
		}
		m.mu.Unlock()
		m.notifyUpdate()
	}()
	m.notifyUpdate()
	return true
}

// Stop halts playback and silences the voice.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.playing = false
	v := m.voice
	m.mu.Unlock()

	m.sched.Stop()
	if v != nil {
		v.Panic()
	}
	m.notifyUpdate()
}

// TogglePlay flips the transport.
func (m *Manager) TogglePlay() {
	if m.Playing() {
		m.Stop()
		return
	}
	m.Play()
}

// Playing reports the transport state.
func (m *Manager) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Loop reports whether playback wraps.
func (m *Manager) Loop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loop
}

// SetLoop changes looping; it takes effect at the next bar end.
func (m *Manager) SetLoop(on bool) {
	m.mu.Lock()
	m.loop = on
	m.mu.Unlock()
	m.notifyUpdate()
}

func (m *Manager) trigger(lane pattern.LaneID, step int, at, velocity float64, accent bool) {
	m.hits.Add(1)
	m.mu.Lock()
	v := m.voice
	m.mu.Unlock()
	if v != nil {
		v.Trigger(lane, step, at, velocity, accent)
	}
}

// Hits is the number of triggers since start.
func (m *Manager) Hits() int64 {
	return m.hits.Load()
}

// Playhead returns the global step most recently scheduled, or -1 when
// stopped.
func (m *Manager) Playhead() int {
	if !m.Playing() {
		return -1
	}
	p := m.pat.Load()
	pos := m.sched.Position()
	return patch.Wrap(pos.Step-1, p.StepsPerBar)
}

// Apply runs ops through the patch engine and publishes the result.
func (m *Manager) Apply(ops ...patch.Op) patch.Result {
	return m.edit(ops, nil)
}

func (m *Manager) edit(ops []patch.Op, post func(*pattern.Pattern) *pattern.Pattern) patch.Result {
	m.editMu.Lock()
	old := m.pat.Load()
	res := patch.Apply(old, ops)
	next := res.Next
	if post != nil {
		next = post(next)
		res.Next = next
	}
	if len(res.Applied) > 0 || post != nil {
		m.history = append(m.history, old)
		if len(m.history) > historyLimit {
			m.history = m.history[len(m.history)-historyLimit:]
		}
		m.pat.Store(next)
	}
	m.editMu.Unlock()

	if len(res.Rejected) > 0 {
		debug.Log("patch", "%d applied, %d rejected", len(res.Applied), len(res.Rejected))
	}
	m.notifyUpdate()
	return res
}

// replace swaps in f(current) without recording history.
func (m *Manager) replace(f func(*pattern.Pattern) *pattern.Pattern) {
	m.editMu.Lock()
	m.pat.Store(f(m.pat.Load()))
	m.editMu.Unlock()
	m.notifyUpdate()
}

// Undo restores the snapshot before the last edit.
func (m *Manager) Undo() bool {
	m.editMu.Lock()
	n := len(m.history)
	if n == 0 {
		m.editMu.Unlock()
		return false
	}
	m.pat.Store(m.history[n-1])
	m.history = m.history[:n-1]
	m.editMu.Unlock()
	m.notifyUpdate()
	return true
}

// Toggle flips one step as a user edit.
func (m *Manager) Toggle(lane pattern.LaneID, step int) patch.Result {
	return m.Apply(patch.Toggle(m.Pattern(), lane, step))
}

// SetTempo clamps bpm to the live range. Already scheduled steps keep
// their times.
func (m *Manager) SetTempo(bpm float64) {
	bpm = clampTempo(bpm)
	m.replace(func(p *pattern.Pattern) *pattern.Pattern { return p.WithTempo(bpm) })
}

// SetSwing sets the global swing percentage.
func (m *Manager) SetSwing(pct float64) {
	m.replace(func(p *pattern.Pattern) *pattern.Pattern { return p.WithSwing(pct) })
}

// SetBars sets how many bars play before a non-looping stop.
func (m *Manager) SetBars(n int) {
	m.replace(func(p *pattern.Pattern) *pattern.Pattern { return p.WithBars(n) })
}

// Tags returns the style inputs for the next run.
func (m *Manager) Tags() style.Tags {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tags
}

// SetTags replaces the style inputs.
func (m *Manager) SetTags(t style.Tags) {
	m.mu.Lock()
	m.tags = t
	m.mu.Unlock()
	m.notifyUpdate()
}

// RunSeed is the seed the next Generate call will use.
func (m *Manager) RunSeed() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runSeed
}

// Generate runs the pipeline on the current pattern, remembers the output
// and advances the run seed so the next call proposes something new.
func (m *Manager) Generate() pipeline.Output {
	m.mu.Lock()
	seed, tags := m.runSeed, m.tags
	m.mu.Unlock()

	out := pipeline.Run(pipeline.Input{Seed: seed, Pattern: m.Pattern(), Tags: tags})

	m.mu.Lock()
	m.last = out
	m.runSeed++
	m.mu.Unlock()
	m.notifyUpdate()
	return out
}

// Last returns the most recent pipeline output.
func (m *Manager) Last() pipeline.Output {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Accept applies candidate i of the last run and bumps the variation index.
func (m *Manager) Accept(i int) (patch.Result, error) {
	m.mu.Lock()
	cands := m.last.ScoredCandidates
	m.mu.Unlock()
	if i < 0 || i >= len(cands) {
		return patch.Result{}, fmt.Errorf("no candidate %d (have %d)", i, len(cands))
	}
	c := cands[i]
	debug.Log("pipeline", "accept %s score=%.4f", c.ID, c.Score.Score)
	return m.edit(c.Ops, func(p *pattern.Pattern) *pattern.Pattern {
		return p.WithVariation(p.VariationIndex + 1)
	}), nil
}

// Groove applies a timing template and records it on the pattern.
func (m *Manager) Groove(templateID string, amount float64) patch.Result {
	p := m.Pattern()
	ops := groove.Apply(p, groove.Settings{
		TempoBPM:   p.TempoBPM,
		SwingPct:   p.SwingPct,
		TemplateID: templateID,
		Amount:     amount,
	})
	_, id := groove.Lookup(templateID)
	return m.edit(ops, func(p *pattern.Pattern) *pattern.Pattern {
		return p.WithGroove(id, amount)
	})
}

// RecordHit handles a live pad hit. While playing it sets the lane's step
// under the playhead; stopped, it only auditions the voice.
func (m *Manager) RecordHit(lane pattern.LaneID, velocity float64) {
	if !m.Playing() {
		m.trigger(lane, 0, m.clock(), velocity, false)
		return
	}
	p := m.Pattern()
	l, ok := p.Lane(lane)
	if !ok {
		return
	}
	step := scheduler.LaneStep(m.Playhead(), l.PlayStartOffsetSteps, p.StepsPerBar)
	m.Apply(patch.Hit(lane, step, velocity, l.Role, patch.ReasonUser))
}

// ListenInput feeds live hits into RecordHit until ctx is done.
func (m *Manager) ListenInput(ctx context.Context, hits <-chan midi.LaneHit) {
	for {
		select {
		case <-ctx.Done():
			return
		case h, ok := <-hits:
			if !ok {
				return
			}
			m.RecordHit(h.Lane, h.Velocity)
		}
	}
}

// Snapshot packs the session for saving.
func (m *Manager) Snapshot() (Session, error) {
	m.mu.Lock()
	tags, loop, seed := m.tags, m.loop, m.runSeed
	m.mu.Unlock()
	return NewSession(m.Pattern(), tags, loop, seed)
}

// Restore replaces the session from a save. Playback keeps running.
func (m *Manager) Restore(s Session) error {
	p, err := s.Pattern()
	if err != nil {
		return err
	}
	m.editMu.Lock()
	m.history = append(m.history, m.pat.Load())
	m.pat.Store(p)
	m.editMu.Unlock()

	m.mu.Lock()
	m.tags = s.Style.Tags()
	m.loop = s.Loop
	m.runSeed = s.RunSeed
	m.last = pipeline.Output{}
	m.mu.Unlock()
	m.notifyUpdate()
	return nil
}

func (m *Manager) notifyUpdate() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}

func clampTempo(bpm float64) float64 {
	if bpm < MinTempo {
		return MinTempo
	}
	if bpm > MaxTempo {
		return MaxTempo
	}
	return bpm
}
