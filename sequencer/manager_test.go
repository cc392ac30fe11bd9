package sequencer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-groove/midi"
	"go-groove/patch"
	"go-groove/pattern"
	"go-groove/style"
)

type recordingVoice struct {
	mu     sync.Mutex
	hits   []pattern.LaneID
	panics int
}

func (v *recordingVoice) Trigger(lane pattern.LaneID, step int, at, velocity float64, accent bool) {
	v.mu.Lock()
	v.hits = append(v.hits, lane)
	v.mu.Unlock()
}

func (v *recordingVoice) Panic() {
	v.mu.Lock()
	v.panics++
	v.mu.Unlock()
}

func (v *recordingVoice) count() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.hits), v.panics
}

// jumpClock moves ten seconds per call so one tick covers a whole bar.
func jumpClock() func() float64 {
	var n atomic.Int64
	return func() float64 { return float64(n.Add(1)) * 10 }
}

func TestNewManagerClampsTempo(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 120},
		{500, MaxTempo},
		{5, MinTempo},
		{128, 128},
	}
	for _, tt := range tests {
		m := NewManager(Options{Tempo: tt.in})
		if got := m.Pattern().TempoBPM; got != tt.want {
			t.Errorf("tempo %v: got %v, want %v", tt.in, got, tt.want)
		}
	}

	m := NewManager(Options{LoopBars: 4, SwingPct: 58})
	if p := m.Pattern(); p.Bars != 4 || p.SwingPct != 58 {
		t.Errorf("bars=%d swing=%v", p.Bars, p.SwingPct)
	}
}

func TestToggleAndUndo(t *testing.T) {
	m := NewManager(Options{Seed: 1})
	before := m.Pattern()

	res := m.Toggle(pattern.Snare, 4)
	if len(res.Applied) != 1 {
		t.Fatalf("toggle on: %+v", res.Rejected)
	}
	if s, _ := m.Pattern().Step(pattern.Snare, 4); !s.On {
		t.Fatal("snare 4 should be on")
	}
	if s, _ := before.Step(pattern.Snare, 4); s.On {
		t.Fatal("old snapshot was mutated")
	}

	m.Toggle(pattern.Snare, 4)
	if s, _ := m.Pattern().Step(pattern.Snare, 4); s.On {
		t.Fatal("second toggle should clear")
	}

	if !m.Undo() || !m.Undo() {
		t.Fatal("expected two undo levels")
	}
	if m.Pattern() != before {
		t.Error("undo should restore the original snapshot")
	}
	if m.Undo() {
		t.Error("undo past the start")
	}
}

func TestRejectedEditSkipsHistory(t *testing.T) {
	m := NewManager(Options{})
	res := m.Apply(patch.ClearStep{LaneID: "cowbell", StepIndex: 0})
	if len(res.Rejected) != 1 {
		t.Fatalf("rejected = %d", len(res.Rejected))
	}
	if m.Undo() {
		t.Error("a fully rejected edit should not be undoable")
	}
}

func TestHistoryIsBounded(t *testing.T) {
	m := NewManager(Options{})
	for i := 0; i < historyLimit+10; i++ {
		m.Toggle(pattern.Perc, i%16)
	}
	n := 0
	for m.Undo() {
		n++
	}
	if n != historyLimit {
		t.Errorf("undo levels = %d, want %d", n, historyLimit)
	}
}

func TestTransportEditsAreNotUndoable(t *testing.T) {
	m := NewManager(Options{})
	m.SetTempo(999)
	m.SetSwing(60)
	m.SetBars(2)
	p := m.Pattern()
	if p.TempoBPM != MaxTempo || p.SwingPct != 60 || p.Bars != 2 {
		t.Errorf("tempo=%v swing=%v bars=%d", p.TempoBPM, p.SwingPct, p.Bars)
	}
	if m.Undo() {
		t.Error("transport edits should not enter history")
	}
}

func TestGenerateAndAccept(t *testing.T) {
	m := NewManager(Options{Seed: 7})
	if _, err := m.Accept(0); err == nil {
		t.Fatal("accept before generate should fail")
	}

	out := m.Generate()
	if len(out.ScoredCandidates) != 1 {
		t.Fatalf("candidates = %d", len(out.ScoredCandidates))
	}
	if m.RunSeed() != 8 {
		t.Errorf("run seed = %d, want 8", m.RunSeed())
	}
	if len(m.Last().ScoredCandidates) != 1 {
		t.Error("Last should return the run")
	}

	res, err := m.Accept(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Applied) == 0 {
		t.Error("nothing applied")
	}
	if got := m.Pattern().VariationIndex; got != 1 {
		t.Errorf("variation = %d, want 1", got)
	}
	if _, err := m.Accept(3); err == nil {
		t.Error("out of range accept should fail")
	}

	if !m.Undo() || m.Pattern().VariationIndex != 0 {
		t.Error("accept should be undoable")
	}
}

func TestGenerateHuckabyOffersThree(t *testing.T) {
	m := NewManager(Options{Seed: 3, Tags: style.Tags{ArtistLenses: []string{style.Huckaby}}})
	if n := len(m.Generate().ScoredCandidates); n != 3 {
		t.Errorf("candidates = %d, want 3", n)
	}
	m.SetTags(style.Tags{})
	if n := len(m.Generate().ScoredCandidates); n != 1 {
		t.Errorf("after SetTags: candidates = %d, want 1", n)
	}
}

func TestGrooveRecordsTemplate(t *testing.T) {
	m := NewManager(Options{})
	m.Groove("MPC", 1)
	p := m.Pattern()
	if p.GrooveTemplateID != "mpc" || p.GrooveAmount != 1 {
		t.Errorf("groove = %q %v", p.GrooveTemplateID, p.GrooveAmount)
	}
	if s, _ := p.Step(pattern.Hat, 1); s.MicroShiftMs == 0 {
		t.Error("odd hat step should be shifted")
	}

	m.Groove("no-such-feel", 1)
	if got := m.Pattern().GrooveTemplateID; got != "straight" {
		t.Errorf("unknown template = %q, want straight", got)
	}
}

func TestRecordHitWhileStoppedAuditions(t *testing.T) {
	m := NewManager(Options{Clock: jumpClock()})
	v := &recordingVoice{}
	m.SetVoice(v)
	before := m.Pattern()

	m.RecordHit(pattern.Snare, 0.9)
	if n, _ := v.count(); n != 1 {
		t.Errorf("voice hits = %d, want 1", n)
	}
	if m.Pattern() != before {
		t.Error("stopped hit should not edit the pattern")
	}
	if m.Playhead() != -1 {
		t.Errorf("playhead = %d while stopped", m.Playhead())
	}
}

func TestListenInputStops(t *testing.T) {
	m := NewManager(Options{Clock: jumpClock()})
	v := &recordingVoice{}
	m.SetVoice(v)

	hits := make(chan midi.LaneHit, 2)
	hits <- midi.LaneHit{Lane: pattern.Kick, Velocity: 1}
	close(hits)

	done := make(chan struct{})
	go func() {
		m.ListenInput(context.Background(), hits)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ListenInput did not return on close")
	}
	if n, _ := v.count(); n != 1 {
		t.Errorf("hits = %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.ListenInput(ctx, make(chan midi.LaneHit))
}

func TestPlayOneBarThenStop(t *testing.T) {
	m := NewManager(Options{Clock: jumpClock()})
	v := &recordingVoice{}
	m.SetVoice(v)

	if !m.Play() {
		t.Fatal("play refused")
	}
	deadline := time.Now().Add(2 * time.Second)
	for m.Playing() {
		if time.Now().After(deadline) {
			t.Fatal("non-looping playback never ended")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Default pattern: four kicks and eight hats.
	if n, _ := v.count(); n != 12 {
		t.Errorf("hits = %d, want 12", n)
	}
	if m.Hits() != 12 {
		t.Errorf("Hits() = %d", m.Hits())
	}
}

func TestStopSilencesVoice(t *testing.T) {
	m := NewManager(Options{Loop: true})
	v := &recordingVoice{}
	m.SetVoice(v)

	if !m.Play() || !m.Playing() {
		t.Fatal("should be playing")
	}
	if !m.Play() {
		t.Error("second play should report true")
	}
	m.TogglePlay()
	if m.Playing() {
		t.Error("toggle should stop")
	}
	if _, panics := v.count(); panics != 1 {
		t.Errorf("panics = %d, want 1", panics)
	}
	m.Stop()
	if m.Playing() {
		t.Error("still playing")
	}
}

func TestSnapshotRestore(t *testing.T) {
	tags := style.Tags{CityProfile: "Detroit", ArtistLenses: []string{"Mills"}, Mode: style.ModePeakTime}
	a := NewManager(Options{Seed: 11, Loop: true, Tags: tags})
	a.Toggle(pattern.Clap, 12)
	a.Generate()

	sess, err := a.Snapshot()
	if err != nil {
		t.Fatal(err)
	}

	b := NewManager(Options{})
	if err := b.Restore(sess); err != nil {
		t.Fatal(err)
	}
	if b.Pattern().Hash() != a.Pattern().Hash() {
		t.Error("pattern differs after restore")
	}
	if !b.Loop() || b.RunSeed() != 12 {
		t.Errorf("loop=%v runSeed=%d", b.Loop(), b.RunSeed())
	}
	if got := b.Tags(); got.CityProfile != "Detroit" || got.Mode != style.ModePeakTime || len(got.ArtistLenses) != 1 {
		t.Errorf("tags = %+v", got)
	}
	if !b.Undo() {
		t.Error("restore should be undoable")
	}

	if err := b.Restore(Session{}); err == nil {
		t.Error("empty session should fail")
	}
}

func TestUpdateChanCoalesces(t *testing.T) {
	m := NewManager(Options{})
	m.SetLoop(true)
	m.SetSwing(55)
	select {
	case <-m.UpdateChan:
	default:
		t.Fatal("expected an update")
	}
	select {
	case <-m.UpdateChan:
		t.Fatal("updates should coalesce")
	default:
	}
}
