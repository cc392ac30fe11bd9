package midi

import (
	"bytes"
	"errors"
	"sort"
	"testing"

	"go-groove/patch"
	"go-groove/pattern"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestKitsCoverDefaultLanes(t *testing.T) {
	for _, name := range KitNames() {
		kit := GetKit(name)
		for _, id := range pattern.DefaultLaneIDs {
			n, ok := kit.Note(id)
			if !ok {
				t.Errorf("kit %s has no note for %s", name, id)
				continue
			}
			if back, _ := kit.Lane(n); back != id {
				t.Errorf("kit %s: note %d maps back to %s, want %s", name, n, back, id)
			}
		}
	}
	if GetKit("nope").Name != Kits[DefaultKit].Name {
		t.Error("unknown kit did not fall back")
	}
}

func TestVelocity(t *testing.T) {
	tests := []struct {
		v      float64
		accent bool
		want   uint8
	}{
		{1, false, 127},
		{1, true, 127},
		{0.5, false, 64},
		{0.5, true, 84},
		{0, false, 1},
	}
	for _, tt := range tests {
		if got := Velocity(tt.v, tt.accent); got != tt.want {
			t.Errorf("Velocity(%v, %v) = %d, want %d", tt.v, tt.accent, got, tt.want)
		}
	}
}

type fakePort struct {
	msgs []gomidi.Message
	err  error
}

func (f *fakePort) send(m gomidi.Message) error {
	f.msgs = append(f.msgs, m)
	return f.err
}

func TestOutputDispatchesInTimeOrder(t *testing.T) {
	port := &fakePort{}
	out := NewOutput(port.send, func() float64 { return 0 }, OutputOptions{Kit: "gm", Channel: 10})

	out.Trigger(pattern.Snare, 4, 0.5, 1, false)
	out.Trigger(pattern.Kick, 0, 0.2, 0.8, true)
	out.Trigger("unmapped", 0, 0.1, 1, false)
	if out.Pending() != 4 {
		t.Fatalf("pending = %d, want 4", out.Pending())
	}

	if next := out.flushDue(0.1); next <= 0 {
		t.Fatalf("nothing should be due yet, next=%v", next)
	}
	out.flushDue(0.25)
	if len(port.msgs) != 2 {
		t.Fatalf("sent %d messages by 0.25s, want kick on+off", len(port.msgs))
	}
	var ch, key, vel uint8
	if !port.msgs[0].GetNoteOn(&ch, &key, &vel) || key != 36 || ch != 9 || vel != 122 {
		t.Fatalf("first message = %s", port.msgs[0])
	}
	if !port.msgs[1].GetNoteOff(&ch, &key, &vel) || key != 36 {
		t.Fatalf("second message = %s", port.msgs[1])
	}

	if next := out.flushDue(10); next != -1 {
		t.Fatalf("queue not drained, next=%v", next)
	}
	if out.Sent() != 4 {
		t.Fatalf("sent = %d", out.Sent())
	}
}

func TestOutputSurvivesSendErrors(t *testing.T) {
	port := &fakePort{err: errors.New("unplugged")}
	out := NewOutput(port.send, func() float64 { return 0 }, OutputOptions{})
	out.Trigger(pattern.Hat, 0, 0, 0.6, false)
	out.flushDue(1)
	if out.Pending() != 0 || len(port.msgs) != 2 {
		t.Fatalf("pending=%d sent=%d", out.Pending(), len(port.msgs))
	}
}

func TestPanicClearsQueue(t *testing.T) {
	port := &fakePort{}
	out := NewOutput(port.send, func() float64 { return 0 }, OutputOptions{})
	out.Trigger(pattern.Hat, 0, 5, 0.6, false)
	out.Panic()
	if out.Pending() != 0 {
		t.Fatal("queue not cleared")
	}
	if len(port.msgs) != len(out.Kit().Notes) {
		t.Fatalf("sent %d note offs", len(port.msgs))
	}
}

func TestMatchPort(t *testing.T) {
	ports := []string{"IAC Driver Bus 1", "TR-8S", "TR-8S CTRL"}
	tests := []struct {
		name, want string
		ok         bool
	}{
		{"TR-8S", "TR-8S", true},
		{"iac", "IAC Driver Bus 1", true},
		{"ctrl", "TR-8S CTRL", true},
		{"", "", false},
		{"rd-8", "", false},
	}
	for _, tt := range tests {
		got, ok := MatchPort(ports, tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("MatchPort(%q) = %q, %v", tt.name, got, ok)
		}
	}
}

func TestWatcherScan(t *testing.T) {
	ports := []string{"a", "b"}
	w := newWatcher(func() ([]string, error) { return ports, nil }, 0)

	w.scan()
	got := drain(w)
	if len(got) != 2 || got[0].Type != PortConnected {
		t.Fatalf("first scan events = %+v", got)
	}

	ports = []string{"b", "c"}
	w.scan()
	got = drain(w)
	if len(got) != 2 {
		t.Fatalf("second scan events = %+v", got)
	}
	sort.Slice(got, func(i, j int) bool { return got[i].Name < got[j].Name })
	if got[0].Name != "a" || got[0].Type != PortDisconnected || got[1].Name != "c" || got[1].Type != PortConnected {
		t.Fatalf("second scan events = %+v", got)
	}
}

func TestWatcherSkipsFailedScan(t *testing.T) {
	w := newWatcher(func() ([]string, error) { return nil, ErrScanTimeout }, 0)
	w.seen["a"] = true
	w.scan()
	if len(drain(w)) != 0 || len(w.Ports()) != 1 {
		t.Fatal("failed scan changed state")
	}
}

func drain(w *Watcher) []PortEvent {
	var out []PortEvent
	for {
		select {
		case e := <-w.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestInputMapsNotesToLanes(t *testing.T) {
	in := NewInput(GetKit("gm"))
	in.handle(gomidi.NoteOn(9, 38, 127))
	in.handle(gomidi.NoteOn(9, 38, 0))
	in.handle(gomidi.NoteOn(9, 99, 100))
	in.handle(gomidi.NoteOff(9, 38))

	select {
	case h := <-in.Hits():
		if h.Lane != pattern.Snare || h.Velocity != 1 {
			t.Fatalf("hit = %+v", h)
		}
	default:
		t.Fatal("no hit")
	}
	select {
	case h := <-in.Hits():
		t.Fatalf("unexpected hit %+v", h)
	default:
	}
}

func noteOns(t *testing.T, data []byte) []uint32 {
	t.Helper()
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(s.Tracks) != 2 {
		t.Fatalf("got %d tracks", len(s.Tracks))
	}
	var ticks []uint32
	var abs uint32
	for _, ev := range s.Tracks[1] {
		abs += ev.Delta
		var ch, key, vel uint8
		if gomidi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
			ticks = append(ticks, abs)
		}
	}
	return ticks
}

func TestWriteSMF(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSMF(&buf, pattern.New(120, 1), SMFOptions{Kit: "gm", Bars: 2}); err != nil {
		t.Fatal(err)
	}
	ticks := noteOns(t, buf.Bytes())
	// four kicks and eight hats per bar
	if len(ticks) != 24 {
		t.Fatalf("got %d note ons, want 24", len(ticks))
	}
	if ticks[0] != 0 || ticks[len(ticks)-1] != uint32(30*ticksPerStep) {
		t.Fatalf("first=%d last=%d", ticks[0], ticks[len(ticks)-1])
	}
}

func TestWriteSMFBakesSwing(t *testing.T) {
	p := patch.Apply(pattern.New(120, 1).WithSwing(60), []patch.Op{
		patch.ClearStep{LaneID: pattern.Kick, StepIndex: 0},
		patch.ClearStep{LaneID: pattern.Kick, StepIndex: 4},
		patch.ClearStep{LaneID: pattern.Kick, StepIndex: 8},
		patch.ClearStep{LaneID: pattern.Kick, StepIndex: 12},
		patch.SetLaneSwing{LaneID: pattern.Hat, SwingPct: 60},
		patch.Hit(pattern.Hat, 1, 0.6, pattern.RolePulse, ""),
	}).Next
	var buf bytes.Buffer
	if err := WriteSMF(&buf, p, SMFOptions{Bars: 1}); err != nil {
		t.Fatal(err)
	}
	ticks := noteOns(t, buf.Bytes())
	// 10% of a 240-tick step
	if len(ticks) < 2 || ticks[1] != ticksPerStep+24 {
		t.Fatalf("ticks = %v", ticks)
	}
}

func TestWriteSMFRejectsInvalid(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSMF(&buf, nil, SMFOptions{}); err == nil {
		t.Fatal("expected error")
	}
}
