package midi

import (
	"fmt"
	"io"
	"math"
	"sort"

	"go-groove/pattern"
	"go-groove/scheduler"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// PPQ is the SMF resolution.
const PPQ = 960

const ticksPerStep = PPQ / 4

// SMFOptions control file export.
type SMFOptions struct {
	Kit     string
	Channel int // 1-16
	Bars    int // bars to render, probability rolled per bar
}

type timed struct {
	tick uint32
	off  bool
	seq  int
	msg  gomidi.Message
}

// WriteSMF renders p as a format 1 Standard MIDI File: a tempo track and
// one drum track. Swing, micro-shift and probability are baked in exactly
// as the scheduler would play them.
func WriteSMF(w io.Writer, p *pattern.Pattern, opts SMFOptions) error {
	if !p.Valid() {
		return fmt.Errorf("write smf: invalid pattern")
	}
	bpm := p.TempoBPM
	if bpm <= 0 {
		bpm = 120
	}
	bars := opts.Bars
	if bars < 1 {
		bars = max(p.Bars, 1)
	}
	ch := opts.Channel
	if ch < 1 || ch > 16 {
		ch = 10
	}
	channel := uint8(ch - 1)
	kit := GetKit(opts.Kit)

	events := renderEvents(p, kit, channel, bpm, bars)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(PPQ)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(bpm))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return fmt.Errorf("add tempo track: %w", err)
	}

	var drums smf.Track
	drums.Add(0, smf.MetaTrackSequenceName(kit.Name))
	var last uint32
	for _, e := range events {
		drums.Add(e.tick-last, e.msg)
		last = e.tick
	}
	end := uint32(bars * p.StepsPerBar * ticksPerStep)
	if end < last {
		end = last
	}
	drums.Close(end - last)
	if err := s.Add(drums); err != nil {
		return fmt.Errorf("add drum track: %w", err)
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write smf: %w", err)
	}
	return nil
}

func renderEvents(p *pattern.Pattern, kit Kit, channel uint8, bpm float64, bars int) []timed {
	stepDur := scheduler.StepDuration(bpm)
	ticksPerSec := float64(PPQ) * bpm / 60
	gate := uint32(ticksPerStep / 2)

	var events []timed
	seq := 0
	for bar := 0; bar < bars; bar++ {
		for g := 0; g < p.StepsPerBar; g++ {
			for _, l := range p.Lanes {
				note, ok := kit.Note(l.ID)
				if !ok {
					continue
				}
				st := l.Steps[scheduler.LaneStep(g, l.PlayStartOffsetSteps, p.StepsPerBar)]
				if !scheduler.ShouldFire(st, p.Seed, bar, l.ID, g) {
					continue
				}
				offset := scheduler.SwingDelay(g, p.SwingPct, l.LaneSwingPct, stepDur) + float64(st.MicroShiftMs)/1000
				at := float64((bar*p.StepsPerBar+g)*ticksPerStep) + math.Round(offset*ticksPerSec)
				if at < 0 {
					at = 0
				}
				on := uint32(at)
				events = append(events,
					timed{tick: on, seq: seq, msg: gomidi.NoteOn(channel, note, Velocity(st.Velocity, st.Accent))},
					timed{tick: on + gate, off: true, seq: seq + 1, msg: gomidi.NoteOff(channel, note)},
				)
				seq += 2
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.tick != b.tick {
			return a.tick < b.tick
		}
		if a.off != b.off {
			return a.off
		}
		return a.seq < b.seq
	})
	return events
}
