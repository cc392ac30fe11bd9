package midi

import (
	"fmt"

	"go-groove/pattern"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// LaneHit is an incoming note that matched a kit lane.
type LaneHit struct {
	Lane     pattern.LaneID
	Velocity float64
}

// Input listens to a pad controller or keyboard and reports the lanes it
// plays, using the kit in reverse.
type Input struct {
	kit      Kit
	stopFunc func()
	hits     chan LaneHit
}

// NewInput creates an input bound to kit. Call Listen to attach a port.
func NewInput(kit Kit) *Input {
	return &Input{kit: kit, hits: make(chan LaneHit, 32)}
}

// Listen opens the input port matching name.
func (in *Input) Listen(name string) error {
	for _, port := range gomidi.GetInPorts() {
		if _, ok := MatchPort([]string{port.String()}, name); !ok {
			continue
		}
		stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, _ int32) {
			in.handle(msg)
		})
		if err != nil {
			return fmt.Errorf("open input %s: %w", port.String(), err)
		}
		in.stopFunc = stop
		return nil
	}
	return fmt.Errorf("%q: %w", name, ErrPortNotFound)
}

// Hits returns matched lane hits. Hits are dropped when nobody reads.
func (in *Input) Hits() <-chan LaneHit {
	return in.hits
}

func (in *Input) handle(msg gomidi.Message) {
	var channel, note, velocity uint8
	if !msg.GetNoteOn(&channel, &note, &velocity) || velocity == 0 {
		return
	}
	lane, ok := in.kit.Lane(note)
	if !ok {
		return
	}
	select {
	case in.hits <- LaneHit{Lane: lane, Velocity: float64(velocity) / 127}:
	default:
	}
}

// Close stops listening.
func (in *Input) Close() error {
	if in.stopFunc != nil {
		in.stopFunc()
		in.stopFunc = nil
	}
	return nil
}
