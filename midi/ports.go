package midi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-groove/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrPortNotFound is returned when no output port matches a name.
var ErrPortNotFound = errors.New("midi port not found")

// ErrScanTimeout means the driver did not answer; CoreMIDI can hang.
var ErrScanTimeout = errors.New("midi port scan timed out")

const scanTimeout = 3 * time.Second

// OutPorts lists output port names. A driver must be registered by the
// binary (import drivers/rtmididrv).
func OutPorts() ([]string, error) {
	ch := make(chan []drivers.Out, 1)
	go func() { ch <- gomidi.GetOutPorts() }()

	select {
	case outs := <-ch:
		names := make([]string, len(outs))
		for i, p := range outs {
			names[i] = p.String()
		}
		return names, nil
	case <-time.After(scanTimeout):
		return nil, ErrScanTimeout
	}
}

// InPorts lists input port names.
func InPorts() ([]string, error) {
	ch := make(chan []drivers.In, 1)
	go func() { ch <- gomidi.GetInPorts() }()

	select {
	case ins := <-ch:
		names := make([]string, len(ins))
		for i, p := range ins {
			names[i] = p.String()
		}
		return names, nil
	case <-time.After(scanTimeout):
		return nil, ErrScanTimeout
	}
}

// MatchPort picks the port for name: an exact match wins, then the first
// case-insensitive substring match.
func MatchPort(ports []string, name string) (string, bool) {
	for _, p := range ports {
		if p == name {
			return p, true
		}
	}
	want := strings.ToLower(name)
	if want == "" {
		return "", false
	}
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p), want) {
			return p, true
		}
	}
	return "", false
}

// OpenSender opens the output port matching name.
func OpenSender(name string) (Sender, string, error) {
	for _, port := range gomidi.GetOutPorts() {
		if _, ok := MatchPort([]string{port.String()}, name); !ok {
			continue
		}
		send, err := gomidi.SendTo(port)
		if err != nil {
			return nil, "", fmt.Errorf("open %s: %w", port.String(), err)
		}
		debug.Log("midi", "opened output %s", port.String())
		return send, port.String(), nil
	}
	return nil, "", fmt.Errorf("%q: %w", name, ErrPortNotFound)
}

// PortEvent is emitted when a watched port appears or goes away.
type PortEvent struct {
	Type PortEventType
	Name string
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

// Watcher polls output ports for hot-plug changes.
type Watcher struct {
	list     func() ([]string, error)
	pollRate time.Duration

	mu     sync.RWMutex
	seen   map[string]bool
	events chan PortEvent
}

// NewWatcher creates a watcher over the system's output ports.
func NewWatcher() *Watcher {
	return newWatcher(OutPorts, time.Second)
}

func newWatcher(list func() ([]string, error), rate time.Duration) *Watcher {
	return &Watcher{
		list:     list,
		pollRate: rate,
		seen:     make(map[string]bool),
		events:   make(chan PortEvent, 16),
	}
}

// Events returns port connect/disconnect events. Closed when Run returns.
func (w *Watcher) Events() <-chan PortEvent {
	return w.events
}

// Ports returns the ports seen by the last scan.
func (w *Watcher) Ports() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.seen))
	for p := range w.seen {
		out = append(out, p)
	}
	return out
}

// Run polls until ctx is done (blocking - run in goroutine).
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()
	defer close(w.events)

	w.scan()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *Watcher) scan() {
	ports, err := w.list()
	if err != nil {
		// skip this round; a hung driver usually recovers
		debug.Log("midi", "scan: %v", err)
		return
	}
	now := make(map[string]bool, len(ports))
	for _, p := range ports {
		now[p] = true
	}

	w.mu.Lock()
	var evs []PortEvent
	for p := range now {
		if !w.seen[p] {
			evs = append(evs, PortEvent{Type: PortConnected, Name: p})
		}
	}
	for p := range w.seen {
		if !now[p] {
			evs = append(evs, PortEvent{Type: PortDisconnected, Name: p})
		}
	}
	w.seen = now
	w.mu.Unlock()

	for _, e := range evs {
		select {
		case w.events <- e:
		default:
			debug.Log("midi", "port event dropped: %s", e.Name)
		}
	}
}
