package midi

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go-groove/debug"
	"go-groove/pattern"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Sender writes one message to a port.
type Sender func(gomidi.Message) error

// DefaultGate is how long a triggered note is held.
const DefaultGate = 30 * time.Millisecond

// Output turns scheduled step triggers into timed NoteOn/NoteOff messages.
// Trigger only queues; Run sends each message when the clock reaches it.
type Output struct {
	send    Sender
	clock   func() float64
	kit     Kit
	channel uint8 // 0-based
	gate    float64

	mu        sync.Mutex
	queue     eventQueue
	seq       uint64
	sent      int
	interrupt chan struct{}
}

// OutputOptions configure an Output. Channel is 1-16.
type OutputOptions struct {
	Kit     string
	Channel int
	Gate    time.Duration
}

// NewOutput creates an output. clock must be the scheduler's clock so
// trigger times line up.
func NewOutput(send Sender, clock func() float64, opts OutputOptions) *Output {
	ch := opts.Channel
	if ch < 1 || ch > 16 {
		ch = 10
	}
	gate := opts.Gate
	if gate <= 0 {
		gate = DefaultGate
	}
	return &Output{
		send:      send,
		clock:     clock,
		kit:       GetKit(opts.Kit),
		channel:   uint8(ch - 1),
		gate:      gate.Seconds(),
		interrupt: make(chan struct{}, 1),
	}
}

// Kit returns the kit in use.
func (o *Output) Kit() Kit { return o.kit }

// Trigger queues a hit. Its signature matches scheduler.TriggerFunc and it
// never blocks.
func (o *Output) Trigger(lane pattern.LaneID, step int, at, velocity float64, accent bool) {
	note, ok := o.kit.Note(lane)
	if !ok {
		return
	}
	o.mu.Lock()
	o.queue.push(Event{At: at, Seq: o.nextSeq(), Msg: gomidi.NoteOn(o.channel, note, Velocity(velocity, accent))})
	o.queue.push(Event{At: at + o.gate, Seq: o.nextSeq(), Msg: gomidi.NoteOff(o.channel, note)})
	o.mu.Unlock()

	select {
	case o.interrupt <- struct{}{}:
	default:
	}
}

func (o *Output) nextSeq() uint64 {
	o.seq++
	return o.seq
}

// Pending returns the number of queued messages.
func (o *Output) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Sent returns the number of messages written so far.
func (o *Output) Sent() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent
}

// flushDue sends every message due at or before now and returns how long
// until the next one (or -1 when the queue is empty).
func (o *Output) flushDue(now float64) float64 {
	for {
		o.mu.Lock()
		e, ok := o.queue.peek()
		if !ok {
			o.mu.Unlock()
			return -1
		}
		if e.At > now {
			o.mu.Unlock()
			return e.At - now
		}
		o.queue.pop()
		o.sent++
		o.mu.Unlock()

		if err := o.send(e.Msg); err != nil {
			debug.Log("midi", "send %s: %v", e.Msg, err)
		}
	}
}

// Run dispatches messages until ctx is done. Call it on its own goroutine.
func (o *Output) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	idle := 10 * time.Millisecond
	timer := time.NewTimer(idle)
	defer timer.Stop()
	for {
		wait := idle
		if next := o.flushDue(o.clock()); next >= 0 {
			wait = time.Duration(next * float64(time.Second))
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-o.interrupt:
			// queue changed, recalculate
		case <-timer.C:
		}
	}
}

// Panic drops everything queued and sends a note off for every kit note.
// Used on stop: the scheduler does not track voices.
func (o *Output) Panic() {
	o.mu.Lock()
	o.queue = o.queue[:0]
	o.mu.Unlock()

	for _, note := range o.kit.Notes {
		if err := o.send(gomidi.NoteOff(o.channel, note)); err != nil {
			debug.Log("midi", "panic note off %d: %v", note, err)
			return
		}
	}
}
