package main

import (
	"context"

	"go-groove/debug"
	"go-groove/midi"
	"go-groove/scheduler"
	"go-groove/sequencer"
)

// outputLink follows port hot-plug events and keeps the manager's voice
// pointed at the wanted port. Only the UI goroutine calls it.
type outputLink struct {
	ctx     context.Context
	manager *sequencer.Manager
	clock   scheduler.Clock
	want    string // empty takes the first port seen
	opts    midi.OutputOptions

	port   string
	cancel context.CancelFunc
}

func (l *outputLink) handle(ev midi.PortEvent) string {
	switch ev.Type {
	case midi.PortConnected:
		if l.port != "" {
			return ""
		}
		if l.want != "" {
			if _, ok := midi.MatchPort([]string{ev.Name}, l.want); !ok {
				return ""
			}
		}
		send, name, err := midi.OpenSender(ev.Name)
		if err != nil {
			debug.Log("midi", "open %s: %v", ev.Name, err)
			return err.Error()
		}
		out := midi.NewOutput(send, l.clock, l.opts)
		ctx, cancel := context.WithCancel(l.ctx)
		go out.Run(ctx)
		l.manager.SetVoice(out)
		l.port, l.cancel = name, cancel
		return "output: " + name + " (" + out.Kit().Name + ")"

	case midi.PortDisconnected:
		if ev.Name != l.port {
			return ""
		}
		l.close()
		return "output lost: " + ev.Name
	}
	return ""
}

func (l *outputLink) close() {
	if l.cancel == nil {
		return
	}
	l.manager.SetVoice(nil)
	l.cancel()
	l.cancel, l.port = nil, ""
}
