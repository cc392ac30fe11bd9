package midi

import (
	"container/heap"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Event is one message due at an absolute clock time in seconds.
type Event struct {
	At  float64
	Seq uint64 // insertion order, breaks ties
	Msg gomidi.Message
}

type eventQueue []Event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].At != q[j].At {
		return q[i].At < q[j].At
	}
	return q[i].Seq < q[j].Seq
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any) { *q = append(*q, x.(Event)) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

func (q *eventQueue) push(e Event) { heap.Push(q, e) }

func (q *eventQueue) peek() (Event, bool) {
	if len(*q) == 0 {
		return Event{}, false
	}
	return (*q)[0], true
}

func (q *eventQueue) pop() Event { return heap.Pop(q).(Event) }
