// Package events carries pipeline progress to an observer.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind classifies progress events.
type Kind string

const (
	KindRunStart        Kind = "run-start"
	KindFileStart       Kind = "file-start"
	KindTextExtraction  Kind = "text-extraction"
	KindFieldExtraction Kind = "field-extraction"
	KindRelocation      Kind = "relocation"
	KindFileSuccess     Kind = "file-success"
	KindFileError       Kind = "file-error"
	KindLogUpdate       Kind = "log-update"
	KindRunComplete     Kind = "run-complete"
)

// Event is one step of a run. Index is 1-based and zero on run-level events.
type Event struct {
	Seq         int64     `json:"seq"`
	Timestamp   time.Time `json:"timestamp"`
	RunID       string    `json:"runId"`
	Kind        Kind      `json:"kind"`
	Index       int       `json:"index,omitempty"`
	Total       int       `json:"total"`
	FileName    string    `json:"fileName,omitempty"`
	NewFileName string    `json:"newFileName,omitempty"`
	Succeeded   int       `json:"succeeded,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// Sink receives events. Implementations must not block the caller.
type Sink interface {
	Emit(Event)
}

// Func adapts a function to a Sink.
type Func func(Event)

func (f Func) Emit(e Event) { f(e) }

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(Event) {}

// Multi fans an event out to several sinks in order.
type Multi []Sink

func (m Multi) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Channel delivers events over a buffered channel. When the buffer is full
// the event is dropped and counted rather than blocking the producer.
type Channel struct {
	ch      chan Event
	dropped atomic.Int64
	once    sync.Once
}

// NewChannel creates a channel sink with the given buffer size.
func NewChannel(buffer int) *Channel {
	if buffer <= 0 {
		buffer = 256
	}
	return &Channel{ch: make(chan Event, buffer)}
}

func (c *Channel) Emit(e Event) {
	select {
	case c.ch <- e:
	default:
		c.dropped.Add(1)
	}
}

// Events is the consumer side.
func (c *Channel) Events() <-chan Event { return c.ch }

// Dropped reports how many events did not fit into the buffer.
func (c *Channel) Dropped() int64 { return c.dropped.Load() }

// Close ends the stream. Emit must not be called afterwards.
func (c *Channel) Close() {
	c.once.Do(func() { close(c.ch) })
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of what was recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds lists the recorded kinds in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

// Emitter stamps events of one run with sequence, timestamp and run id.
type Emitter struct {
	sink  Sink
	runID string
	seq   int64
	now   func() time.Time
}

func NewEmitter(sink Sink, runID string) *Emitter {
	if sink == nil {
		sink = Discard{}
	}
	return &Emitter{sink: sink, runID: runID, now: time.Now}
}

// Emit assigns the next sequence number and forwards the event.
func (e *Emitter) Emit(ev Event) Event {
	e.seq++
	ev.Seq = e.seq
	ev.RunID = e.runID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now().UTC()
	}
	e.sink.Emit(ev)
	return ev
}
