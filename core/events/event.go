package events

import (
	"sync"

	"randomnft/core/types"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Payload is implemented by events that can render themselves into the
// generic attribute form stored in the log.
type Payload interface {
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MultiEmitter fans a single event out to several emitters in order.
type MultiEmitter []Emitter

// Emit implements the Emitter interface.
func (m MultiEmitter) Emit(evt Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}

// Record is a sequenced entry of the append-only event log.
type Record struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

const defaultSubscriberBuffer = 64

// Log is an append-only, in-memory record of every emitted event. Consumers
// either poll with Since or receive new records through Subscribe.
type Log struct {
	mu      sync.RWMutex
	records []Record
	subs    map[uint64]chan Record
	nextSub uint64
	buffer  int
}

// NewLog constructs an empty event log.
func NewLog() *Log {
	return &Log{subs: make(map[uint64]chan Record), buffer: defaultSubscriberBuffer}
}

// Emit appends the event to the log and notifies subscribers. A subscriber
// whose buffer is full is dropped and its channel closed.
func (l *Log) Emit(evt Event) {
	if l == nil || evt == nil {
		return
	}
	rec := Record{Type: evt.EventType(), Attributes: map[string]string{}}
	if payload, ok := evt.(Payload); ok {
		if raw := payload.Event(); raw != nil {
			clone := raw.Clone()
			rec.Type = clone.Type
			rec.Attributes = clone.Attributes
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	rec.Sequence = uint64(len(l.records)) + 1
	l.records = append(l.records, rec)
	for id, ch := range l.subs {
		select {
		case ch <- rec:
		default:
			close(ch)
			delete(l.subs, id)
		}
	}
}

// Len reports the number of records in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Since returns up to limit records with a sequence greater than seq. A
// non-positive limit returns every remaining record.
func (l *Log) Since(seq uint64, limit int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sinceLocked(seq, limit)
}

func (l *Log) sinceLocked(seq uint64, limit int) []Record {
	if seq >= uint64(len(l.records)) {
		return []Record{}
	}
	tail := l.records[seq:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}
	out := make([]Record, len(tail))
	copy(out, tail)
	return out
}

// Subscribe returns the backlog after seq together with a channel receiving
// every record appended from now on. The cancel function must be called to
// release the subscription.
func (l *Log) Subscribe(seq uint64) (<-chan Record, func(), []Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	backlog := l.sinceLocked(seq, 0)
	id := l.nextSub
	l.nextSub++
	ch := make(chan Record, l.buffer)
	l.subs[id] = ch
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if existing, ok := l.subs[id]; ok {
				close(existing)
				delete(l.subs, id)
			}
		})
	}
	return ch, cancel, backlog
}
