package aggregator

import (
	"sync/atomic"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// DefaultQueueSize is the record buffer used when none is configured.
const DefaultQueueSize = 4096

// Queue carries telemetry records from the capture callback to the goroutine
// that owns the Aggregator.
//
// Offer never blocks. When the buffer is full the record is dropped and
// counted: under sustained overload the counters lose records rather than
// stall the radio. Dropped() exposes how many.
type Queue struct {
	ch      chan domain.TelemetryRecord
	dropped atomic.Uint64
}

// NewQueue creates a queue buffering up to size records.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan domain.TelemetryRecord, size)}
}

// Offer enqueues rec, or drops it when the queue is full.
func (q *Queue) Offer(rec domain.TelemetryRecord) bool {
	select {
	case q.ch <- rec:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Records is the consumer side of the queue.
func (q *Queue) Records() <-chan domain.TelemetryRecord {
	return q.ch
}

// Dropped returns the number of records lost to a full queue.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Len returns the number of records waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
