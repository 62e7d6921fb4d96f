package reporting

import (
	"sync/atomic"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// Report reasons
const (
	ReasonThreshold = "threshold"
	ReasonOperator  = "operator"
	ReasonAPI       = "api"
)

const (
	pendingSummary uint32 = 1 << iota
	pendingFull
)

// Request is a report the main loop should emit.
type Request struct {
	Kind   domain.ReportKind
	Reason string
}

// Trigger decides when a report is due: automatically once Threshold records
// have been observed since the last report, or on operator request.
//
// Observe and Check run on the main loop. Request may be called from any
// goroutine (console reader, HTTP handlers).
type Trigger struct {
	threshold uint64
	since     atomic.Uint64
	pending   atomic.Uint32
	fullBy    atomic.Value // reason of the pending full request
	summaryBy atomic.Value // reason of the pending summary request
}

// NewTrigger creates a trigger firing a summary every threshold records.
// A zero threshold disables automatic reports.
func NewTrigger(threshold uint64) *Trigger {
	return &Trigger{threshold: threshold}
}

// Threshold returns the automatic report threshold.
func (t *Trigger) Threshold() uint64 {
	return t.threshold
}

// Observe counts n recorded captures toward the threshold.
func (t *Trigger) Observe(n uint64) {
	t.since.Add(n)
}

// SinceLastReport returns the records observed since the last report.
func (t *Trigger) SinceLastReport() uint64 {
	return t.since.Load()
}

// Request queues an operator report. Requests of the same kind coalesce
// until the next Check; it returns false for an unknown kind.
func (t *Trigger) Request(kind domain.ReportKind, reason string) bool {
	var bit uint32
	switch kind {
	case domain.ReportSummary:
		bit = pendingSummary
		t.summaryBy.Store(reason)
	case domain.ReportFull:
		bit = pendingFull
		t.fullBy.Store(reason)
	default:
		return false
	}
	for {
		old := t.pending.Load()
		if t.pending.CompareAndSwap(old, old|bit) {
			return true
		}
	}
}

// HandleCommand maps a console byte to a request. Unknown bytes are ignored.
func (t *Trigger) HandleCommand(b byte) bool {
	kind, ok := domain.CommandForByte(b)
	if !ok {
		return false
	}
	return t.Request(kind, ReasonOperator)
}

// Check returns the report due now, if any. A full request wins over a
// summary; a request not returned stays pending for the next Check.
// Returning a request resets the since-last-report counter.
func (t *Trigger) Check() (Request, bool) {
	if req, ok := t.takePending(pendingFull, domain.ReportFull, &t.fullBy); ok {
		t.since.Store(0)
		return req, true
	}
	if req, ok := t.takePending(pendingSummary, domain.ReportSummary, &t.summaryBy); ok {
		t.since.Store(0)
		return req, true
	}

	if t.threshold > 0 && t.since.Load() >= t.threshold {
		t.since.Store(0)
		return Request{Kind: domain.ReportSummary, Reason: ReasonThreshold}, true
	}
	return Request{}, false
}

func (t *Trigger) takePending(bit uint32, kind domain.ReportKind, reason *atomic.Value) (Request, bool) {
	for {
		old := t.pending.Load()
		if old&bit == 0 {
			return Request{}, false
		}
		if t.pending.CompareAndSwap(old, old&^bit) {
			r, _ := reason.Load().(string)
			if r == "" {
				r = ReasonOperator
			}
			return Request{Kind: kind, Reason: r}, true
		}
	}
}
