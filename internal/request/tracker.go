package request

import "time"

// IntervalKind names a sub-duration within one request's execution.
type IntervalKind int

const (
	IntervalHandleRequest IntervalKind = iota
	IntervalBufferRead
	IntervalHandleResponse
	IntervalPostgresBeginTransaction
	IntervalProcessRequest
	IntervalPostgresCommitTransaction

	numIntervalKinds
)

func (k IntervalKind) String() string {
	switch k {
	case IntervalHandleRequest:
		return "HandleRequest"
	case IntervalBufferRead:
		return "BufferRead"
	case IntervalHandleResponse:
		return "HandleResponse"
	case IntervalPostgresBeginTransaction:
		return "PostgresBeginTransaction"
	case IntervalProcessRequest:
		return "ProcessRequest"
	case IntervalPostgresCommitTransaction:
		return "PostgresCommitTransaction"
	default:
		return "Unknown"
	}
}

// Tracker is the mutable timing ledger for one request. It is exclusively
// owned by the command execution that created it and is not safe for
// concurrent use. A zero elapsed value means the phase did not occur.
type Tracker struct {
	starts  [numIntervalKinds]time.Time
	elapsed [numIntervalKinds]time.Duration
}

// NewTracker creates an empty timing ledger.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Start marks the beginning of an interval. A nil tracker is a no-op so
// callers without timing requirements can pass one through.
func (t *Tracker) Start(kind IntervalKind) {
	if t == nil {
		return
	}
	t.starts[kind] = time.Now()
}

// Stop records the time elapsed since the matching Start. Stopping an
// interval that was never started is a no-op.
func (t *Tracker) Stop(kind IntervalKind) {
	if t == nil || t.starts[kind].IsZero() {
		return
	}
	t.elapsed[kind] += time.Since(t.starts[kind])
	t.starts[kind] = time.Time{}
}

// SetElapsed overrides an interval's elapsed time. Used when the duration
// is measured externally (e.g. reported by the backend driver).
func (t *Tracker) SetElapsed(kind IntervalKind, d time.Duration) {
	if t == nil {
		return
	}
	t.elapsed[kind] = d
}

// Elapsed returns the recorded elapsed time for an interval. Zero means
// the phase did not execute and must be excluded from emission.
func (t *Tracker) Elapsed(kind IntervalKind) time.Duration {
	if t == nil {
		return 0
	}
	return t.elapsed[kind]
}
