package audio

import "sync/atomic"

// Reporter is a bounded, non-blocking error queue read by the consumer
// loop. Errors that do not fit are counted and dropped.
type Reporter struct {
	ch      chan error
	dropped atomic.Uint64
}

// NewReporter creates a reporter holding up to size pending errors
func NewReporter(size int) *Reporter {
	if size < 1 {
		size = 1
	}
	return &Reporter{ch: make(chan error, size)}
}

// Report queues err without blocking
func (r *Reporter) Report(err error) {
	if err == nil {
		return
	}
	select {
	case r.ch <- err:
	default:
		r.dropped.Add(1)
	}
}

// Errors is the receive side of the queue
func (r *Reporter) Errors() <-chan error {
	return r.ch
}

// Dropped counts errors discarded because the queue was full
func (r *Reporter) Dropped() uint64 {
	return r.dropped.Load()
}

// faults accumulates Status bits set by a callback until the consumer
// collects them. Only atomics touch it on the real-time side.
type faults struct {
	bits atomic.Uint32
}

func (f *faults) record(s Status) {
	if s != 0 {
		f.bits.Or(uint32(s))
	}
}

func (f *faults) take() Status {
	return Status(f.bits.Swap(0))
}
