package audio

import "sync/atomic"

// FrameChannel carries fixed-size sample windows from one real-time
// producer to one consumer. Slots are allocated up front; Send copies into
// a free slot and TryRecv copies out of the oldest one, so neither side
// allocates, locks, or waits.
//
// When every slot is occupied Send drops the window. Windows that do get
// through arrive in the order they were sent.
type FrameChannel struct {
	size  int
	slots [][]float32

	head    atomic.Uint64 // next slot to write; owned by the producer
	tail    atomic.Uint64 // next slot to read; owned by the consumer
	dropped atomic.Uint64
}

// NewFrameChannel creates a channel holding up to capacity windows of
// windowSize samples each.
func NewFrameChannel(capacity, windowSize int) *FrameChannel {
	if capacity < 1 {
		capacity = 1
	}
	if windowSize < 1 {
		windowSize = 1
	}
	backing := make([]float32, capacity*windowSize)
	slots := make([][]float32, capacity)
	for i := range slots {
		slots[i] = backing[i*windowSize : (i+1)*windowSize : (i+1)*windowSize]
	}
	return &FrameChannel{size: windowSize, slots: slots}
}

// WindowSize is the fixed window length N
func (c *FrameChannel) WindowSize() int { return c.size }

// Cap is the number of windows the channel can hold
func (c *FrameChannel) Cap() int { return len(c.slots) }

// Len is the number of undelivered windows
func (c *FrameChannel) Len() int {
	return int(c.head.Load() - c.tail.Load())
}

// Dropped counts windows rejected because the channel was full
func (c *FrameChannel) Dropped() uint64 { return c.dropped.Load() }

// Send copies w into the channel. Windows shorter than N are zero padded,
// longer ones truncated. It reports false when the window was dropped.
func (c *FrameChannel) Send(w []float32) bool {
	head := c.head.Load()
	if head-c.tail.Load() >= uint64(len(c.slots)) {
		c.dropped.Add(1)
		return false
	}
	slot := c.slots[head%uint64(len(c.slots))]
	n := copy(slot, w)
	clear(slot[n:])
	c.head.Store(head + 1)
	return true
}

// TryRecv copies the oldest undelivered window into dst and reports
// whether there was one.
func (c *FrameChannel) TryRecv(dst []float32) bool {
	tail := c.tail.Load()
	if tail == c.head.Load() {
		return false
	}
	copy(dst, c.slots[tail%uint64(len(c.slots))])
	c.tail.Store(tail + 1)
	return true
}
