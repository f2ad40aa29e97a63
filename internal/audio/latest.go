package audio

import "sync"

// Latest keeps only the most recent window drained from a FrameChannel.
// Intermediate windows are discarded on purpose.
type Latest struct {
	mu      sync.RWMutex
	window  []float32
	scratch []float32
	has     bool
}

// NewLatest creates a cache for windows of windowSize samples
func NewLatest(windowSize int) *Latest {
	return &Latest{
		window:  make([]float32, windowSize),
		scratch: make([]float32, windowSize),
	}
}

// Drain empties ch and retains the last window seen. It returns the number
// of windows received. Only one goroutine may drain a given Latest.
func (l *Latest) Drain(ch *FrameChannel) int {
	n := 0
	for ch.TryRecv(l.scratch) {
		n++
	}
	if n == 0 {
		return 0
	}

	l.mu.Lock()
	l.window, l.scratch = l.scratch, l.window
	l.has = true
	l.mu.Unlock()
	return n
}

// Window returns a copy of the latest window, or false before the first
// window arrives.
func (l *Latest) Window() ([]float32, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.has {
		return nil, false
	}
	out := make([]float32, len(l.window))
	copy(out, l.window)
	return out, true
}

// Reset forgets the cached window
func (l *Latest) Reset() {
	l.mu.Lock()
	l.has = false
	clear(l.window)
	l.mu.Unlock()
}
