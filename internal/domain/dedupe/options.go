package dedupe

// Option applies a configuration option to the in-memory tracker.
type Option func(*memoryTracker)

// WithMaxPending sets the maximum number of tracked keys.
// A value <= 0 disables the bound.
func WithMaxPending(n int) Option {
	return func(t *memoryTracker) {
		t.maxPending = n
	}
}
