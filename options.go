package rendercore

// Option configures a Renderer during creation.
//
// Example:
//
//	r := rendercore.New(dev, pool,
//	    rendercore.WithTransientCapacity(8<<20),
//	    rendercore.WithFramesInFlight(3),
//	)
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	transientCapacity uint32
	framesInFlight    int
	timingHistory     int
	regionDepth       int
}

// defaultOptions returns the default renderer options.
func defaultOptions() options {
	return options{
		transientCapacity: 32 << 20, // 32 MiB per frame
		framesInFlight:    2,
		timingHistory:     3,
		regionDepth:       8,
	}
}

// WithTransientCapacity sets the per-frame transient arena capacity in
// bytes. The device buffer backing the arena is twice this size because
// frames alternate between two halves.
func WithTransientCapacity(bytes uint32) Option {
	return func(o *options) {
		if bytes > 0 {
			o.transientCapacity = bytes
		}
	}
}

// WithFramesInFlight sets how many frames the caller may run ahead of the
// render thread before Frame blocks. The default is 2.
func WithFramesInFlight(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.framesInFlight = n
		}
	}
}

// WithTimingHistory sets the number of frames of GPU timing results kept
// for readers. When the history is full the oldest unread frame is
// dropped. The default is 3.
func WithTimingHistory(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.timingHistory = n
		}
	}
}

// WithRegionDepth sets the maximum nesting depth of profile regions.
// Exceeding it panics: the bound is a deliberate bounded-latency choice,
// not a growable limit. The default is 8.
func WithRegionDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.regionDepth = n
		}
	}
}
