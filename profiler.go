package rendercore

import (
	"sync"
	"time"

	"github.com/gogpu/rendercore/device"
)

// TimingRecord is one resolved GPU timestamp. Records come in pairs: a
// begin record carrying the region name, and an end record with End set.
// Time is in nanoseconds on the CPU clock (the collector calibrates the
// GPU-to-CPU offset at startup).
type TimingRecord struct {
	Name string
	End  bool
	Time uint64
}

// pendingQuery is an issued-but-unresolved timestamp query.
type pendingQuery struct {
	name  string
	end   bool
	query device.QueryID
}

// gpuProfiler collects GPU timing for named regions executed on the
// render thread and publishes resolved frames through a small history
// ring that any goroutine can read.
//
// Everything except the ring is single-writer, render-thread-only.
// The ring is guarded by a mutex held for O(1) slice swaps, so neither
// side can stall the other for more than a pointer exchange.
type gpuProfiler struct {
	dev device.Device

	// gpuToCPU aligns device timestamps with the CPU clock.
	gpuToCPU int64

	// pool holds recycled query handles.
	pool []device.QueryID

	// pending is the current frame's in-progress record list.
	pending []pendingQuery

	// openDepth tracks region nesting; bounded by maxDepth.
	openDepth int
	maxDepth  int

	ring struct {
		mu    sync.Mutex
		slots [][]TimingRecord
		write uint64
		read  uint64
	}
}

// newGPUProfiler calibrates the clock offset and sizes the history ring.
// Called during render-thread startup.
func newGPUProfiler(dev device.Device, history, maxDepth int) *gpuProfiler {
	p := &gpuProfiler{
		dev:      dev,
		maxDepth: maxDepth,
	}
	p.ring.slots = make([][]TimingRecord, history)

	q := dev.CreateQuery()
	dev.QueryTimestamp(q)
	cpu := time.Now().UnixNano()
	gpu := dev.QueryResult(q)
	p.gpuToCPU = cpu - int64(gpu)
	dev.DestroyQuery(q)

	return p
}

// allocQuery takes a handle from the pool or creates a new one.
func (p *gpuProfiler) allocQuery() device.QueryID {
	if n := len(p.pool); n > 0 {
		q := p.pool[n-1]
		p.pool = p.pool[:n-1]
		return q
	}
	return p.dev.CreateQuery()
}

// beginRegion opens a named timing region. Render thread only.
// Exceeding the region nesting limit is a caller bug and panics.
func (p *gpuProfiler) beginRegion(name string) {
	if p.openDepth >= p.maxDepth {
		panic("rendercore: profile region stack overflow")
	}
	p.openDepth++

	q := p.allocQuery()
	p.dev.QueryTimestamp(q)
	p.pending = append(p.pending, pendingQuery{name: name, query: q})
}

// endRegion closes the innermost open region. Render thread only.
// Closing with no open region is a caller bug and panics.
func (p *gpuProfiler) endRegion() {
	if p.openDepth == 0 {
		panic("rendercore: endRegion without matching beginRegion")
	}
	p.openDepth--

	q := p.allocQuery()
	p.dev.QueryTimestamp(q)
	p.pending = append(p.pending, pendingQuery{end: true, query: q})
}

// advanceFrame resolves the frame's queries, recycles their handles, and
// publishes the resolved records into the history ring. When the ring is
// full the oldest unread frame is dropped, so a slow (or absent) reader
// costs bounded memory and never blocks the render thread.
//
// Runs once per frame on the render thread, inside the present command.
// Regions must be balanced by the frame boundary.
func (p *gpuProfiler) advanceFrame() {
	if p.openDepth != 0 {
		panic("rendercore: unbalanced profile regions at frame boundary")
	}

	records := make([]TimingRecord, len(p.pending))
	for i, pq := range p.pending {
		// QueryResult may block briefly on device readiness; acceptable
		// on the dedicated thread.
		ts := p.dev.QueryResult(pq.query)
		records[i] = TimingRecord{
			Name: pq.name,
			End:  pq.end,
			Time: uint64(int64(ts) + p.gpuToCPU),
		}
		p.pool = append(p.pool, pq.query)
	}
	p.pending = p.pending[:0]

	p.ring.mu.Lock()
	capacity := uint64(len(p.ring.slots))
	if p.ring.write-p.ring.read == capacity {
		// Ring full: drop the oldest unread frame.
		p.ring.slots[p.ring.read%capacity] = nil
		p.ring.read++
	}
	p.ring.slots[p.ring.write%capacity] = records
	p.ring.write++
	p.ring.mu.Unlock()
}

// tryGetTimings copies the oldest unread frame's records into out and
// advances the read index. It returns false when no unread frame exists.
// Safe from any goroutine.
func (p *gpuProfiler) tryGetTimings(out *[]TimingRecord) bool {
	p.ring.mu.Lock()
	defer p.ring.mu.Unlock()

	if p.ring.read == p.ring.write {
		return false
	}
	capacity := uint64(len(p.ring.slots))
	slot := p.ring.read % capacity
	*out = append((*out)[:0], p.ring.slots[slot]...)
	p.ring.slots[slot] = nil
	p.ring.read++
	return true
}

// clear destroys pooled and pending query handles. Render thread only,
// during shutdown drain.
func (p *gpuProfiler) clear() {
	for _, pq := range p.pending {
		p.dev.DestroyQuery(pq.query)
	}
	p.pending = nil
	for _, q := range p.pool {
		p.dev.DestroyQuery(q)
	}
	p.pool = nil
}
