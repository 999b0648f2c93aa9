package jit

// CompileQueue is the provided de-duping FIFO CompileRequestSink for
// embedders that run the compiler synchronously between execution slices:
// requests accumulate during a slice and are drained in arrival order.
//
// Duplicate addresses are dropped while one is pending; draining clears the
// pending set so the same address can be requested again afterwards (e.g.
// after a staleness-triggered recompile).
type CompileQueue struct {
	queue   []uint64
	pending map[uint64]struct{}
}

// NewCompileQueue creates an empty queue.
func NewCompileQueue() *CompileQueue {
	return &CompileQueue{pending: make(map[uint64]struct{})}
}

// RequestCompile enqueues addr unless a request for it is already pending.
func (q *CompileQueue) RequestCompile(addr uint64) {
	if _, ok := q.pending[addr]; ok {
		return
	}
	q.pending[addr] = struct{}{}
	q.queue = append(q.queue, addr)
}

// Drain returns the queued addresses in arrival order and resets the queue.
func (q *CompileQueue) Drain() []uint64 {
	drained := q.queue
	q.queue = nil
	q.pending = make(map[uint64]struct{})
	return drained
}

// Clear discards all queued requests.
func (q *CompileQueue) Clear() {
	q.queue = nil
	q.pending = make(map[uint64]struct{})
}

// Len returns the number of queued requests.
func (q *CompileQueue) Len() int {
	return len(q.queue)
}
