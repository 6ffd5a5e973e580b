package ingestion_engine

import "sync/atomic"

// TaskCounter is the batch admission gate: it counts files currently in
// the pipeline so the API can reject new upload batches while one is
// still running. It does not queue; callers decide what a busy gate means.
type TaskCounter struct {
	active atomic.Int64
}

func NewTaskCounter() *TaskCounter {
	return &TaskCounter{}
}

// TryBegin atomically claims the gate for n units of work, failing
// without blocking when anything is already in flight. Checking IsBusy and
// then Increment separately would let two callers race past each other.
func (c *TaskCounter) TryBegin(n int) bool {
	return c.active.CompareAndSwap(0, int64(n))
}

// Increment registers n files entering the pipeline.
func (c *TaskCounter) Increment(n int) {
	c.active.Add(int64(n))
}

// Decrement registers one file leaving the pipeline.
func (c *TaskCounter) Decrement() {
	if c.active.Add(-1) < 0 {
		panic("ingestion_engine: task counter went negative")
	}
}

// Active returns the number of files currently in flight.
func (c *TaskCounter) Active() int {
	return int(c.active.Load())
}

// IsBusy reports whether any file is still being processed.
func (c *TaskCounter) IsBusy() bool {
	return c.active.Load() > 0
}
