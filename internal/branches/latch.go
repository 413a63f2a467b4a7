package branches

import "sync/atomic"

// Latch is an exclusive busy flag. A second acquisition fails instead of waiting.
type Latch struct {
	busy atomic.Bool
}

// TryAcquire marks the latch busy and reports whether the caller obtained it.
func (latch *Latch) TryAcquire() bool {
	return latch.busy.CompareAndSwap(false, true)
}

// Release marks the latch idle.
func (latch *Latch) Release() {
	latch.busy.Store(false)
}

// Busy reports whether the latch is held.
func (latch *Latch) Busy() bool {
	return latch.busy.Load()
}
