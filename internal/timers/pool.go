// Package timers pools heartbeat timers. Receivers arm one per attach
// and sessions churn fast, pooling keeps that from turning into a
// steady stream of timer allocations.
package timers

import (
	"sync"
	"time"
)

var pool sync.Pool

// AcquireTimer returns a timer armed with d. Hand it back with
// ReleaseTimer once it fired or is not needed anymore.
func AcquireTimer(d time.Duration) *time.Timer {
	t, ok := pool.Get().(*time.Timer)
	if !ok {
		return time.NewTimer(d)
	}
	if t.Reset(d) {
		panic("timers: an active timer was put back into the pool")
	}
	return t
}

// ReleaseTimer stops t and returns it to the pool. The caller must not
// keep reading t.C after release.
func ReleaseTimer(t *time.Timer) {
	if !t.Stop() {
		// Already fired, drain the stale tick so a pooled Reset
		// starts clean.
		select {
		case <-t.C:
		default:
		}
	}
	pool.Put(t)
}
