package timers

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// tick reports whether tm fires within d.
func tick(tm *time.Timer, d time.Duration) bool {
	select {
	case <-tm.C:
		return true
	case <-time.After(d):
		return false
	}
}

func TestAcquireTimerPending(t *testing.T) {
	tm := AcquireTimer(time.Second)
	defer ReleaseTimer(tm)
	require.False(t, tick(tm, 10*time.Millisecond), "timer fired long before its deadline")
}

func TestAcquireTimerFires(t *testing.T) {
	tm := AcquireTimer(5 * time.Millisecond)
	defer ReleaseTimer(tm)
	require.True(t, tick(tm, time.Second), "timer never fired")
}

func TestReleaseTimerStops(t *testing.T) {
	tm := AcquireTimer(10 * time.Millisecond)
	ReleaseTimer(tm)
	time.Sleep(30 * time.Millisecond)
	select {
	case <-tm.C:
		require.Fail(t, "released timer still delivered a tick")
	default:
	}
}

func TestAcquireTimerAfterRelease(t *testing.T) {
	tm := AcquireTimer(time.Hour)
	ReleaseTimer(tm)

	// The pooled timer must come back disarmed and ready for a fresh
	// deadline.
	tm = AcquireTimer(5 * time.Millisecond)
	defer ReleaseTimer(tm)
	require.True(t, tick(tm, time.Second), "reused timer never fired")
}

func TestReleaseTimerAfterFire(t *testing.T) {
	tm := AcquireTimer(time.Millisecond)
	require.True(t, tick(tm, time.Second))
	// Stop fails here since the timer already fired. Release must
	// still leave the pool usable.
	ReleaseTimer(tm)

	tm = AcquireTimer(5 * time.Millisecond)
	defer ReleaseTimer(tm)
	require.True(t, tick(tm, time.Second), "timer reused after fire never fired")
}

func TestTimersConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				tm := AcquireTimer(time.Millisecond)
				if j%2 == 0 {
					tick(tm, time.Second)
				}
				ReleaseTimer(tm)
			}
		}()
	}
	wg.Wait()
}
