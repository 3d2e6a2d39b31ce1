package presence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock shared by the tracker and the test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	return NewTracker(Options{Now: clock.Now}), clock
}

func TestTracker_ExpiryAfterSweep(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Heartbeat("stale", 1, "a@x.io", "A", "admin")
	clock.Advance(51 * time.Second)
	tr.Heartbeat("fresh", 2, "b@x.io", "B", "user")
	clock.Advance(10 * time.Second)

	// stale is now 61s old, fresh is 10s old
	assert.Equal(t, 1, tr.Sweep())

	online := tr.ListOnline()
	require.Len(t, online, 1)
	assert.Equal(t, uint(2), online[0].UserID)
}

func TestTracker_ExactTimeoutIsKept(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Heartbeat("tok", 1, "", "", "")
	clock.Advance(DefaultTimeout)

	assert.Zero(t, tr.Sweep())
	assert.Equal(t, 1, tr.Count())
}

func TestTracker_DeduplicatesByUser(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Heartbeat("tab-1", 7, "old@x.io", "Old", "user")
	clock.Advance(time.Second)
	tr.Heartbeat("tab-2", 7, "new@x.io", "New", "admin")
	tr.Heartbeat("tab-3", 8, "c@x.io", "C", "user")

	online := tr.ListOnline()
	require.Len(t, online, 2)
	assert.Equal(t, uint(7), online[0].UserID)
	assert.Equal(t, 2, online[0].Sessions)
	assert.Equal(t, "new@x.io", online[0].Email, "latest heartbeat wins")
	assert.Equal(t, "admin", online[0].Role)
	assert.Equal(t, clock.Now(), online[0].LastSeen)
	assert.Equal(t, 3, tr.Count())
}

func TestTracker_ListOnlineOneSummaryPerUser(t *testing.T) {
	tr, clock := newTestTracker()

	// refresh an early tab last so insertion order and recency disagree
	for _, uid := range []uint{9, 3, 9, 5, 3, 9} {
		tr.Heartbeat(fmt.Sprintf("tab-%d-%d", uid, tr.Count()), uid, "", fmt.Sprintf("user-%d", uid), "user")
		clock.Advance(time.Second)
	}
	tr.Heartbeat("tab-9-0", 9, "", "renamed", "admin")

	online := tr.ListOnline()
	require.Len(t, online, 3)
	assert.Equal(t, []uint{3, 5, 9}, []uint{online[0].UserID, online[1].UserID, online[2].UserID})
	assert.Equal(t, []int{2, 1, 3}, []int{online[0].Sessions, online[1].Sessions, online[2].Sessions})
	assert.Equal(t, "renamed", online[2].Name)
	assert.Equal(t, "admin", online[2].Role)
	assert.Equal(t, 6, tr.Count())
}

func TestTracker_HeartbeatRefreshes(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Heartbeat("tok", 1, "", "", "")
	clock.Advance(50 * time.Second)
	tr.Heartbeat("tok", 1, "", "", "")
	clock.Advance(50 * time.Second)

	assert.Zero(t, tr.Sweep())
	assert.Len(t, tr.ListOnline(), 1)
}

func TestTracker_NoHeartbeatMeansAbsent(t *testing.T) {
	tr, _ := newTestTracker()
	assert.Empty(t, tr.ListOnline())

	tr.Heartbeat("", 1, "", "", "")
	assert.Zero(t, tr.Count(), "empty token ignored")
}

func TestTracker_Remove(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Heartbeat("a", 1, "", "", "")
	tr.Heartbeat("b", 1, "", "", "")
	tr.Heartbeat("c", 2, "", "", "")

	tr.Remove("a")
	tr.Remove("missing")
	assert.Equal(t, 2, tr.Count())

	assert.Equal(t, 1, tr.RemoveUser(1))
	online := tr.ListOnline()
	require.Len(t, online, 1)
	assert.Equal(t, uint(2), online[0].UserID)
}

func TestTracker_BackgroundSweep(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	tr := NewTracker(Options{
		Timeout:       time.Minute,
		SweepInterval: 5 * time.Millisecond,
		Now:           clock.Now,
	})
	tr.Heartbeat("tok", 1, "", "", "")
	tr.Start(context.Background())
	defer tr.Stop()

	clock.Advance(2 * time.Minute)
	assert.Eventually(t, func() bool { return tr.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTracker_StartStopLifecycle(t *testing.T) {
	tr := NewTracker(Options{SweepInterval: time.Millisecond})

	// Stop before Start must not block
	tr.Stop()
	tr.Stop()
	tr.Start(context.Background())

	other := NewTracker(Options{SweepInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	other.Start(ctx)
	other.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		other.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancel")
	}
}

func TestTracker_ConcurrentAccess(t *testing.T) {
	tr := NewTracker(Options{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tr.Heartbeat(fmt.Sprintf("tok-%d-%d", i, j%3), uint(i%5+1), "", "", "")
				tr.ListOnline()
				tr.Sweep()
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, tr.ListOnline(), 5)
	assert.Equal(t, 60, tr.Count())
}
