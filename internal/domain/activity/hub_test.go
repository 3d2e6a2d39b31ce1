package activity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdeck-server/internal/domain/eventbus"
	"agentdeck-server/internal/platform/logging"
)

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]float64
}

func (m *countingMetrics) RecordMetric(_ context.Context, name string, value float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]float64)
	}
	m.counts[name] += value
}

func (m *countingMetrics) get(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

func newTestHub(buffer int) *Hub {
	return NewHub(HubOptions{Buffer: buffer, Logger: logging.Discard().Tagged(logging.TagActivity)})
}

func receive(t *testing.T, sub *Subscription) Entry {
	t.Helper()
	select {
	case e, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for entry")
		return Entry{}
	}
}

func TestHub_DeliversInPublishOrder(t *testing.T) {
	h := newTestHub(16)
	a := h.Subscribe()
	b := h.Subscribe()

	for i := uint(1); i <= 5; i++ {
		assert.Equal(t, 2, h.Publish(Entry{ID: i, Action: "step"}))
	}

	for _, sub := range []*Subscription{a, b} {
		for i := uint(1); i <= 5; i++ {
			assert.Equal(t, i, receive(t, sub).ID)
		}
	}
}

func TestHub_NoReplayForLateSubscribers(t *testing.T) {
	h := newTestHub(4)
	assert.Equal(t, 0, h.Publish(Entry{ID: 1}))

	sub := h.Subscribe()
	h.Publish(Entry{ID: 2})

	assert.Equal(t, uint(2), receive(t, sub).ID)
	select {
	case e := <-sub.C():
		t.Fatalf("unexpected entry %d", e.ID)
	default:
	}
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	h := newTestHub(4)
	sub := h.Subscribe()
	require.Equal(t, 1, h.Count())

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	h.Unsubscribe(nil)

	assert.Equal(t, 0, h.Count())
	_, ok := <-sub.C()
	assert.False(t, ok)
	<-sub.Done()
	assert.Equal(t, 0, h.Publish(Entry{ID: 1}))
}

func TestHub_DropsObserverWithFullBuffer(t *testing.T) {
	metrics := &countingMetrics{}
	h := NewHub(HubOptions{Buffer: 2, Logger: logging.Discard().Tagged(logging.TagActivity), Metrics: metrics})
	slow := h.Subscribe()
	fast := h.Subscribe()

	done := make(chan []uint)
	go func() {
		var got []uint
		for e := range fast.C() {
			got = append(got, e.ID)
			if len(got) == 4 {
				break
			}
		}
		done <- got
	}()

	for i := uint(1); i <= 4; i++ {
		h.Publish(Entry{ID: i})
		// let the fast reader keep up
		require.Eventually(t, func() bool { return len(fast.C()) == 0 }, time.Second, time.Millisecond)
	}

	assert.Equal(t, []uint{1, 2, 3, 4}, <-done)

	select {
	case <-slow.Done():
	default:
		t.Fatal("slow observer was not dropped")
	}
	assert.Equal(t, 1, h.Count())
	assert.Equal(t, float64(1), metrics.get("activity.observer_dropped"))

	// buffered entries are still readable before the close
	assert.Equal(t, uint(1), receive(t, slow).ID)
	assert.Equal(t, uint(2), receive(t, slow).ID)
	_, ok := <-slow.C()
	assert.False(t, ok)
}

func TestHub_Close(t *testing.T) {
	h := newTestHub(4)
	sub := h.Subscribe()

	h.Close()
	<-sub.Done()
	assert.Equal(t, 0, h.Count())

	late := h.Subscribe()
	<-late.Done()
	assert.Equal(t, 0, h.Publish(Entry{ID: 1}))
}

func TestHub_ConcurrentSubscribeAndPublish(t *testing.T) {
	h := newTestHub(256)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := h.Subscribe()
			time.Sleep(time.Millisecond)
			h.Unsubscribe(sub)
		}()
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			h.Publish(Entry{ID: id})
		}(uint(i))
	}
	wg.Wait()
	assert.Equal(t, 0, h.Count())
}

func TestHub_AttachToBus(t *testing.T) {
	bus := eventbus.New(nil)
	defer bus.Close()
	h := newTestHub(4)

	require.NoError(t, h.Attach(bus))
	sub := h.Subscribe()

	require.NoError(t, bus.Publish(eventbus.TopicActivityCreated, Entry{ID: 9, Agent: "ci"}))
	got := receive(t, sub)
	assert.Equal(t, uint(9), got.ID)
	assert.Equal(t, "ci", got.Agent)

	require.NoError(t, h.Detach(bus))
	assert.False(t, bus.HasCallback(eventbus.TopicActivityCreated))
}
