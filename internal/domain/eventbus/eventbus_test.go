package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSync(t *testing.T) {
	bus := New(nil)

	var got []int
	require.NoError(t, bus.Subscribe("n", func(v int) { got = append(got, v) }))

	for i := 1; i <= 3; i++ {
		require.NoError(t, bus.Publish("n", i))
	}
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.True(t, bus.HasCallback("n"))
	assert.False(t, bus.HasCallback("other"))
}

func TestBus_InstancesAreIndependent(t *testing.T) {
	a, b := New(nil), New(nil)

	var hitsA, hitsB int
	require.NoError(t, a.Subscribe(TopicActivityCreated, func(string) { hitsA++ }))
	require.NoError(t, b.Subscribe(TopicActivityCreated, func(string) { hitsB++ }))

	require.NoError(t, a.Publish(TopicActivityCreated, "x"))
	assert.Equal(t, 1, hitsA)
	assert.Equal(t, 0, hitsB)
}

func TestBus_PanicBecomesError(t *testing.T) {
	bus := New(nil)
	require.NoError(t, bus.Subscribe("boom", func(string) { panic("bad handler") }))

	err := bus.Publish("boom", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad handler")

	// the bus is still usable after a handler panic
	var ok bool
	require.NoError(t, bus.Subscribe("fine", func() { ok = true }))
	require.NoError(t, bus.Publish("fine"))
	assert.True(t, ok)
}

func TestBus_SubscribeAsyncPreservesOrder(t *testing.T) {
	bus := New(nil)

	var mu sync.Mutex
	var got []int
	require.NoError(t, bus.SubscribeAsync("n", func(v int) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	}))

	for i := 0; i < 50; i++ {
		require.NoError(t, bus.Publish("n", i))
	}
	bus.WaitAsync()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestBus_Close(t *testing.T) {
	bus := New(nil)
	bus.Close()
	bus.Close()

	assert.ErrorIs(t, bus.Publish("n", 1), ErrClosed)
	assert.ErrorIs(t, bus.Subscribe("n", func(int) {}), ErrClosed)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New(nil)
	calls := 0
	fn := func() { calls++ }
	require.NoError(t, bus.Subscribe("n", fn))
	require.NoError(t, bus.Unsubscribe("n", fn))
	require.NoError(t, bus.Publish("n"))
	assert.Zero(t, calls)
}
