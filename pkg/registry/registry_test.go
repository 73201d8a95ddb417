package registry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/sampleprof/pkg/capture"
	"github.com/maxgio92/sampleprof/pkg/registry"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRegistry_RegisterDeregister(t *testing.T) {
	r := registry.New()

	require.True(t, r.Register(1))
	require.False(t, r.Register(1), "already registered")
	require.True(t, r.Contains(1))
	require.Equal(t, 1, r.Len())

	require.True(t, r.Deregister(1))
	require.False(t, r.Deregister(1))
	require.False(t, r.Contains(1))
	require.Zero(t, r.Len())
}

func TestRegistry_ElapsedIsLossFree(t *testing.T) {
	clock := newFakeClock()
	r := registry.New(registry.WithClock(clock.Now))

	r.Register(1)
	clock.Advance(5 * time.Second)
	r.Deregister(1)
	clock.Advance(3 * time.Second)
	r.Register(1)
	clock.Advance(2 * time.Second)

	require.Equal(t, 7*time.Second, r.ElapsedSinceLastQuery())
	require.Zero(t, r.ElapsedSinceLastQuery(), "a query resets the accumulator")

	clock.Advance(time.Second)
	require.Equal(t, time.Second, r.ElapsedSinceLastQuery())
}

func TestRegistry_ElapsedSumsContexts(t *testing.T) {
	clock := newFakeClock()
	r := registry.New(registry.WithClock(clock.Now))

	r.Register(1)
	clock.Advance(time.Second)
	r.Register(2)
	clock.Advance(time.Second)

	require.Equal(t, 3*time.Second, r.ElapsedSinceLastQuery())

	clock.Advance(time.Second)
	r.Deregister(2)
	clock.Advance(time.Second)

	require.Equal(t, 3*time.Second, r.ElapsedSinceLastQuery())
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	r := registry.New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id capture.ContextID) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Register(id)
				r.ElapsedSinceLastQuery()
				r.Deregister(id)
			}
		}(capture.ContextID(i))
	}
	wg.Wait()

	require.Zero(t, r.Len())
	require.GreaterOrEqual(t, r.ElapsedSinceLastQuery(), time.Duration(0))
}

func TestRegistry_Snapshot(t *testing.T) {
	r := registry.New()
	require.Empty(t, r.Snapshot(4))

	for i := 0; i < 3; i++ {
		r.Register(capture.ContextID(i))
	}
	require.ElementsMatch(t, []capture.ContextID{0, 1, 2}, r.Snapshot(4))
	require.ElementsMatch(t, []capture.ContextID{0, 1, 2}, r.Snapshot(0), "no cap")
}

func TestRegistry_SnapshotUniformSubset(t *testing.T) {
	const (
		contexts = 10
		max      = 3
		draws    = 3000
	)
	r := registry.New()
	for i := 0; i < contexts; i++ {
		r.Register(capture.ContextID(i))
	}

	hits := make(map[capture.ContextID]int)
	for i := 0; i < draws; i++ {
		ids := r.Snapshot(max)
		require.Len(t, ids, max)

		distinct := make(map[capture.ContextID]struct{})
		for _, id := range ids {
			distinct[id] = struct{}{}
			hits[id]++
		}
		require.Len(t, distinct, max)
	}

	expected := draws * max / contexts
	require.Len(t, hits, contexts)
	for id, n := range hits {
		assert.InDelta(t, expected, n, float64(expected)/4, "context %d", id)
	}
}
