package dashcache_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxera/fluxera/internal/dashcache"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type trendPoint struct {
	Date  string
	Value int
}

func TestSetGet_WithinTTL(t *testing.T) {
	c := dashcache.New()
	value := []trendPoint{{Date: "2024-01-01", Value: 5}}

	c.Set("trends:acme:assets:30d", value)

	got, ok := c.Get("trends:acme:assets:30d")
	require.True(t, ok)
	assert.Equal(t, value, got)
	assert.True(t, c.Has("trends:acme:assets:30d"))
}

func TestGet_Absent(t *testing.T) {
	c := dashcache.New()

	got, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.False(t, c.Has("missing"))
}

func TestGet_ExpiredEntryIsEvicted(t *testing.T) {
	clock := newFakeClock()
	c := dashcache.New(dashcache.WithClock(clock.Now))

	c.Set("k", "v", 10*time.Millisecond)
	assert.Equal(t, 1, c.Stats().Size)

	clock.Advance(15 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.False(t, c.Has("k"))
	assert.Equal(t, 0, c.Stats().Size, "expired entry should be evicted by the read")
}

func TestGet_ExpiresAfterRealSleep(t *testing.T) {
	c := dashcache.New()

	c.Set("k", "v", 10*time.Millisecond)
	time.Sleep(15 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.False(t, c.Has("k"))
	assert.NotContains(t, c.Stats().Keys, "k")
}

func TestGet_ExactlyAtTTLIsFresh(t *testing.T) {
	clock := newFakeClock()
	c := dashcache.New(dashcache.WithClock(clock.Now))

	c.Set("k", "v", time.Second)
	clock.Advance(time.Second)

	assert.True(t, c.Has("k"), "entry expires only once age exceeds ttl")

	clock.Advance(time.Nanosecond)
	assert.False(t, c.Has("k"))
}

func TestGet_RepeatedOnEvictedKeyIsStable(t *testing.T) {
	clock := newFakeClock()
	c := dashcache.New(dashcache.WithClock(clock.Now))
	c.Set("k", "v", time.Millisecond)
	clock.Advance(time.Second)

	for i := 0; i < 5; i++ {
		got, ok := c.Get("k")
		assert.False(t, ok)
		assert.Nil(t, got)
		assert.Equal(t, 0, c.Stats().Size)
	}
}

func TestSet_DefaultTTL(t *testing.T) {
	clock := newFakeClock()
	c := dashcache.New(dashcache.WithClock(clock.Now))

	assert.Equal(t, 30*time.Second, c.DefaultTTL())

	c.Set("k", 1)
	clock.Advance(29 * time.Second)
	assert.True(t, c.Has("k"))

	clock.Advance(2 * time.Second)
	assert.False(t, c.Has("k"))
}

func TestSet_CustomDefaultTTL(t *testing.T) {
	clock := newFakeClock()
	c := dashcache.New(dashcache.WithClock(clock.Now), dashcache.WithDefaultTTL(5*time.Second))

	c.Set("k", 1)
	clock.Advance(6 * time.Second)

	assert.False(t, c.Has("k"))
}

func TestSet_OverwriteRefreshesTimestamp(t *testing.T) {
	clock := newFakeClock()
	c := dashcache.New(dashcache.WithClock(clock.Now))

	c.Set("k", "old", 10*time.Second)
	clock.Advance(8 * time.Second)
	c.Set("k", "new", 10*time.Second)
	clock.Advance(8 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestDeleteAndClear(t *testing.T) {
	c := dashcache.New()
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Delete("a")
	c.Delete("does-not-exist")
	assert.False(t, c.Has("a"))
	assert.Equal(t, 2, c.Stats().Size)

	assert.Equal(t, 2, c.Clear())
	assert.Equal(t, 0, c.Stats().Size)
	assert.Empty(t, c.Stats().Keys)
	assert.Zero(t, c.Clear())
}

func TestClear_CountMatchesEntriesDropped(t *testing.T) {
	c := dashcache.New()

	var wg sync.WaitGroup
	var sets int64
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			c.Set(fmt.Sprintf("k%d", i), i)
			atomic.AddInt64(&sets, 1)
		}
	}()

	var removed int64
	for i := 0; i < 50; i++ {
		removed += int64(c.Clear())
		time.Sleep(100 * time.Microsecond)
	}
	close(done)
	wg.Wait()
	removed += int64(c.Clear())

	// Keys are distinct, so every Set adds exactly one entry.
	assert.Equal(t, atomic.LoadInt64(&sets), removed)
}

func TestDeletePrefix(t *testing.T) {
	c := dashcache.New()
	c.Set(dashcache.Trends("acme", "assets", "30d"), 1)
	c.Set(dashcache.Trends("acme", "licenses", "7d"), 2)
	c.Set(dashcache.Trends("acme-inc", "assets", "30d"), 3)
	c.Set(dashcache.TeamMetrics("acme"), 4)

	removed := c.DeletePrefix(dashcache.AccountPrefix(dashcache.KindTrends, "acme"))

	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"team-metrics:acme", "trends:acme-inc:assets:30d"}, c.Stats().Keys)
}

func TestClearExpired_MixedTTLs(t *testing.T) {
	clock := newFakeClock()
	c := dashcache.New(dashcache.WithClock(clock.Now))

	c.Set("short-1", 1, time.Second)
	c.Set("short-2", 2, 2*time.Second)
	c.Set("long-1", 3, time.Minute)
	c.Set("long-2", 4, time.Hour)

	clock.Advance(5 * time.Second)
	c.Set("fresh", 5, time.Millisecond)

	removed := c.ClearExpired()

	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"fresh", "long-1", "long-2"}, c.Stats().Keys)
	for _, key := range []string{"fresh", "long-1", "long-2"} {
		assert.True(t, c.Has(key), key)
	}
}

func TestClearExpired_Empty(t *testing.T) {
	c := dashcache.New()
	assert.Equal(t, 0, c.ClearExpired())
}

func TestStats_SortedAndReadOnly(t *testing.T) {
	clock := newFakeClock()
	c := dashcache.New(dashcache.WithClock(clock.Now))
	c.Set("b", 1, time.Millisecond)
	c.Set("a", 2)

	clock.Advance(time.Second)
	stats := c.Stats()

	assert.Equal(t, 2, stats.Size, "stats do not evict")
	assert.Equal(t, []string{"a", "b"}, stats.Keys)

	stats.Keys[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, c.Stats().Keys)
}

func TestLookup_Typed(t *testing.T) {
	c := dashcache.New()
	points := []trendPoint{{Date: "2024-01-01", Value: 5}}
	c.Set("trends", points)

	got, ok := dashcache.Lookup[[]trendPoint](c, "trends")
	require.True(t, ok)
	assert.Equal(t, points, got)

	_, ok = dashcache.Lookup[string](c, "trends")
	assert.False(t, ok, "type mismatch is a miss")
}

func TestFetch_ComputesOnceWithinTTL(t *testing.T) {
	c := dashcache.New()
	key := dashcache.Trends("acme", "assets", "30d")
	calls := 0
	compute := func() ([]trendPoint, error) {
		calls++
		return []trendPoint{{Date: "2024-01-01", Value: 5}}, nil
	}

	first, hit, err := dashcache.Fetch(c, key, 0, compute)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := dashcache.Fetch(c, key, 0, compute)
	require.NoError(t, err)
	assert.True(t, hit)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, []trendPoint{{Date: "2024-01-01", Value: 5}}, second)
}

func TestFetch_ErrorsAreNotCached(t *testing.T) {
	c := dashcache.New()
	calls := 0
	compute := func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("query failed")
		}
		return 42, nil
	}

	_, _, err := dashcache.Fetch(c, "k", 0, compute)
	require.Error(t, err)
	assert.False(t, c.Has("k"))

	got, hit, err := dashcache.Fetch(c, "k", 0, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestConcurrentAccess(t *testing.T) {
	c := dashcache.New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			c.Set(key, i)
			c.Get(key)
			c.Has(key)
			c.ClearExpired()
			c.Stats()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, c.Stats().Size)
}

func TestStart_SweepsPeriodically(t *testing.T) {
	clock := newFakeClock()
	c := dashcache.New(
		dashcache.WithClock(clock.Now),
		dashcache.WithSweepInterval(5*time.Millisecond),
	)
	c.Set("stale", 1, time.Second)
	c.Set("fresh", 2, time.Hour)
	clock.Advance(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return c.Stats().Size == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"fresh"}, c.Stats().Keys)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}

func TestStart_DisabledReturnsImmediately(t *testing.T) {
	c := dashcache.New(dashcache.WithSweepInterval(0))

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return when sweeping is disabled")
	}
}

func TestStart_SurvivesPanickingClock(t *testing.T) {
	var mu sync.Mutex
	panicking := true
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		if panicking {
			panic("clock unavailable")
		}
		return time.Now()
	}
	c := dashcache.New(dashcache.WithClock(now), dashcache.WithSweepInterval(2*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	panicking = false
	mu.Unlock()

	c.Set("k", 1, time.Hour)
	assert.True(t, c.Has("k"), "cache keeps working after a failed sweep")
}
