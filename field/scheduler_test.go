package field

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

// gatedCompute blocks every computation until release is called and records
// the obstacle count of each snapshot it was asked to compute.
type gatedCompute struct {
	mu    sync.Mutex
	seen  []int
	gate  chan struct{}
	start chan struct{}
}

func newGatedCompute() *gatedCompute {
	return &gatedCompute{
		gate:  make(chan struct{}),
		start: make(chan struct{}, 16),
	}
}

func (g *gatedCompute) compute(region Region, snap Snapshot) *Field {
	g.mu.Lock()
	g.seen = append(g.seen, snap.Len())
	g.mu.Unlock()
	g.start <- struct{}{}
	<-g.gate
	return Compute(region, snap)
}

func (g *gatedCompute) release() {
	g.gate <- struct{}{}
}

func (g *gatedCompute) calls() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.seen...)
}

func snapshotOf(t *testing.T, n int) Snapshot {
	t.Helper()
	obs := make([]Obstacle, n)
	for i := range obs {
		obs[i] = circleAt(t, float64(i), 0, 0.5)
	}
	return NewSnapshot(obs...)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSchedulerTriggerPollOnce(t *testing.T) {
	s := NewScheduler()
	region := testRegion(t, 0, 0, 10, 10, 21, 21)

	h, err := s.Trigger(snapshotOf(t, 1), region)
	require.NoError(t, err)
	require.NoError(t, s.Wait(waitCtx(t)))

	assert.Equal(t, StateCompleted, s.Info(h).State)
	f, ok := s.Poll(h)
	require.True(t, ok)
	require.NotNil(t, f)
	assert.Equal(t, 1, f.ObstacleCount())
	assert.Equal(t, region, f.Region())

	_, ok = s.Poll(h)
	assert.False(t, ok, "a result is handed out once")
	assert.Equal(t, StateConsumed, s.Info(h).State)
	assert.False(t, s.Busy())

	info := s.Info(h)
	assert.Equal(t, h.ID(), info.ID)
	assert.Equal(t, 1, info.Obstacles)
	assert.Equal(t, 1, info.Triggers)
}

func TestSchedulerPollWhileRunning(t *testing.T) {
	g := newGatedCompute()
	s := NewScheduler(WithComputeFunc(g.compute))
	region := testRegion(t, 0, 0, 10, 10, 21, 21)

	h, err := s.Trigger(snapshotOf(t, 2), region)
	require.NoError(t, err)
	<-g.start

	_, ok := s.Poll(h)
	assert.False(t, ok)
	assert.Equal(t, StateRunning, s.Info(h).State)
	assert.True(t, s.Busy())

	g.release()
	<-h.Done()
	f, ok := s.Poll(h)
	require.True(t, ok)
	assert.Equal(t, 2, f.ObstacleCount())
}

func TestSchedulerCoalescesToLatestSnapshot(t *testing.T) {
	g := newGatedCompute()
	s := NewScheduler(WithComputeFunc(g.compute))
	region := testRegion(t, 0, 0, 10, 10, 21, 21)

	first, err := s.Trigger(snapshotOf(t, 1), region)
	require.NoError(t, err)
	<-g.start

	var queued []*Pending
	for n := 2; n <= 5; n++ {
		h, err := s.Trigger(snapshotOf(t, n), region)
		require.NoError(t, err)
		queued = append(queued, h)
	}
	for _, h := range queued[1:] {
		assert.Same(t, queued[0], h, "triggers while running share one queued handle")
	}
	assert.NotSame(t, first, queued[0])
	assert.Equal(t, StateQueued, s.Info(queued[0]).State)
	assert.Equal(t, 4, s.Info(queued[0]).Triggers)

	g.release()
	<-first.Done()
	f, ok := s.Poll(first)
	require.True(t, ok)
	assert.Equal(t, 1, f.ObstacleCount())

	// The poll above promoted the queued computation.
	<-g.start
	assert.Equal(t, StateRunning, s.Info(queued[0]).State)
	g.release()
	require.NoError(t, s.Wait(waitCtx(t)))

	f, ok = s.Poll(queued[0])
	require.True(t, ok)
	assert.Equal(t, 5, f.ObstacleCount())
	assert.Equal(t, []int{1, 5}, g.calls(), "intermediate snapshots are never computed")
}

func TestSchedulerTriggerAfterCompletionStartsNew(t *testing.T) {
	s := NewScheduler()
	region := testRegion(t, 0, 0, 10, 10, 21, 21)

	a, err := s.Trigger(snapshotOf(t, 1), region)
	require.NoError(t, err)
	require.NoError(t, s.Wait(waitCtx(t)))

	b, err := s.Trigger(snapshotOf(t, 2), region)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	require.NoError(t, s.Wait(waitCtx(t)))

	fa, ok := s.Poll(a)
	require.True(t, ok)
	fb, ok := s.Poll(b)
	require.True(t, ok)
	assert.Equal(t, 1, fa.ObstacleCount())
	assert.Equal(t, 2, fb.ObstacleCount())
}

func TestSchedulerRejectsInvalidRegion(t *testing.T) {
	s := NewScheduler()
	h, err := s.Trigger(NewSnapshot(), Region{Width: 1, Height: 1})
	assert.ErrorIs(t, err, ErrInvalidRegion)
	assert.Nil(t, h)
	assert.False(t, s.Busy())

	_, ok := s.Poll(nil)
	assert.False(t, ok)
}

func TestSchedulerWaitHonoursContext(t *testing.T) {
	g := newGatedCompute()
	s := NewScheduler(WithComputeFunc(g.compute))
	region := testRegion(t, 0, 0, 10, 10, 21, 21)

	_, err := s.Trigger(snapshotOf(t, 1), region)
	require.NoError(t, err)
	<-g.start

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.Canceled)

	g.release()
	require.NoError(t, s.Wait(waitCtx(t)))
}

func TestSchedulerPublishInterleavings(t *testing.T) {
	// A slowed worker plus concurrent readers: every field readers see is
	// one that some computation produced whole.
	rng := rand.New(rand.NewSource(7))
	var rngMu sync.Mutex
	slow := func(region Region, snap Snapshot) *Field {
		rngMu.Lock()
		d := time.Duration(rng.Intn(3)) * time.Millisecond
		rngMu.Unlock()
		time.Sleep(d)
		return Compute(region, snap)
	}
	s := NewScheduler(WithComputeFunc(slow))
	store := NewStore()
	region := testRegion(t, 0, 0, 10, 10, 21, 21)
	point := r2.Vec{X: 0, Y: 0}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				f := store.Field()
				d, ok := f.DistanceChecked(point)
				if !ok {
					continue
				}
				// Snapshot n holds circles at x = 0..n-1, so the point is
				// always inside the first one.
				assert.InDelta(t, -0.5, d, 1e-9)
				assert.Positive(t, f.ObstacleCount())
			}
		}()
	}

	var handles []*Pending
	for n := 1; n <= 30; n++ {
		h, err := s.Trigger(snapshotOf(t, n), region)
		require.NoError(t, err)
		if len(handles) == 0 || handles[len(handles)-1] != h {
			handles = append(handles, h)
		}
		for _, p := range handles {
			if f, ok := s.Poll(p); ok {
				store.Publish(f)
			}
		}
		time.Sleep(time.Duration(n%3) * time.Millisecond)
	}
	require.NoError(t, s.Wait(waitCtx(t)))
	for _, p := range handles {
		if f, ok := s.Poll(p); ok {
			store.Publish(f)
		}
	}
	close(stop)
	wg.Wait()

	for _, p := range handles {
		assert.Equal(t, StateConsumed, s.Info(p).State)
	}
	assert.Equal(t, 30, store.Field().ObstacleCount(), "the final trigger always wins")
}

func TestStoreServesPreviousFieldUntilPoll(t *testing.T) {
	g := newGatedCompute()
	s := NewScheduler(WithComputeFunc(g.compute))
	store := NewStore()
	region := testRegion(t, 0, 0, 10, 10, 21, 21)
	point := r2.Vec{X: 5, Y: 0}

	// Field A: a unit circle left of the origin.
	a, err := s.Trigger(NewSnapshot(circleAt(t, -5, 0, 1)), region)
	require.NoError(t, err)
	<-g.start
	g.release()
	<-a.Done()
	fa, ok := s.Poll(a)
	require.True(t, ok)
	store.Publish(fa)
	require.InDelta(t, 9, store.Distance(point), 1e-9)

	// Field B moves the circle onto the point and is held by the gate.
	b, err := s.Trigger(NewSnapshot(circleAt(t, 5, 0, 1)), region)
	require.NoError(t, err)
	<-g.start

	for i := 0; i < 3; i++ {
		_, ok := s.Poll(b)
		require.False(t, ok)
		assert.Same(t, fa, store.Field())
		assert.InDelta(t, 9, store.Distance(point), 1e-9, "readers keep field A while B runs")
	}

	g.release()
	<-b.Done()
	assert.InDelta(t, 9, store.Distance(point), 1e-9, "a finished computation is not visible before Poll")

	fb, ok := s.Poll(b)
	require.True(t, ok)
	store.Publish(fb)
	assert.InDelta(t, -1, store.Distance(point), 1e-9)
}
