package field

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestStoreZeroValueServesEmpty(t *testing.T) {
	var s Store
	require.NotNil(t, s.Field())
	assert.True(t, s.Field().IsEmpty())

	_, ok := s.SampleChecked(r2.Vec{})
	assert.False(t, ok)
	assert.True(t, NewStore().Field().IsEmpty())
}

func TestStorePublish(t *testing.T) {
	s := NewStore()
	region := testRegion(t, 0, 0, 10, 10, 21, 21)
	f := Compute(region, NewSnapshot(circleAt(t, 0, 0, 3)))

	s.Publish(f)
	assert.Same(t, f, s.Field())
	assert.Equal(t, region, s.Region())

	// Publishing the same field again changes nothing observable.
	before := s.Distance(r2.Vec{X: 4, Y: 1})
	s.Publish(f)
	assert.Same(t, f, s.Field())
	assert.Equal(t, before, s.Distance(r2.Vec{X: 4, Y: 1}))

	s.Publish(nil)
	assert.Same(t, f, s.Field())
}

func TestStoreDelegatesToField(t *testing.T) {
	s := NewStore()
	f := sampleField(t)
	s.Publish(f)

	p := r2.Vec{X: 1.3, Y: -0.7}
	assert.Equal(t, f.Sample(p), s.Sample(p))
	assert.Equal(t, f.Gradient(p), s.Gradient(p))
	assert.Equal(t, f.Curl(p), s.Curl(p))

	d, ok := s.DistanceChecked(p)
	require.True(t, ok)
	assert.Equal(t, f.Distance(p), d)
	_, ok = s.GradientChecked(r2.Vec{X: 1e9})
	assert.False(t, ok)
	_, ok = s.CurlChecked(r2.Vec{X: 1e9})
	assert.False(t, ok)
}

func TestStoreConcurrentReadersSeeWholeFields(t *testing.T) {
	region := testRegion(t, 0, 0, 10, 10, 21, 21)
	a := Compute(region, NewSnapshot(circleAt(t, -5, 0, 1)))
	b := Compute(region, NewSnapshot(circleAt(t, 5, 0, 1)))
	probes := []r2.Vec{{X: -5, Y: 0}, {X: 5, Y: 0}}

	s := NewStore()
	s.Publish(a)

	var wg sync.WaitGroup
	stop := make(chan struct{})
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
				f := s.Field()
				left, right := f.Distance(probes[0]), f.Distance(probes[1])
				if f == a {
					assert.InDelta(t, -1, left, 1e-9)
					assert.InDelta(t, 9, right, 1e-9)
				} else {
					assert.InDelta(t, 9, left, 1e-9)
					assert.InDelta(t, -1, right, 1e-9)
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			s.Publish(b)
		} else {
			s.Publish(a)
		}
	}
	close(stop)
	wg.Wait()
}
