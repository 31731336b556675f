package field

import (
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r2"
)

// Store holds the currently published Field. Publish swaps the whole field
// in one atomic step, so readers on any goroutine see either the old or the
// new field and never a mix. The zero value is ready to use and serves the
// empty field.
type Store struct {
	current atomic.Pointer[Field]
}

// NewStore returns a Store serving the empty field.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(emptyField)
	return s
}

// Publish replaces the stored field. A nil field is ignored.
func (s *Store) Publish(f *Field) {
	if f == nil {
		return
	}
	s.current.Store(f)
}

// Field returns the published field. It is never nil.
func (s *Store) Field() *Field {
	if f := s.current.Load(); f != nil {
		return f
	}
	return emptyField
}

// Region returns the region of the published field.
func (s *Store) Region() Region {
	return s.Field().Region()
}

// Sample samples the published field. Panics like Field.Sample.
func (s *Store) Sample(p r2.Vec) Sample {
	return s.Field().Sample(p)
}

// SampleChecked samples the published field, reporting ok=false outside it.
func (s *Store) SampleChecked(p r2.Vec) (Sample, bool) {
	return s.Field().SampleChecked(p)
}

// Distance samples the published distance grid. Panics like Field.Distance.
func (s *Store) Distance(p r2.Vec) float64 {
	return s.Field().Distance(p)
}

// DistanceChecked samples the published distance grid.
func (s *Store) DistanceChecked(p r2.Vec) (float64, bool) {
	return s.Field().DistanceChecked(p)
}

// Gradient samples the published gradient grid. Panics like Field.Gradient.
func (s *Store) Gradient(p r2.Vec) r2.Vec {
	return s.Field().Gradient(p)
}

// GradientChecked samples the published gradient grid.
func (s *Store) GradientChecked(p r2.Vec) (r2.Vec, bool) {
	return s.Field().GradientChecked(p)
}

// Curl samples the published curl grid. Panics like Field.Curl.
func (s *Store) Curl(p r2.Vec) float64 {
	return s.Field().Curl(p)
}

// CurlChecked samples the published curl grid.
func (s *Store) CurlChecked(p r2.Vec) (float64, bool) {
	return s.Field().CurlChecked(p)
}
