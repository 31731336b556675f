package components

// Probe is an entity that moves along the obstacle field.
type Probe struct {
	ID uint32

	// Orbit is the preferred circulation: +1 counter-clockwise, -1 clockwise,
	// 0 to follow the sign of the sampled curl.
	Orbit int8

	// Last sample, refreshed every tick the probe is inside the field.
	Distance float64
	Curl     float64
	Covered  bool

	Contacts int32   // ticks spent inside an obstacle
	Travel   float64 // distance moved since spawn
}
