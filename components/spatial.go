// Package components defines ECS components for the obstacle world.
package components

import "gonum.org/v1/gonum/spatial/r2"

// Transform places an entity in the world.
type Transform struct {
	Position r2.Vec
	Rotation float64 // radians, counter-clockwise
}

// Velocity moves a Transform each tick.
type Velocity struct {
	Linear  r2.Vec  // units per second
	Angular float64 // radians per second
}
