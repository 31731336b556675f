package components

import "github.com/pthm-cable/flatland/shapes"

// Collider gives an entity a solid shape in its local frame.
type Collider struct {
	Shape shapes.Shape
}

// Obstacle marks a collider that contributes to the obstacle distance field.
type Obstacle struct {
	Label string
}
