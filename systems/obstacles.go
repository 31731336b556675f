// Package systems contains ECS systems for the obstacle world.
package systems

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flatland/components"
	"github.com/pthm-cable/flatland/field"
	"github.com/pthm-cable/flatland/shapes"
)

// ErrNotObstacle is returned when an entity is dead or has no obstacle
// components.
var ErrNotObstacle = errors.New("systems: entity is not a live obstacle")

// ObstacleSystem owns the obstacle entities of a world, builds field
// snapshots from them and raises a dirty flag whenever one is added, moved
// or removed.
type ObstacleSystem struct {
	world      *ecs.World
	mapper     *ecs.Map3[components.Transform, components.Collider, components.Obstacle]
	filter     *ecs.Filter3[components.Transform, components.Collider, components.Obstacle]
	movers     *ecs.Filter3[components.Transform, components.Velocity, components.Obstacle]
	obstacles  *ecs.Map[components.Obstacle]
	transforms *ecs.Map[components.Transform]
	velocities *ecs.Map[components.Velocity]

	dirty   bool
	scratch []snapshotEntry
}

type snapshotEntry struct {
	id       uint32
	obstacle field.Obstacle
}

// NewObstacleSystem creates an obstacle system over w.
func NewObstacleSystem(w *ecs.World) *ObstacleSystem {
	return &ObstacleSystem{
		world:      w,
		mapper:     ecs.NewMap3[components.Transform, components.Collider, components.Obstacle](w),
		filter:     ecs.NewFilter3[components.Transform, components.Collider, components.Obstacle](w),
		movers:     ecs.NewFilter3[components.Transform, components.Velocity, components.Obstacle](w),
		obstacles:  ecs.NewMap[components.Obstacle](w),
		transforms: ecs.NewMap[components.Transform](w),
		velocities: ecs.NewMap[components.Velocity](w),
	}
}

// Spawn adds a static obstacle.
func (s *ObstacleSystem) Spawn(shape shapes.Shape, t components.Transform, label string) (ecs.Entity, error) {
	if shape == nil {
		return ecs.Entity{}, fmt.Errorf("%w: obstacle %q has no shape", shapes.ErrInvalidShape, label)
	}
	e := s.mapper.NewEntity(&t, &components.Collider{Shape: shape}, &components.Obstacle{Label: label})
	s.dirty = true
	return e, nil
}

// SpawnMoving adds an obstacle that Update advances by v every tick.
func (s *ObstacleSystem) SpawnMoving(shape shapes.Shape, t components.Transform, v components.Velocity, label string) (ecs.Entity, error) {
	e, err := s.Spawn(shape, t, label)
	if err != nil {
		return e, err
	}
	s.velocities.Add(e, &v)
	return e, nil
}

func (s *ObstacleSystem) isObstacle(e ecs.Entity) bool {
	return s.world.Alive(e) && s.obstacles.Has(e)
}

// Move places an obstacle at a new transform.
func (s *ObstacleSystem) Move(e ecs.Entity, t components.Transform) error {
	if !s.isObstacle(e) {
		return ErrNotObstacle
	}
	*s.transforms.Get(e) = t
	s.dirty = true
	return nil
}

// Remove deletes an obstacle entity.
func (s *ObstacleSystem) Remove(e ecs.Entity) error {
	if !s.isObstacle(e) {
		return ErrNotObstacle
	}
	s.world.RemoveEntity(e)
	s.dirty = true
	return nil
}

// Update advances moving obstacles by dt seconds.
func (s *ObstacleSystem) Update(dt float64) {
	query := s.movers.Query()
	for query.Next() {
		t, v, _ := query.Get()
		if v.Linear.X == 0 && v.Linear.Y == 0 && v.Angular == 0 {
			continue
		}
		t.Position.X += v.Linear.X * dt
		t.Position.Y += v.Linear.Y * dt
		t.Rotation += v.Angular * dt
		s.dirty = true
	}
}

// Dirty reports whether obstacles changed since the last ClearDirty.
func (s *ObstacleSystem) Dirty() bool { return s.dirty }

// MarkDirty requests a new snapshot without changing any obstacle.
func (s *ObstacleSystem) MarkDirty() { s.dirty = true }

// ClearDirty resets the dirty flag after a snapshot was handed to the
// scheduler.
func (s *ObstacleSystem) ClearDirty() { s.dirty = false }

// Count returns the number of live obstacles.
func (s *ObstacleSystem) Count() int {
	query := s.filter.Query()
	n := query.Count()
	query.Close()
	return n
}

// Snapshot copies every live obstacle into an immutable snapshot, ordered by
// entity ID so equal worlds yield equal snapshots.
func (s *ObstacleSystem) Snapshot() field.Snapshot {
	s.scratch = s.scratch[:0]
	query := s.filter.Query()
	for query.Next() {
		t, c, o := query.Get()
		s.scratch = append(s.scratch, snapshotEntry{
			id: query.Entity().ID(),
			obstacle: field.Obstacle{
				Shape:    c.Shape,
				Position: t.Position,
				Rotation: t.Rotation,
				Label:    o.Label,
			},
		})
	}
	sort.Slice(s.scratch, func(i, j int) bool { return s.scratch[i].id < s.scratch[j].id })

	obs := make([]field.Obstacle, len(s.scratch))
	for i, e := range s.scratch {
		obs[i] = e.obstacle
	}
	return field.NewSnapshot(obs...)
}
