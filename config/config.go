// Package config provides configuration loading and access for the field host.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/flatland/field"
	"github.com/pthm-cable/flatland/integrator"
	"github.com/pthm-cable/flatland/shapes"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig wraps every validation failure reported by Load.
var ErrInvalidConfig = errors.New("invalid config")

// RecommendedResolution is the smallest grid with a non-zero curl interior.
const RecommendedResolution = 5

// Config holds all host configuration parameters.
type Config struct {
	Field      FieldConfig      `yaml:"field"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Obstacles  []ObstacleConfig `yaml:"obstacles"`
	Probes     ProbesConfig     `yaml:"probes"`
	Integrator IntegratorConfig `yaml:"integrator"`
	Sim        SimConfig        `yaml:"sim"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// Vec2 is a 2D vector in YAML as {x, y}.
type Vec2 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// R2 converts to a gonum vector.
func (v Vec2) R2() r2.Vec { return r2.Vec{X: v.X, Y: v.Y} }

// Resolution is a grid size in cells.
type Resolution struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// FieldConfig describes the world region covered by the distance field.
type FieldConfig struct {
	Center      Vec2       `yaml:"center"`
	HalfExtents Vec2       `yaml:"half_extents"`
	Resolution  Resolution `yaml:"resolution"`
}

// SchedulerConfig holds background computation parameters.
type SchedulerConfig struct {
	LogCoalesced bool `yaml:"log_coalesced"`
}

// ObstacleConfig describes one scene obstacle.
type ObstacleConfig struct {
	Name        string  `yaml:"name"`
	Shape       string  `yaml:"shape"`
	HalfExtents Vec2    `yaml:"half_extents,omitempty"` // box
	Radius      float64 `yaml:"radius,omitempty"`       // circle, capsule
	HalfLength  float64 `yaml:"half_length,omitempty"`  // capsule
	Vertices    []Vec2  `yaml:"vertices,omitempty"`     // polygon
	Position    Vec2    `yaml:"position"`
	Rotation    float64 `yaml:"rotation,omitempty"` // radians
	Velocity    Vec2    `yaml:"velocity,omitempty"` // units per second
	Spin        float64 `yaml:"spin,omitempty"`     // radians per second
}

// BuildShape constructs the collider shape described by o.
func (o ObstacleConfig) BuildShape() (shapes.Shape, error) {
	switch o.Shape {
	case "box":
		return shapes.NewBox(o.HalfExtents.X, o.HalfExtents.Y)
	case "circle":
		return shapes.NewCircle(o.Radius)
	case "capsule":
		return shapes.NewCapsule(o.HalfLength, o.Radius)
	case "polygon":
		verts := make([]r2.Vec, len(o.Vertices))
		for i, v := range o.Vertices {
			verts[i] = v.R2()
		}
		return shapes.NewPolygon(verts...)
	}
	return nil, fmt.Errorf("%w: unknown kind %q", shapes.ErrInvalidShape, o.Shape)
}

// Moving reports whether the obstacle has a velocity or spin.
func (o ObstacleConfig) Moving() bool {
	return o.Velocity != (Vec2{}) || o.Spin != 0
}

// ProbesConfig holds field-following probe parameters.
type ProbesConfig struct {
	Count       int     `yaml:"count"`
	SpawnRadius float64 `yaml:"spawn_radius"`
	Speed       float64 `yaml:"speed"`
	Clearance   float64 `yaml:"clearance"`
	Repulsion   float64 `yaml:"repulsion"`
	Orbit       int     `yaml:"orbit"`
}

// IntegratorConfig selects the Runge-Kutta method used to move probes.
type IntegratorConfig struct {
	Method string `yaml:"method"`
}

// SimConfig holds tick loop parameters.
type SimConfig struct {
	DT float64 `yaml:"dt"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	FieldStride         int     `yaml:"field_stride"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Region   field.Region        // field section as a validated region
	Method   *integrator.Tableau // resolved integrator method
	TickTime time.Duration       // Sim.DT as a duration
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// Parse merges YAML data over cfg. Keys absent from data keep their values;
// a present obstacles list replaces the whole scene.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Validate checks every section and reports the first problem found.
func (c *Config) Validate() error {
	if _, err := c.region(); err != nil {
		return fmt.Errorf("%w: field: %w", ErrInvalidConfig, err)
	}
	r := c.Field.Resolution
	if r.Width < RecommendedResolution || r.Height < RecommendedResolution {
		slog.Warn("field resolution leaves no curl interior",
			"width", r.Width,
			"height", r.Height,
			"recommended", RecommendedResolution,
		)
	}

	for i, o := range c.Obstacles {
		if _, err := o.BuildShape(); err != nil {
			return fmt.Errorf("%w: obstacles[%d] %q: %w", ErrInvalidConfig, i, o.Name, err)
		}
	}

	p := c.Probes
	switch {
	case p.Count < 0:
		return fmt.Errorf("%w: probes.count must be >= 0, got %d", ErrInvalidConfig, p.Count)
	case p.Speed < 0 || p.Clearance < 0 || p.Repulsion < 0 || p.SpawnRadius < 0:
		return fmt.Errorf("%w: probes speed, clearance, repulsion and spawn_radius must be >= 0", ErrInvalidConfig)
	case p.Orbit < -1 || p.Orbit > 1:
		return fmt.Errorf("%w: probes.orbit must be -1, 0 or 1, got %d", ErrInvalidConfig, p.Orbit)
	}

	if _, err := integrator.ByName(c.Integrator.Method); err != nil {
		return fmt.Errorf("%w: integrator: %w", ErrInvalidConfig, err)
	}
	if !(c.Sim.DT > 0) {
		return fmt.Errorf("%w: sim.dt must be > 0, got %g", ErrInvalidConfig, c.Sim.DT)
	}
	if !(c.Telemetry.StatsWindow > 0) {
		return fmt.Errorf("%w: telemetry.stats_window must be > 0, got %g", ErrInvalidConfig, c.Telemetry.StatsWindow)
	}
	if c.Telemetry.PerfCollectorWindow < 1 {
		return fmt.Errorf("%w: telemetry.perf_collector_window must be >= 1", ErrInvalidConfig)
	}
	if c.Telemetry.FieldStride < 1 {
		return fmt.Errorf("%w: telemetry.field_stride must be >= 1, got %d", ErrInvalidConfig, c.Telemetry.FieldStride)
	}
	return nil
}

func (c *Config) region() (field.Region, error) {
	return field.NewRegion(
		c.Field.Center.R2(),
		c.Field.HalfExtents.R2(),
		c.Field.Resolution.Width,
		c.Field.Resolution.Height,
	)
}

// computeDerived calculates values derived from a validated config.
func (c *Config) computeDerived() {
	c.Derived.Region, _ = c.region()
	c.Derived.Method, _ = integrator.ByName(c.Integrator.Method)
	c.Derived.TickTime = time.Duration(c.Sim.DT * float64(time.Second))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
