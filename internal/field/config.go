package field

// Population.
const DefaultCount = 2000

// Tree silhouette (world units).
const (
	TreeHeight   = 24.0
	BaseRadius   = 8.0  // diameter 16 at the base
	SpiralTurns  = 20.0 // angle = t * 2π * SpiralTurns
	RadiusJitter = 1.5  // total width of the uniform radius noise
)

// Scatter cloud.
const ScatterRadius = 15.0

// Per-particle attribute ranges.
const (
	ScaleMin   = 0.2
	ScaleMax   = 0.8
	SpeedMin   = 0.01
	SpeedMax   = 0.05
	CubeChance = 0.6
)
