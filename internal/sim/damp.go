package sim

import "math"

const (
	positionRate = 2.5
	rotationRate = 2.0

	floatAssembled = 0.1
	floatScattered = 0.5
	floatYRatio    = 0.8 // Y oscillates slower than X

	scatterYawDrift = 0.2 // rad/s added to the yaw target while scattered
)

// tickFactors holds everything the sweep needs that depends only on the
// tick inputs, computed once so math.Exp stays out of the per-particle loop.
type tickFactors struct {
	clock     float64
	posK      float64 // 1 - exp(-positionRate * dt)
	rotK      float64 // 1 - exp(-rotationRate * dt)
	intensity float64
	yawDrift  float64
	assembled bool
}

func computeFactors(clock, dt float64, mode Mode) tickFactors {
	f := tickFactors{
		clock:     clock,
		posK:      -math.Expm1(-positionRate * dt),
		rotK:      -math.Expm1(-rotationRate * dt),
		intensity: floatScattered,
		assembled: mode == Assembled,
	}
	if f.assembled {
		f.intensity = floatAssembled
	} else {
		f.yawDrift = clock * scatterYawDrift
	}
	return f
}

// damp moves cur toward target by fraction k.
func damp(cur, target, k float64) float64 {
	return cur + (target-cur)*k
}

// validDelta reports whether dt is a usable tick length.
func validDelta(dt float64) bool {
	return !math.IsNaN(dt) && !math.IsInf(dt, 0) && dt >= 0
}
