package horde

import "math"

// Vec3 is a world-space point or direction. Movement happens on the ground
// plane (x, z); y is height.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// LengthXZ is the ground-plane length.
func (v Vec3) LengthXZ() float64 { return math.Hypot(v.X, v.Z) }

// NormalizeXZ returns the unit ground-plane direction of v, or the zero
// vector when v has no ground-plane extent.
func (v Vec3) NormalizeXZ() Vec3 {
	l := v.LengthXZ()
	if l < 1e-9 {
		return Vec3{}
	}
	return Vec3{X: v.X / l, Z: v.Z / l}
}

// DistXZ is the ground-plane distance between two points.
func DistXZ(a, b Vec3) float64 { return math.Hypot(a.X-b.X, a.Z-b.Z) }

// distSqXZ avoids the sqrt for range checks.
func distSqXZ(a, b Vec3) float64 {
	dx, dz := a.X-b.X, a.Z-b.Z
	return dx*dx + dz*dz
}

// NormalizeAngle maps a to (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// BearingTo is the yaw that faces from pos toward target (atan2(dx, dz)).
func BearingTo(pos, target Vec3) float64 {
	return math.Atan2(target.X-pos.X, target.Z-pos.Z)
}

// SmoothDampAngle moves current toward target with a critically damped
// spring, taking the short way around the circle. velocity is carried
// between calls.
func SmoothDampAngle(current, target float64, velocity *float64, smoothTime, dt float64) float64 {
	if smoothTime < 1e-4 {
		smoothTime = 1e-4
	}
	if dt <= 0 {
		return current
	}
	omega := 2 / smoothTime
	x := omega * dt
	decay := 1 / (1 + x + 0.48*x*x + 0.235*x*x*x)

	change := NormalizeAngle(current - target)
	goal := current - change

	temp := (*velocity + omega*change) * dt
	*velocity = (*velocity - omega*temp) * decay
	out := goal + (change+temp)*decay

	// Do not overshoot the goal.
	if (goal-current > 0) == (out > goal) {
		out = goal
		*velocity = 0
	}
	return NormalizeAngle(out)
}
