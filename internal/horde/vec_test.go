package horde

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{5 * math.Pi, math.Pi},
		{0.5, 0.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeAngle(tt.in), 1e-9, "in=%v", tt.in)
	}
}

func TestNormalizeXZ(t *testing.T) {
	assert.Equal(t, Vec3{}, Vec3{Y: 5}.NormalizeXZ(), "no ground extent")

	n := Vec3{X: 3, Y: 9, Z: 4}.NormalizeXZ()
	assert.InDelta(t, 0.6, n.X, 1e-12)
	assert.InDelta(t, 0.8, n.Z, 1e-12)
	assert.Equal(t, 0.0, n.Y)
}

func TestBearingTo(t *testing.T) {
	assert.InDelta(t, 0, BearingTo(Vec3{}, Vec3{Z: 1}), 1e-12)
	assert.InDelta(t, math.Pi/2, BearingTo(Vec3{}, Vec3{X: 1}), 1e-12)
}

// TestSmoothDampAngleShortWay verifies turning across ±π takes the short arc.
func TestSmoothDampAngleShortWay(t *testing.T) {
	current := 3.0
	target := -3.0 // 0.28 rad away across the seam
	vel := 0.0

	next := SmoothDampAngle(current, target, &vel, 0.2, 1.0/60)
	assert.Greater(t, next, current, "moves up through π, not down through 0")

	for i := 0; i < 300; i++ {
		current = SmoothDampAngle(current, target, &vel, 0.2, 1.0/60)
	}
	assert.InDelta(t, 0, NormalizeAngle(current-target), 1e-3)
}

func TestSmoothDampAngleZeroDT(t *testing.T) {
	vel := 1.0
	assert.Equal(t, 0.3, SmoothDampAngle(0.3, 2, &vel, 0.2, 0))
}
