package horde

import (
	"math"
	"time"
)

// DeathAnimator drives the fall of a Dying entity: Falling until the fall
// duration has elapsed, then Done. The Engine only removes an entity after
// Advance reports done, so removal never overlaps an animation frame.
type DeathAnimator struct {
	Fall           time.Duration
	StandingHeight float64
}

func easeOutCubic(p float64) float64 {
	q := 1 - p
	return 1 - q*q*q
}

// Advance updates tilt and height for e at now and reports whether the
// animation is finished. Non-Dying entities are left untouched.
func (d DeathAnimator) Advance(e *Entity, now time.Time) bool {
	if e.State != StateDying {
		return false
	}
	elapsed := now.Sub(e.DyingStart)
	if elapsed < 0 {
		elapsed = 0
	}

	var tilt, height float64
	done := elapsed >= d.Fall
	if done {
		tilt = math.Pi / 2
		height = 0
	} else {
		p := float64(elapsed) / float64(d.Fall)
		tilt = easeOutCubic(p) * math.Pi / 2
		q := 1 - p
		height = d.StandingHeight * q * q * q
	}

	e.Tilt = tilt
	e.Position.Y = height
	if v := e.Visual; v != nil {
		v.Tilt = tilt
		v.Height = height
		v.Position.Y = height
	}
	return done
}
