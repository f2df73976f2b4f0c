package prediction

import (
	"orbsnake/client/internal/sphere"
	"orbsnake/client/internal/tuning"
)

// DeriveHeading recovers the rotation axis implied by the first two body
// points. The snake travels along the great circle from the second point
// through the head, so head × travel-tangent is the axis the head is
// currently orbiting.
func DeriveHeading(snake []sphere.Vec) sphere.Vec {
	if len(snake) == 0 {
		return sphere.Vec{X: 1}
	}
	head := snake[0]
	if len(snake) < 2 {
		return sphere.AnyPerpendicular(head)
	}
	travel, ok := sphere.ProjectTangent(head.Sub(snake[1]), head)
	if !ok {
		return sphere.AnyPerpendicular(head)
	}
	return head.Cross(travel).Normalized()
}

// Replay forward-simulates the snake from an authoritative baseline at
// fromMs up to toMs, applying each pending command from its send time
// onward. This mirrors the server's movement model: the head orbits its
// heading axis at a fixed angular speed (boosted while boosting), the
// heading turns toward the commanded axis at the turn rate, and each body
// point trails its predecessor at the segment spacing. It is deterministic:
// same inputs, same output.
func Replay(snake []sphere.Vec, heading sphere.Vec, fromMs, toMs int64, cmds []Command, tun *tuning.NetTuning) ([]sphere.Vec, sphere.Vec) {
	if len(snake) == 0 || toMs <= fromMs {
		return append([]sphere.Vec(nil), snake...), heading
	}

	body := append([]sphere.Vec(nil), snake...)
	axis := heading.Normalized()

	stepMs := tun.ReplayStepMs
	if stepMs <= 0 {
		stepMs = 16
	}

	t := float64(fromMs)
	end := float64(toMs)
	cmdIdx := 0
	var active *Command
	// Commands sent before the baseline are already reflected in it only if
	// acknowledged; pending ones still steer from their send time, clamped
	// to the window start.
	for cmdIdx < len(cmds) && float64(cmds[cmdIdx].SentAtMs) <= t {
		active = &cmds[cmdIdx]
		cmdIdx++
	}

	for t < end {
		dt := stepMs
		if t+dt > end {
			dt = end - t
		}
		for cmdIdx < len(cmds) && float64(cmds[cmdIdx].SentAtMs) <= t {
			active = &cmds[cmdIdx]
			cmdIdx++
		}

		boost := false
		if active != nil {
			boost = active.Boost
			if active.Axis != nil {
				axis = steerToward(axis, *active.Axis, body[0], tun.TurnRateRadPerSec*dt/1000)
			}
		}

		speed := tun.BaseSpeedRadPerSec
		if boost {
			speed *= tun.BoostSpeedMultiplier
		}
		advance(body, axis, speed*dt/1000, tun.SegmentSpacingRad)
		// Keep the axis tangent-orthogonal to the moved head so rotation
		// error cannot accumulate.
		axis = orthogonalize(axis, body[0])
		t += dt
	}
	return body, axis
}

// steerToward rotates the heading axis toward the commanded axis by at most
// maxAngle, keeping it orthogonal to the head.
func steerToward(axis, desired, head sphere.Vec, maxAngle float64) sphere.Vec {
	goal := orthogonalize(desired, head)
	return orthogonalize(sphere.MoveToward(axis, goal, maxAngle), head)
}

func orthogonalize(axis, head sphere.Vec) sphere.Vec {
	t, ok := sphere.ProjectTangent(axis, head)
	if !ok {
		return sphere.AnyPerpendicular(head)
	}
	return t
}

// advance moves the head along its orbit and lets the body trail at the
// segment spacing.
func advance(body []sphere.Vec, axis sphere.Vec, angle, spacing float64) {
	body[0] = sphere.RotateAround(body[0], axis, angle).Normalized()
	for i := 1; i < len(body); i++ {
		gap := sphere.Angle(body[i-1], body[i])
		if gap > spacing {
			body[i] = sphere.Slerp(body[i-1], body[i], spacing/gap)
		}
	}
}
