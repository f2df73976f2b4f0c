package proto

import (
	"math"

	"orbsnake/client/internal/sphere"
)

const octScale = 32767

// encodeOct packs a unit direction into two i16s via octahedral projection:
// project onto the L1 unit octahedron, then fold the lower hemisphere into
// the upper one with an L1-norm-preserving reflection.
func encodeOct(v sphere.Vec) (int16, int16) {
	n := math.Abs(v.X) + math.Abs(v.Y) + math.Abs(v.Z)
	if n == 0 {
		n = 1
	}
	x := v.X / n
	y := v.Y / n
	if v.Z < 0 {
		fx := (1 - math.Abs(y)) * signNonNeg(x)
		fy := (1 - math.Abs(x)) * signNonNeg(y)
		x, y = fx, fy
	}
	return quantSigned(x), quantSigned(y)
}

// decodeOct inverts the projection. When the reconstructed z is negative the
// fold is undone by reflecting x and y by the excess t = -z. The excess is
// NOT added back into z: doing so collapses every lower-hemisphere direction
// onto the equator, because the folded (x, y) already encode the full
// off-pole angle. The negative z is kept as-is and normalization absorbs the
// remaining L2 error.
func decodeOct(xq, yq int16) sphere.Vec {
	x := float64(xq) / octScale
	y := float64(yq) / octScale
	z := 1 - math.Abs(x) - math.Abs(y)
	if z < 0 {
		t := -z
		if x >= 0 {
			x -= t
		} else {
			x += t
		}
		if y >= 0 {
			y -= t
		} else {
			y += t
		}
	}
	return sphere.Vec{X: x, Y: y, Z: z}.Normalized()
}

func signNonNeg(v float64) float64 {
	if v >= 0 {
		return 1
	}
	return -1
}

func quantSigned(v float64) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(math.Round(v * octScale))
}
