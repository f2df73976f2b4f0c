package sphere

import "math"

// Vec is a direction on (or near) the unit sphere. All entity positions in
// the game are surface directions, never Cartesian magnitudes, so most
// callers keep these normalized.
type Vec struct {
	X float64
	Y float64
	Z float64
}

func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec) Scale(s float64) Vec { return Vec{v.X * s, v.Y * s, v.Z * s} }

func (v Vec) Dot(o Vec) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec) Cross(o Vec) Vec {
	return Vec{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec) Length() float64 { return math.Sqrt(v.Dot(v)) }

// Normalized returns the unit vector pointing the same way as v. A
// zero-length input collapses to the north pole rather than NaN so decode
// paths stay total.
func (v Vec) Normalized() Vec {
	l := v.Length()
	if l == 0 {
		return Vec{0, 0, 1}
	}
	return v.Scale(1 / l)
}

// Angle returns the angle between two directions in radians.
func Angle(a, b Vec) float64 {
	d := a.Dot(b) / (a.Length() * b.Length())
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return math.Acos(d)
}

// AngleDeg returns the angle between two directions in degrees.
func AngleDeg(a, b Vec) float64 {
	return Angle(a, b) * 180 / math.Pi
}

// RotateAround rotates v around the given axis by angle radians (Rodrigues).
// The axis must be unit length.
func RotateAround(v, axis Vec, angle float64) Vec {
	sin, cos := math.Sincos(angle)
	return v.Scale(cos).
		Add(axis.Cross(v).Scale(sin)).
		Add(axis.Scale(axis.Dot(v) * (1 - cos)))
}

// MoveToward rotates a along the great circle toward b by at most maxAngle
// radians, stopping exactly on b if it is closer than that. Antipodal inputs
// pick an arbitrary perpendicular rotation axis.
func MoveToward(a, b Vec, maxAngle float64) Vec {
	total := Angle(a, b)
	if total <= maxAngle || total == 0 {
		return b
	}
	axis := a.Cross(b)
	if axis.Length() < 1e-12 {
		axis = AnyPerpendicular(a)
	}
	return RotateAround(a, axis.Normalized(), maxAngle).Normalized()
}

// Slerp interpolates along the great circle from a to b. t may exceed [0,1],
// in which case the rotation is extrapolated past b.
func Slerp(a, b Vec, t float64) Vec {
	total := Angle(a, b)
	if total < 1e-9 {
		return a
	}
	axis := a.Cross(b)
	if axis.Length() < 1e-12 {
		axis = AnyPerpendicular(a)
	}
	return RotateAround(a, axis.Normalized(), total*t).Normalized()
}

// AnyPerpendicular returns an arbitrary unit vector perpendicular to v.
func AnyPerpendicular(v Vec) Vec {
	ref := Vec{1, 0, 0}
	if math.Abs(v.X) > 0.9 {
		ref = Vec{0, 1, 0}
	}
	return v.Cross(ref).Normalized()
}

// ProjectTangent removes the component of v along the surface normal p and
// normalizes the remainder, yielding a tangent direction at p. Returns false
// when v is (numerically) parallel to p.
func ProjectTangent(v, p Vec) (Vec, bool) {
	t := v.Sub(p.Scale(v.Dot(p)))
	if t.Length() < 1e-9 {
		return Vec{}, false
	}
	return t.Normalized(), true
}
