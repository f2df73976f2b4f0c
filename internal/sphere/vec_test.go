package sphere

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestNormalizedHandlesZeroVector(t *testing.T) {
	v := Vec{}.Normalized()
	if !almostEqual(v.Length(), 1, 1e-12) {
		t.Fatalf("expected unit fallback, got length %v", v.Length())
	}
}

func TestAngleBetweenAxes(t *testing.T) {
	got := Angle(Vec{X: 1}, Vec{Y: 1})
	if !almostEqual(got, math.Pi/2, 1e-12) {
		t.Fatalf("expected pi/2, got %v", got)
	}
	if a := Angle(Vec{Z: 1}, Vec{Z: 1}); !almostEqual(a, 0, 1e-12) {
		t.Fatalf("expected zero angle, got %v", a)
	}
}

func TestRotateAroundQuarterTurn(t *testing.T) {
	got := RotateAround(Vec{X: 1}, Vec{Z: 1}, math.Pi/2)
	if !almostEqual(got.X, 0, 1e-12) || !almostEqual(got.Y, 1, 1e-12) {
		t.Fatalf("unexpected rotation result: %+v", got)
	}
}

func TestMoveTowardStopsOnTarget(t *testing.T) {
	a := Vec{X: 1}
	b := Vec{Y: 1}
	got := MoveToward(a, b, math.Pi) // further than the pi/2 separation
	if Angle(got, b) > 1e-12 {
		t.Fatalf("expected to land on target, angle %v", Angle(got, b))
	}

	partial := MoveToward(a, b, math.Pi/4)
	if !almostEqual(Angle(a, partial), math.Pi/4, 1e-9) {
		t.Fatalf("expected quarter-pi step, got %v", Angle(a, partial))
	}
}

func TestSlerpMidpoint(t *testing.T) {
	a := Vec{X: 1}
	b := Vec{Y: 1}
	mid := Slerp(a, b, 0.5)
	if !almostEqual(Angle(a, mid), math.Pi/4, 1e-9) {
		t.Fatalf("midpoint not equidistant: %v", Angle(a, mid))
	}
	if !almostEqual(mid.Length(), 1, 1e-9) {
		t.Fatalf("midpoint not unit: %v", mid.Length())
	}
}

func TestSlerpExtrapolates(t *testing.T) {
	a := Vec{X: 1}
	b := RotateAround(a, Vec{Z: 1}, 0.1)
	got := Slerp(a, b, 2)
	want := RotateAround(a, Vec{Z: 1}, 0.2)
	if Angle(got, want) > 1e-9 {
		t.Fatalf("extrapolation off by %v", Angle(got, want))
	}
}

func TestProjectTangentOrthogonal(t *testing.T) {
	p := Vec{Z: 1}
	tangent, ok := ProjectTangent(Vec{X: 0.3, Y: 0.4, Z: 0.9}, p)
	if !ok {
		t.Fatalf("expected tangent")
	}
	if !almostEqual(tangent.Dot(p), 0, 1e-12) {
		t.Fatalf("tangent not orthogonal: dot=%v", tangent.Dot(p))
	}
	if _, ok := ProjectTangent(p, p); ok {
		t.Fatalf("parallel input should fail")
	}
}
