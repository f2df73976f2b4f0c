package prediction

import (
	"testing"

	"orbsnake/client/internal/tuning"
)

func TestDecideThresholds(t *testing.T) {
	tun := tuning.Default()
	cases := []struct {
		errDeg float64
		forced bool
		want   CorrectionKind
	}{
		{0, false, CorrectionNone},
		{tun.SoftErrorDeg - 0.01, false, CorrectionNone},
		{tun.SoftErrorDeg, false, CorrectionSoft},
		{tun.HardErrorDeg - 0.01, false, CorrectionSoft},
		{tun.HardErrorDeg, false, CorrectionHard},
		{0, true, CorrectionHard}, // forced overrides magnitude
	}
	for _, c := range cases {
		got := Decide(c.errDeg, c.forced, &tun)
		if got.Kind != c.want {
			t.Fatalf("Decide(%v, %v) = %v, want %v", c.errDeg, c.forced, got.Kind, c.want)
		}
		if got.Kind == CorrectionSoft && got.DurationMs != tun.SoftCorrectMs {
			t.Fatalf("soft duration %v", got.DurationMs)
		}
	}
}

func TestNetStressStressed(t *testing.T) {
	if (NetStress{}).Stressed() {
		t.Fatalf("quiet network reported stressed")
	}
	for _, n := range []NetStress{{SpikeActive: true}, {HighJitter: true}, {SlowInterval: true}} {
		if !n.Stressed() {
			t.Fatalf("%+v should be stressed", n)
		}
	}
}

func TestErrorWindowStats(t *testing.T) {
	w := newErrorWindow(4)
	for _, v := range []float64{1, 3, 2} {
		w.add(v)
	}
	if w.Last() != 2 || w.Max() != 3 {
		t.Fatalf("last=%v max=%v", w.Last(), w.Max())
	}
	// Overflow evicts in ring order.
	w.add(10)
	w.add(0.5)
	if w.Max() != 10 {
		t.Fatalf("max after wrap %v", w.Max())
	}
	if got := w.P95(); got != 3 {
		t.Fatalf("p95 over [0.5 2 3 10] should drop the top sample, got %v", got)
	}
}

func TestErrorWindowEmpty(t *testing.T) {
	w := newErrorWindow(8)
	if w.Max() != 0 || w.P95() != 0 || w.Last() != 0 {
		t.Fatalf("empty window should report zeros")
	}
}
