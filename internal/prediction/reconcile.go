package prediction

import (
	"sort"

	"orbsnake/client/internal/tuning"
)

// CorrectionKind classifies how a measured divergence gets folded back into
// the display pose.
type CorrectionKind int

const (
	CorrectionNone CorrectionKind = iota
	CorrectionSoft
	CorrectionHard
)

func (k CorrectionKind) String() string {
	switch k {
	case CorrectionSoft:
		return "soft"
	case CorrectionHard:
		return "hard"
	}
	return "none"
}

// Correction is the outcome of one reconciliation decision.
type Correction struct {
	Kind       CorrectionKind
	DurationMs float64
}

// NetStress summarizes the network conditions relevant to reconciliation.
type NetStress struct {
	SpikeActive  bool
	HighJitter   bool
	SlowInterval bool
}

// Stressed reports whether errors right now are more likely noise than real
// desync.
func (n NetStress) Stressed() bool {
	return n.SpikeActive || n.HighJitter || n.SlowInterval
}

// Decide maps an error magnitude to a correction. Pure function; the
// hysteresis and the steering/stress overrides live in the caller.
func Decide(errDeg float64, forced bool, tun *tuning.NetTuning) Correction {
	if forced || errDeg >= tun.HardErrorDeg {
		return Correction{Kind: CorrectionHard}
	}
	if errDeg >= tun.SoftErrorDeg {
		return Correction{Kind: CorrectionSoft, DurationMs: tun.SoftCorrectMs}
	}
	return Correction{Kind: CorrectionNone}
}

// errorWindow is a fixed-size sliding window of divergence samples.
type errorWindow struct {
	samples []float64
	next    int
	filled  bool
	last    float64
}

func newErrorWindow(size int) *errorWindow {
	if size <= 0 {
		size = 240
	}
	return &errorWindow{samples: make([]float64, size)}
}

func (w *errorWindow) add(v float64) {
	w.last = v
	w.samples[w.next] = v
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.filled = true
	}
}

func (w *errorWindow) size() int {
	if w.filled {
		return len(w.samples)
	}
	return w.next
}

func (w *errorWindow) Last() float64 { return w.last }

func (w *errorWindow) Max() float64 {
	max := 0.0
	for i := 0; i < w.size(); i++ {
		if w.samples[i] > max {
			max = w.samples[i]
		}
	}
	return max
}

// P95 returns the 95th percentile of the window.
func (w *errorWindow) P95() float64 {
	n := w.size()
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), w.samples[:n]...)
	sort.Float64s(sorted)
	idx := int(float64(n)*0.95) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
