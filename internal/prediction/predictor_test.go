package prediction

import (
	"testing"

	"github.com/rs/zerolog"

	"orbsnake/client/internal/diag"
	"orbsnake/client/internal/sphere"
	"orbsnake/client/internal/tuning"
)

func newTestPredictor(tun *tuning.NetTuning) *Predictor {
	p := New(tun, diag.Nop{}, zerolog.Nop())
	p.SetDisabled(DisabledNone)
	return p
}

func rotatedSnake(deg float64, n int) []sphere.Vec {
	rad := deg * 3.141592653589793 / 180
	out := make([]sphere.Vec, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, sphere.RotateAround(sphere.Vec{Z: 1}, sphere.Vec{Y: 1}, rad-0.025*float64(i)))
	}
	return out
}

func TestPredictorDisabledReturnsNil(t *testing.T) {
	tun := tuning.Default()
	p := New(&tun, diag.Nop{}, zerolog.Nop())
	if p.Disabled() != DisabledNotReady {
		t.Fatalf("fresh predictor should start not-ready")
	}
	p.OnAuthoritative(rotatedSnake(0, 3), 0, 0, nil, false, NetStress{})
	if got := p.Frame(16, nil, false); got != nil {
		t.Fatalf("disabled predictor returned a pose")
	}
}

func TestPredictorFirstFrameAdoptsReplayTarget(t *testing.T) {
	tun := tuning.Default()
	p := newTestPredictor(&tun)
	snake := rotatedSnake(0, 4)
	p.OnAuthoritative(snake, 1000, 1000, nil, false, NetStress{})
	got := p.Frame(1000, nil, false)
	if len(got) != len(snake) {
		t.Fatalf("pose length %d, want %d", len(got), len(snake))
	}
	if sphere.AngleDeg(got[0], snake[0]) > 1e-9 {
		t.Fatalf("first frame should sit on the authoritative pose")
	}
}

func TestPredictorNoBaselineReturnsNil(t *testing.T) {
	tun := tuning.Default()
	p := newTestPredictor(&tun)
	if got := p.Frame(0, nil, false); got != nil {
		t.Fatalf("expected nil without a baseline")
	}
}

func TestPredictorSoftCorrectionConverges(t *testing.T) {
	tun := tuning.Default()
	tun.BaseSpeedRadPerSec = 0 // pin the target so convergence is observable
	p := newTestPredictor(&tun)

	p.OnAuthoritative(rotatedSnake(0, 3), 0, 0, nil, false, NetStress{})
	p.Frame(0, nil, false)

	// 3 degrees of divergence: soft regime, no snap.
	target := rotatedSnake(3, 3)
	p.OnAuthoritative(target, 16, 16, nil, false, NetStress{})
	if p.Stats().Correction != "soft" {
		t.Fatalf("correction %q, want soft", p.Stats().Correction)
	}
	first := p.Frame(16, nil, false)
	if sphere.AngleDeg(first[0], target[0]) < 0.5 {
		t.Fatalf("soft correction must not snap")
	}

	now := int64(16)
	for i := 0; i < 60; i++ {
		now += 16
		p.Frame(now, nil, false)
	}
	final := p.Frame(now+16, nil, false)
	if lag := sphere.AngleDeg(final[0], target[0]); lag > 0.05 {
		t.Fatalf("display did not converge, residual %v deg", lag)
	}
}

func TestPredictorHardCorrectionSnaps(t *testing.T) {
	tun := tuning.Default()
	tun.BaseSpeedRadPerSec = 0
	p := newTestPredictor(&tun)

	p.OnAuthoritative(rotatedSnake(0, 3), 0, 0, nil, false, NetStress{})
	p.Frame(0, nil, false)

	target := rotatedSnake(20, 3) // far past the hard threshold
	p.OnAuthoritative(target, 16, 16, nil, false, NetStress{})
	if p.Stats().Correction != "hard" {
		t.Fatalf("correction %q, want hard", p.Stats().Correction)
	}
	got := p.Frame(16, nil, false)
	if lag := sphere.AngleDeg(got[0], target[0]); lag > 0.01 {
		t.Fatalf("hard correction should snap, residual %v deg", lag)
	}
}

func TestPredictorStressDowngradesHardToSoft(t *testing.T) {
	tun := tuning.Default()
	tun.BaseSpeedRadPerSec = 0
	p := newTestPredictor(&tun)

	p.OnAuthoritative(rotatedSnake(0, 3), 0, 0, nil, false, NetStress{})
	p.Frame(0, nil, false)

	p.OnAuthoritative(rotatedSnake(20, 3), 16, 16, nil, false, NetStress{SpikeActive: true})
	if p.Stats().Correction != "soft" {
		t.Fatalf("correction %q, want soft under stress", p.Stats().Correction)
	}
}

func TestPredictorRespawnForcesHardEvenUnderStress(t *testing.T) {
	tun := tuning.Default()
	tun.BaseSpeedRadPerSec = 0
	p := newTestPredictor(&tun)

	p.OnAuthoritative(rotatedSnake(0, 3), 0, 0, nil, false, NetStress{})
	p.Frame(0, nil, false)
	p.NoteRespawn()

	target := rotatedSnake(90, 3)
	p.OnAuthoritative(target, 16, 16, nil, false, NetStress{SpikeActive: true})
	if p.Stats().Correction != "hard" {
		t.Fatalf("correction %q, want forced hard", p.Stats().Correction)
	}
	got := p.Frame(16, nil, false)
	if lag := sphere.AngleDeg(got[0], target[0]); lag > 0.01 {
		t.Fatalf("respawn should snap to the new pose, residual %v deg", lag)
	}
}

func TestPredictorSteeringSuppressesBorderlineSoft(t *testing.T) {
	tun := tuning.Default()
	tun.BaseSpeedRadPerSec = 0
	p := newTestPredictor(&tun)

	p.OnAuthoritative(rotatedSnake(0, 3), 0, 0, nil, false, NetStress{})
	p.Frame(0, nil, true)

	// 0.6 degrees: above the soft threshold, below the steering-suppress bound.
	p.OnAuthoritative(rotatedSnake(0.6, 3), 16, 16, nil, true, NetStress{})
	if p.Stats().Correction != "none" {
		t.Fatalf("correction %q, want suppressed to none", p.Stats().Correction)
	}

	// The same error without steering is a soft correction.
	p2 := newTestPredictor(&tun)
	p2.OnAuthoritative(rotatedSnake(0, 3), 0, 0, nil, false, NetStress{})
	p2.Frame(0, nil, false)
	p2.OnAuthoritative(rotatedSnake(0.6, 3), 16, 16, nil, false, NetStress{})
	if p2.Stats().Correction != "soft" {
		t.Fatalf("correction %q, want soft", p2.Stats().Correction)
	}
}

func TestPredictorCorrectionWindowHysteresis(t *testing.T) {
	tun := tuning.Default()
	tun.BaseSpeedRadPerSec = 0
	p := newTestPredictor(&tun)

	p.OnAuthoritative(rotatedSnake(0, 3), 0, 0, nil, false, NetStress{})
	p.Frame(0, nil, false)
	p.OnAuthoritative(rotatedSnake(3, 3), 16, 16, nil, false, NetStress{})
	if p.Stats().Correction != "soft" {
		t.Fatalf("setup: want soft")
	}
	p.Frame(16, nil, false)

	// Another sample inside the open window takes no new decision.
	p.OnAuthoritative(rotatedSnake(30, 3), 32, 32, nil, false, NetStress{})
	if p.Stats().Correction != "soft" {
		t.Fatalf("window still open, correction %q", p.Stats().Correction)
	}

	// After the window expires a fresh large error escalates to hard.
	after := int64(16 + int64(tun.SoftCorrectMs) + 50)
	p.Frame(after, nil, false)
	p.OnAuthoritative(rotatedSnake(60, 3), after, after, nil, false, NetStress{})
	if p.Stats().Correction != "hard" {
		t.Fatalf("expired window, correction %q", p.Stats().Correction)
	}
}

func TestPredictorDisableClearsBlend(t *testing.T) {
	tun := tuning.Default()
	p := newTestPredictor(&tun)
	p.OnAuthoritative(rotatedSnake(0, 3), 0, 0, nil, false, NetStress{})
	p.Frame(0, nil, false)
	p.SetDisabled(DisabledSpike)
	if got := p.Frame(16, nil, false); got != nil {
		t.Fatalf("disabled predictor returned a pose")
	}
	p.SetDisabled(DisabledNone)
	snake := rotatedSnake(45, 3)
	p.OnAuthoritative(snake, 32, 32, nil, false, NetStress{})
	got := p.Frame(32, nil, false)
	if got == nil || sphere.AngleDeg(got[0], snake[0]) > 0.01 {
		t.Fatalf("re-enable should restart from the authoritative pose")
	}
}
