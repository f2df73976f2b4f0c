package prediction

import (
	"math"

	"github.com/rs/zerolog"

	"orbsnake/client/internal/diag"
	"orbsnake/client/internal/sphere"
	"orbsnake/client/internal/tuning"
)

// DisabledReason explains why prediction is suppressed and the raw
// authoritative snake is shown instead.
type DisabledReason int

const (
	DisabledNone DisabledReason = iota
	DisabledNotReady
	DisabledDead
	DisabledSpike
)

func (r DisabledReason) String() string {
	switch r {
	case DisabledNotReady:
		return "not-ready"
	case DisabledDead:
		return "dead"
	case DisabledSpike:
		return "spike"
	}
	return "none"
}

// Stats is the presentation-only telemetry of the predictor. Nothing here
// feeds back into correction decisions.
type Stats struct {
	ErrorLastDeg      float64 `json:"errorLastDeg"`
	ErrorP95Deg       float64 `json:"errorP95Deg"`
	ErrorMaxDeg       float64 `json:"errorMaxDeg"`
	HeadLagP95Deg     float64 `json:"headLagP95Deg"`
	BodyLagP95Deg     float64 `json:"bodyLagP95Deg"`
	MicroReversalRate float64 `json:"microReversalRate"`
	Disabled          string  `json:"disabled"`
	Correction        string  `json:"correction"`
}

// Predictor replays unacknowledged inputs over the latest authoritative
// local snake and blends the display pose toward the result. Single-owner
// state, driven once per render frame by the session.
type Predictor struct {
	tun *tuning.NetTuning
	rec diag.Recorder
	log zerolog.Logger

	authSnake   []sphere.Vec
	authHeading sphere.Vec
	authAt      int64
	haveAuth    bool

	display []sphere.Vec

	prevPredictedHead sphere.Vec
	havePrev          bool

	correction      Correction
	correctionUntil int64
	forceHard       bool

	driftFrames int

	lastFrameAt int64
	haveFrame   bool

	disabled DisabledReason

	errors       *errorWindow
	headLag      *errorWindow
	bodyLag      *errorWindow
	prevMove     sphere.Vec
	havePrevMove bool
	frames       int
	reversals    int
}

// New returns a predictor using the given tuning.
func New(tun *tuning.NetTuning, rec diag.Recorder, log zerolog.Logger) *Predictor {
	return &Predictor{
		tun:      tun,
		rec:      rec,
		log:      log,
		disabled: DisabledNotReady,
		errors:   newErrorWindow(tun.ErrorWindowSize),
		headLag:  newErrorWindow(tun.ErrorWindowSize),
		bodyLag:  newErrorWindow(tun.ErrorWindowSize),
	}
}

// Reset drops all per-connection state.
func (p *Predictor) Reset() {
	p.authSnake = nil
	p.haveAuth = false
	p.display = nil
	p.havePrev = false
	p.correction = Correction{}
	p.correctionUntil = 0
	p.forceHard = false
	p.driftFrames = 0
	p.haveFrame = false
	p.disabled = DisabledNotReady
	p.errors = newErrorWindow(p.tun.ErrorWindowSize)
	p.headLag = newErrorWindow(p.tun.ErrorWindowSize)
	p.bodyLag = newErrorWindow(p.tun.ErrorWindowSize)
	p.havePrevMove = false
	p.frames = 0
	p.reversals = 0
}

// NoteRespawn forces the next reconciliation to hard-snap regardless of
// error magnitude or the active correction window.
func (p *Predictor) NoteRespawn() {
	p.forceHard = true
	p.display = nil
	p.havePrev = false
}

// Disabled returns the current suppression reason.
func (p *Predictor) Disabled() DisabledReason { return p.disabled }

// SetDisabled flips the suppression state. Turning prediction off clears the
// blend so that re-enabling starts from the authoritative pose instead of a
// stale display.
func (p *Predictor) SetDisabled(reason DisabledReason) {
	if reason == p.disabled {
		return
	}
	p.disabled = reason
	if reason != DisabledNone {
		p.display = nil
		p.havePrev = false
		p.driftFrames = 0
	}
}

// OnAuthoritative folds a fresh authoritative local snake into the predictor:
// it measures divergence between what we previously predicted for "now" and
// a fresh replay from the new baseline, then decides the correction regime.
func (p *Predictor) OnAuthoritative(snake []sphere.Vec, receivedAt, nowMs int64, pending []Command, steering bool, stress NetStress) {
	if len(snake) == 0 {
		return
	}
	p.authSnake = append(p.authSnake[:0], snake...)
	p.authHeading = DeriveHeading(snake)
	p.authAt = receivedAt
	p.haveAuth = true

	fresh, _ := Replay(p.authSnake, p.authHeading, receivedAt, nowMs, pending, p.tun)
	if len(fresh) == 0 {
		return
	}

	errDeg := 0.0
	if p.havePrev {
		errDeg = sphere.AngleDeg(p.prevPredictedHead, fresh[0])
		p.errors.add(errDeg)
		p.rec.ObservePredictionError(errDeg)
	}

	forced := p.forceHard
	p.forceHard = false

	// Hysteresis: while a previous correction window is still open, no new
	// decision is taken unless forced.
	if !forced && p.correction.Kind != CorrectionNone && nowMs < p.correctionUntil {
		return
	}

	decision := Decide(errDeg, forced, p.tun)

	// A borderline soft correction during an intentional turn reads as
	// jitter; skip it.
	if decision.Kind == CorrectionSoft && steering && errDeg < p.tun.SteeringSuppressDeg {
		decision = Correction{Kind: CorrectionNone}
	}
	// Errors measured under network stress are more likely transport noise
	// than real desync; never teleport for those.
	if decision.Kind == CorrectionHard && !forced && stress.Stressed() {
		decision = Correction{Kind: CorrectionSoft, DurationMs: p.tun.SoftCorrectMs}
	}

	p.correction = decision
	switch decision.Kind {
	case CorrectionHard:
		p.display = append(p.display[:0], fresh...)
		p.correctionUntil = nowMs + int64(p.tun.SoftCorrectMs)
		p.rec.CorrectionApplied("hard")
		p.log.Debug().Float64("errorDeg", errDeg).Msg("hard prediction correction")
	case CorrectionSoft:
		p.correctionUntil = nowMs + int64(decision.DurationMs)
		p.rec.CorrectionApplied("soft")
	default:
		p.correctionUntil = 0
	}
}

// Frame advances the display pose one render frame and returns it, or nil
// when prediction is disabled or has no baseline (caller falls back to the
// raw authoritative snake).
func (p *Predictor) Frame(nowMs int64, pending []Command, steering bool) []sphere.Vec {
	if p.disabled != DisabledNone || !p.haveAuth {
		return nil
	}

	target, _ := Replay(p.authSnake, p.authHeading, p.authAt, nowMs, pending, p.tun)
	if len(target) == 0 {
		return nil
	}
	p.prevPredictedHead = target[0]
	p.havePrev = true

	dtMs := float64(0)
	if p.haveFrame {
		dtMs = float64(nowMs - p.lastFrameAt)
		if dtMs < 0 {
			dtMs = 0
		}
	}
	p.lastFrameAt = nowMs
	p.haveFrame = true

	if len(p.display) == 0 {
		p.display = append([]sphere.Vec(nil), target...)
		return p.displayCopy()
	}

	alpha := p.blendAlpha(nowMs, dtMs, steering)
	p.blendToward(target, alpha)
	p.observeLag(target)
	return p.displayCopy()
}

// blendAlpha picks the per-frame blend fraction from the correction regime
// and steering state, then applies the drift floor.
func (p *Predictor) blendAlpha(nowMs int64, dtMs float64, steering bool) float64 {
	rate := p.tun.BlendRateNormal
	alphaMin := p.tun.AlphaMinNormal
	alphaMax := p.tun.AlphaMaxNormal
	if p.correction.Kind != CorrectionNone && nowMs >= p.correctionUntil {
		p.correction = Correction{}
	}
	switch p.correction.Kind {
	case CorrectionSoft:
		rate = p.tun.BlendRateSoft
		alphaMax = p.tun.AlphaMaxSoft
	case CorrectionHard:
		rate = p.tun.BlendRateHard
		alphaMax = p.tun.AlphaMaxHard
	default:
		if steering {
			rate = p.tun.BlendRateSteering
		}
	}

	alpha := 1 - math.Exp(-rate*dtMs/1000)
	if alpha < alphaMin {
		alpha = alphaMin
	}
	if alpha > alphaMax {
		alpha = alphaMax
	}

	// Drift floor: if the display has lagged the target for several frames
	// in a row, force a minimum catch-up rate so it cannot get stuck.
	if p.driftFrames >= p.tun.DriftFrames && alpha < p.tun.DriftAlphaFloor {
		alpha = p.tun.DriftAlphaFloor
	}
	return alpha
}

// blendToward rotates every display point a fraction alpha of the way to its
// target, suppressing sub-deadband tail wobble.
func (p *Predictor) blendToward(target []sphere.Vec, alpha float64) {
	// Track head movement direction for the micro-reversal counter.
	oldHead := sphere.Vec{}
	if len(p.display) > 0 {
		oldHead = p.display[0]
	}

	if len(p.display) > len(target) {
		p.display = p.display[:len(target)]
	}
	for len(p.display) < len(target) {
		p.display = append(p.display, target[len(p.display)])
	}

	lagDeg := 0.0
	for i := range target {
		gap := sphere.AngleDeg(p.display[i], target[i])
		if i == 0 {
			lagDeg = gap
		}
		if i > 0 && gap < p.tun.DeadbandDeg {
			continue
		}
		p.display[i] = sphere.Slerp(p.display[i], target[i], alpha)
	}

	if lagDeg > p.tun.DriftLagDeg {
		p.driftFrames++
	} else {
		p.driftFrames = 0
	}

	p.frames++
	if len(p.display) > 0 {
		move := p.display[0].Sub(oldHead)
		if p.havePrevMove && move.Length() > 1e-9 && p.prevMove.Length() > 1e-9 &&
			move.Dot(p.prevMove) < 0 {
			p.reversals++
		}
		p.prevMove = move
		p.havePrevMove = true
	}
}

func (p *Predictor) observeLag(target []sphere.Vec) {
	if len(p.display) == 0 || len(target) == 0 {
		return
	}
	p.headLag.add(sphere.AngleDeg(p.display[0], target[0]))
	n := len(p.display)
	if len(target) < n {
		n = len(target)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += sphere.AngleDeg(p.display[i], target[i])
	}
	p.bodyLag.add(sum / float64(n))
}

func (p *Predictor) displayCopy() []sphere.Vec {
	return append([]sphere.Vec(nil), p.display...)
}

// Stats reports the diagnostic view.
func (p *Predictor) Stats() Stats {
	rate := 0.0
	if p.frames > 0 {
		rate = float64(p.reversals) / float64(p.frames)
	}
	return Stats{
		ErrorLastDeg:      p.errors.Last(),
		ErrorP95Deg:       p.errors.P95(),
		ErrorMaxDeg:       p.errors.Max(),
		HeadLagP95Deg:     p.headLag.P95(),
		BodyLagP95Deg:     p.bodyLag.P95(),
		MicroReversalRate: rate,
		Disabled:          p.disabled.String(),
		Correction:        p.correction.Kind.String(),
	}
}
