package snapshot

import "orbsnake/client/internal/tuning"

// SpikeCause labels why the lag-spike machine is (or wants to be) active.
type SpikeCause int

const (
	CauseNone SpikeCause = iota
	CauseStale
	CauseSeqGap
	CauseArrivalGap
)

func (c SpikeCause) String() string {
	switch c {
	case CauseStale:
		return "stale"
	case CauseSeqGap:
		return "seq-gap"
	case CauseArrivalGap:
		return "arrival-gap"
	}
	return "none"
}

// spikeMachine is the hysteresis state machine around network impairment.
// Entering requires the should-spike condition to hold continuously for the
// enter-confirm window; leaving requires the inverse for the exit-confirm
// window (longer for arrival-gap causes), and a cooled-down cause cannot
// re-trigger immediately after exiting. Single noisy samples therefore never
// flap the state.
type spikeMachine struct {
	tun *tuning.NetTuning

	active bool
	cause  SpikeCause

	candidateCause SpikeCause
	candidateSince int64
	clearSince     int64
	enteredAt      int64

	impairedUntil int64
	cooldownUntil [4]int64 // indexed by SpikeCause
}

type spikeConditions struct {
	stale  bool
	seqGap bool
}

// noteArrivalGap opens (or extends) the arrival-gap impairment window.
func (m *spikeMachine) noteArrivalGap(now int64) {
	until := now + int64(m.tun.ArrivalImpairWindowMs)
	if until > m.impairedUntil {
		m.impairedUntil = until
	}
}

// wantedCause maps the raw conditions to the highest-priority cause not
// currently cooling down.
func (m *spikeMachine) wantedCause(now int64, cond spikeConditions) SpikeCause {
	candidates := []SpikeCause{}
	if cond.stale {
		candidates = append(candidates, CauseStale)
	}
	if cond.seqGap {
		candidates = append(candidates, CauseSeqGap)
	}
	if now < m.impairedUntil {
		candidates = append(candidates, CauseArrivalGap)
	}
	for _, c := range candidates {
		if m.active && c == m.cause {
			return c
		}
		if now >= m.cooldownUntil[c] {
			return c
		}
	}
	return CauseNone
}

// spikeTransition reports what evaluate did this frame. cause is the active
// cause on entry and the just-cleared cause on exit.
type spikeTransition struct {
	entered bool
	exited  bool
	cause   SpikeCause
}

// evaluate advances the machine and reports enter/exit transitions.
func (m *spikeMachine) evaluate(now int64, cond spikeConditions) spikeTransition {
	wanted := m.wantedCause(now, cond)

	if !m.active {
		if wanted == CauseNone {
			m.candidateCause = CauseNone
			return spikeTransition{}
		}
		if wanted != m.candidateCause {
			m.candidateCause = wanted
			m.candidateSince = now
			return spikeTransition{}
		}
		if float64(now-m.candidateSince) >= m.tun.SpikeEnterConfirmMs {
			m.active = true
			m.cause = wanted
			m.enteredAt = now
			m.clearSince = 0
			m.candidateCause = CauseNone
			return spikeTransition{entered: true, cause: wanted}
		}
		return spikeTransition{}
	}

	if wanted != CauseNone {
		m.clearSince = 0
		// A higher-priority cause can replace the current one in place.
		m.cause = wanted
		return spikeTransition{}
	}

	if m.clearSince == 0 {
		m.clearSince = now
		return spikeTransition{}
	}
	exitConfirm := m.tun.SpikeExitConfirmMs
	if m.cause == CauseArrivalGap {
		exitConfirm += m.tun.ArrivalGapExitExtraMs
	}
	if float64(now-m.clearSince) >= exitConfirm {
		exited := m.cause
		m.cooldownUntil[exited] = now + int64(m.tun.SpikeCooldownMs)
		m.active = false
		m.cause = CauseNone
		m.clearSince = 0
		return spikeTransition{exited: true, cause: exited}
	}
	return spikeTransition{}
}

// boostTicks is the playout-delay boost (in ticks) raised on entry, scaled
// by cause severity.
func (m *spikeMachine) boostTicks(cause SpikeCause) float64 {
	switch cause {
	case CauseStale:
		return m.tun.SpikeBoostTicksStale
	case CauseSeqGap:
		return m.tun.SpikeBoostTicksSeqGap
	case CauseArrivalGap:
		return m.tun.SpikeBoostTicksArrival
	}
	return 0
}
