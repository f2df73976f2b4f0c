package snapshot

import (
	"testing"

	"orbsnake/client/internal/tuning"
)

func newTestSpikeMachine() (*spikeMachine, tuning.NetTuning) {
	tun := tuning.Default()
	m := &spikeMachine{tun: &tun}
	return m, tun
}

func TestSpikeEnterRequiresConfirmWindow(t *testing.T) {
	m, tun := newTestSpikeMachine()
	cond := spikeConditions{stale: true}
	if tr := m.evaluate(0, cond); tr.entered {
		t.Fatalf("entered on first sample")
	}
	if tr := m.evaluate(int64(tun.SpikeEnterConfirmMs)-1, cond); tr.entered {
		t.Fatalf("entered inside confirm window")
	}
	tr := m.evaluate(int64(tun.SpikeEnterConfirmMs), cond)
	if !tr.entered || tr.cause != CauseStale {
		t.Fatalf("expected stale entry, got %+v", tr)
	}
}

func TestSpikeNoisySampleDoesNotFlap(t *testing.T) {
	m, _ := newTestSpikeMachine()
	m.evaluate(0, spikeConditions{stale: true})
	m.evaluate(60, spikeConditions{}) // condition blips off, candidate resets
	m.evaluate(70, spikeConditions{stale: true})
	if tr := m.evaluate(130, spikeConditions{stale: true}); tr.entered {
		t.Fatalf("confirm window should restart after the blip")
	}
	if tr := m.evaluate(190, spikeConditions{stale: true}); !tr.entered {
		t.Fatalf("expected entry once the window holds")
	}
}

func TestSpikeArrivalGapExitHoldsLonger(t *testing.T) {
	m, tun := newTestSpikeMachine()
	m.noteArrivalGap(0)
	m.evaluate(0, spikeConditions{})
	if tr := m.evaluate(int64(tun.SpikeEnterConfirmMs), spikeConditions{}); !tr.entered || tr.cause != CauseArrivalGap {
		t.Fatalf("expected arrival-gap entry, got %+v", tr)
	}

	// Condition clears once the impairment window (600ms) lapses.
	clearAt := int64(tun.ArrivalImpairWindowMs) + 50
	m.evaluate(clearAt, spikeConditions{})
	exitAfter := clearAt + int64(tun.SpikeExitConfirmMs+tun.ArrivalGapExitExtraMs)
	if tr := m.evaluate(exitAfter-1, spikeConditions{}); tr.exited {
		t.Fatalf("arrival-gap exit did not include the extra hold")
	}
	tr := m.evaluate(exitAfter, spikeConditions{})
	if !tr.exited || tr.cause != CauseArrivalGap {
		t.Fatalf("expected arrival-gap exit, got %+v", tr)
	}
}

func TestSpikeCooldownBlocksSameCause(t *testing.T) {
	m, tun := newTestSpikeMachine()
	cond := spikeConditions{seqGap: true}
	m.evaluate(0, cond)
	m.evaluate(int64(tun.SpikeEnterConfirmMs), cond)
	m.evaluate(200, spikeConditions{})
	exitAt := 200 + int64(tun.SpikeExitConfirmMs)
	if tr := m.evaluate(exitAt, spikeConditions{}); !tr.exited {
		t.Fatalf("expected exit")
	}

	// Same cause inside the cooldown never even becomes a candidate.
	m.evaluate(exitAt+10, cond)
	if tr := m.evaluate(exitAt+10+int64(tun.SpikeEnterConfirmMs), cond); tr.entered {
		t.Fatalf("seq-gap re-entered during cooldown")
	}

	// A different cause is unaffected by it.
	stale := spikeConditions{stale: true}
	start := exitAt + 200
	m.evaluate(start, stale)
	if tr := m.evaluate(start+int64(tun.SpikeEnterConfirmMs), stale); !tr.entered || tr.cause != CauseStale {
		t.Fatalf("stale cause should bypass the seq-gap cooldown, got %+v", tr)
	}
}

func TestSpikeBoostTicksByCause(t *testing.T) {
	m, tun := newTestSpikeMachine()
	cases := []struct {
		cause SpikeCause
		want  float64
	}{
		{CauseStale, tun.SpikeBoostTicksStale},
		{CauseSeqGap, tun.SpikeBoostTicksSeqGap},
		{CauseArrivalGap, tun.SpikeBoostTicksArrival},
		{CauseNone, 0},
	}
	for _, c := range cases {
		if got := m.boostTicks(c.cause); got != c.want {
			t.Fatalf("boost for %v: %v, want %v", c.cause, got, c.want)
		}
	}
}
