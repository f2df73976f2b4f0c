// Package snapshot buffers authoritative game snapshots and schedules their
// playout: clock-offset estimation, adaptive jitter delay, lag-spike
// hysteresis, and the interpolated render snapshot handed to the renderer.
package snapshot

import (
	"math"

	"github.com/rs/zerolog"

	"orbsnake/client/internal/diag"
	"orbsnake/client/internal/state"
	"orbsnake/client/internal/tuning"
)

// PushResult reports what Push did with a snapshot.
type PushResult struct {
	Admitted  bool
	Duplicate bool
	SeqGap    bool
}

// Status is a point-in-time diagnostic view of the scheduler.
type Status struct {
	BufferDepth    int        `json:"bufferDepth"`
	ClockOffsetMs  float64    `json:"clockOffsetMs"`
	PlayoutDelayMs float64    `json:"playoutDelayMs"`
	DelayBoostMs   float64    `json:"delayBoostMs"`
	IntervalMs     float64    `json:"intervalMs"`
	JitterMs       float64    `json:"jitterMs"`
	TickMs         float64    `json:"tickMs"`
	SpikeActive    bool       `json:"spikeActive"`
	SpikeCause     SpikeCause `json:"-"`
	SpikeCauseName string     `json:"spikeCause"`
	SeqGapActive   bool       `json:"seqGapActive"`
	LatestSeq      uint32     `json:"latestSeq"`
}

// Scheduler owns the snapshot ring buffer and all playout timing state. It is
// not safe for concurrent use; the session serializes access.
type Scheduler struct {
	tun tuning.NetTuning
	rec diag.Recorder
	log zerolog.Logger

	entries []state.TimedSnapshot

	latestSeq uint32
	haveSeq   bool

	tickMs float64

	offsetMs   float64
	haveOffset bool

	intervalMs    float64
	jitterMs      float64
	lastReceiveAt int64
	haveReceive   bool

	seqGapActive bool
	seqGapLastAt int64

	spike spikeMachine

	playoutDelayMs float64
	delayBoostMs   float64
	lastFrameAt    int64
	haveFrame      bool
}

// New returns a scheduler with the nominal tick until Init announces the real
// one.
func New(tun tuning.NetTuning, rec diag.Recorder, log zerolog.Logger) *Scheduler {
	s := &Scheduler{
		tun:    tun,
		rec:    rec,
		log:    log,
		tickMs: tun.NominalTickMs,
	}
	s.spike.tun = &s.tun
	s.entries = make([]state.TimedSnapshot, 0, tun.BufferCapacity)
	s.intervalMs = tun.NominalTickMs
	s.playoutDelayMs = tun.BaseDelayTicks * tun.NominalTickMs
	return s
}

// SetTickMs installs the server-announced tick length.
func (s *Scheduler) SetTickMs(ms float64) {
	if ms > 0 {
		s.tickMs = ms
	}
}

// SpikeActive reports whether a lag spike is currently confirmed, and its
// cause.
func (s *Scheduler) SpikeActive() (bool, SpikeCause) {
	return s.spike.active, s.spike.cause
}

// Impaired reports elevated network stress beyond a bare arrival gap:
// used by the predictor to judge whether an arrival-gap spike is "hard".
func (s *Scheduler) Impaired() bool {
	return s.jitterMs > s.tickMs || s.intervalMs > s.tun.StressIntervalTicks*s.tickMs
}

// IntervalMs returns the smoothed snapshot inter-arrival time.
func (s *Scheduler) IntervalMs() float64 { return s.intervalMs }

// JitterMs returns the smoothed arrival jitter.
func (s *Scheduler) JitterMs() float64 { return s.jitterMs }

// TickMs returns the current tick length.
func (s *Scheduler) TickMs() float64 { return s.tickMs }

// ClockOffsetMs returns the estimated serverNow - clientNow.
func (s *Scheduler) ClockOffsetMs() float64 { return s.offsetMs }

// Latest returns the newest buffered snapshot, or nil.
func (s *Scheduler) Latest() *state.GameStateSnapshot {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1].State
}

// isSeqNewer compares u32 sequence numbers with mod-2^32 wraparound.
func isSeqNewer(a, b uint32) bool {
	return int32(a-b) > 0
}

// Push admits one authoritative snapshot after sequence gating and clock and
// quality bookkeeping.
func (s *Scheduler) Push(snap *state.GameStateSnapshot, receivedAt int64) PushResult {
	if snap == nil {
		return PushResult{}
	}
	if s.haveSeq && !isSeqNewer(snap.Seq, s.latestSeq) {
		s.rec.SnapshotDropped("stale_seq")
		return PushResult{Duplicate: true}
	}

	result := PushResult{Admitted: true}
	if s.haveSeq && snap.Seq-s.latestSeq > 1 {
		s.seqGapActive = true
		s.seqGapLastAt = receivedAt
		s.rec.SeqGapFlagged()
		result.SeqGap = true
	} else if s.seqGapActive && float64(receivedAt-s.seqGapLastAt) >= s.tun.SeqGapStableMs {
		// Gap resolved: a stable window passed with no further gaps.
		s.seqGapActive = false
	}
	s.latestSeq = snap.Seq
	s.haveSeq = true

	if s.haveReceive {
		gapMs := float64(receivedAt - s.lastReceiveAt)
		s.rec.ObserveInterArrival(gapMs)
		s.intervalMs += (gapMs - s.intervalMs) * s.tun.IntervalEWMARate
		dev := math.Abs(gapMs - s.intervalMs)
		s.jitterMs += (dev - s.jitterMs) * s.tun.JitterEWMARate
		if gapMs > s.tun.ArrivalGapTicks*s.tickMs {
			s.spike.noteArrivalGap(receivedAt)
		}
	}
	s.lastReceiveAt = receivedAt
	s.haveReceive = true

	s.updateClockOffset(snap.Now, receivedAt)

	s.insert(state.TimedSnapshot{State: snap, ReceivedAt: receivedAt})
	s.rec.SnapshotAdmitted()
	s.rec.SetBufferDepth(len(s.entries))
	return result
}

// updateClockOffset maintains serverOffset = serverNow - clientNow via an
// EWMA. The smoothing factor and step clamp shrink sharply while a spike is
// active or when the raw sample is an outlier, so one delayed packet cannot
// snap the offset.
func (s *Scheduler) updateClockOffset(serverNow, receivedAt int64) {
	sample := float64(serverNow - receivedAt)
	if !s.haveOffset {
		s.offsetMs = sample
		s.haveOffset = true
		s.rec.SetClockOffset(s.offsetMs)
		return
	}
	delta := sample - s.offsetMs
	outlier := math.Abs(delta) > s.tun.OffsetOutlierTicks*s.tickMs
	rate := s.tun.OffsetEWMARate
	clampMs := s.tun.OffsetClampMs
	if s.spike.active || outlier {
		rate = s.tun.OffsetSpikeEWMARate
		clampMs = s.tun.OffsetSpikeClampMs
	}
	step := delta * rate
	if step > clampMs {
		step = clampMs
	} else if step < -clampMs {
		step = -clampMs
	}
	s.offsetMs += step
	s.rec.SetClockOffset(s.offsetMs)
}

// insert keeps entries sorted by server time and bounded by capacity.
func (s *Scheduler) insert(ts state.TimedSnapshot) {
	i := len(s.entries)
	for i > 0 && s.entries[i-1].State.Now > ts.State.Now {
		i--
	}
	s.entries = append(s.entries, state.TimedSnapshot{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = ts

	if len(s.entries) > s.tun.BufferCapacity {
		n := copy(s.entries, s.entries[len(s.entries)-s.tun.BufferCapacity:])
		s.entries = s.entries[:n]
	}
}

// RenderSnapshot is called once per animation frame. It advances the spike
// machine and the adaptive delay, then interpolates (or extrapolates, up to
// the cap) the buffer at renderTime = now + offset - playoutDelay. Returns
// nil while the buffer is empty.
func (s *Scheduler) RenderSnapshot(now int64) *state.GameStateSnapshot {
	s.step(now)
	if len(s.entries) == 0 {
		return nil
	}

	renderTime := float64(now) + s.offsetMs - s.playoutDelayMs
	latest := s.entries[len(s.entries)-1].State
	extrapCap := s.tun.MaxExtrapolateMs
	if s.spike.active {
		extrapCap = s.tun.SpikeExtrapolateMs
	}
	maxTime := float64(latest.Now) + extrapCap
	if renderTime > maxTime {
		renderTime = maxTime
	}
	return BuildInterpolatedSnapshot(s.entries, int64(renderTime))
}

// step runs the per-frame bookkeeping: stale detection, spike transitions,
// boost decay, and the playout-delay chase.
func (s *Scheduler) step(now int64) {
	dtMs := float64(0)
	if s.haveFrame {
		dtMs = float64(now - s.lastFrameAt)
		if dtMs < 0 {
			dtMs = 0
		}
	}
	s.lastFrameAt = now
	s.haveFrame = true

	if s.seqGapActive && float64(now-s.seqGapLastAt) >= s.tun.SeqGapStableMs {
		s.seqGapActive = false
	}

	cond := spikeConditions{
		stale:  s.haveReceive && float64(now-s.lastReceiveAt) > s.tun.StaleThresholdTick*s.tickMs,
		seqGap: s.seqGapActive,
	}
	tr := s.spike.evaluate(now, cond)
	if tr.entered {
		s.delayBoostMs = s.spike.boostTicks(tr.cause) * s.tickMs
		s.rec.SpikeEntered(tr.cause.String())
		s.log.Debug().Str("cause", tr.cause.String()).Msg("lag spike entered")
	}
	if tr.exited {
		s.rec.SpikeExited(tr.cause.String())
		s.log.Debug().Str("cause", tr.cause.String()).Msg("lag spike exited")
	}
	if !s.spike.active && s.delayBoostMs > 0 {
		s.delayBoostMs -= s.tun.BoostDecayMsPerMs * dtMs
		if s.delayBoostMs < 0 {
			s.delayBoostMs = 0
		}
	}

	target := s.tun.BaseDelayTicks*s.tickMs + s.jitterMs*s.tun.JitterMultiplier + s.delayBoostMs
	minDelay := s.tun.MinDelayTicks * s.tickMs
	maxDelay := s.tun.MaxDelayTicks * s.tickMs
	if target < minDelay {
		target = minDelay
	} else if target > maxDelay {
		target = maxDelay
	}

	rate := s.tun.DelayFallRate
	if target > s.playoutDelayMs {
		rate = s.tun.DelayRiseRate
	}
	if s.spike.active {
		rate = s.tun.DelaySpikeRate
	}
	alpha := 1 - math.Exp(-rate*dtMs/1000)
	s.playoutDelayMs += (target - s.playoutDelayMs) * alpha
	s.rec.SetPlayoutDelay(s.playoutDelayMs)
}

// Status snapshots the scheduler internals for diagnostics.
func (s *Scheduler) Status() Status {
	return Status{
		BufferDepth:    len(s.entries),
		ClockOffsetMs:  s.offsetMs,
		PlayoutDelayMs: s.playoutDelayMs,
		DelayBoostMs:   s.delayBoostMs,
		IntervalMs:     s.intervalMs,
		JitterMs:       s.jitterMs,
		TickMs:         s.tickMs,
		SpikeActive:    s.spike.active,
		SpikeCause:     s.spike.cause,
		SpikeCauseName: s.spike.cause.String(),
		SeqGapActive:   s.seqGapActive,
		LatestSeq:      s.latestSeq,
	}
}
