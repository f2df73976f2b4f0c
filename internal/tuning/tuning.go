package tuning

import (
	"os"
	"strconv"
)

// Env override keys. Values are parsed as float64 (milliseconds, ticks, or
// unitless rates as documented per field); malformed values fall back to the
// default.
const (
	envBaseDelayTicks  = "ORBSNAKE_BASE_DELAY_TICKS"
	envMaxDelayTicks   = "ORBSNAKE_MAX_DELAY_TICKS"
	envSpikeEnterMs    = "ORBSNAKE_SPIKE_ENTER_CONFIRM_MS"
	envSpikeExitMs     = "ORBSNAKE_SPIKE_EXIT_CONFIRM_MS"
	envMaxExtrapMs     = "ORBSNAKE_MAX_EXTRAPOLATION_MS"
	envInputHz         = "ORBSNAKE_INPUT_HZ"
	envCommandCapacity = "ORBSNAKE_COMMAND_CAPACITY"
	envHardErrorDeg    = "ORBSNAKE_HARD_ERROR_DEG"
)

// NetTuning is the process-wide set of smoothing and threshold constants for
// the netcode. It is read-only after construction; components receive it by
// value or pointer and never write back.
type NetTuning struct {
	// Snapshot buffer.
	BufferCapacity     int
	SeqGapStableMs     float64 // gap flag auto-clears after this long with no new gaps
	IntervalEWMARate   float64 // inter-arrival smoothing
	JitterEWMARate     float64 // |interval - mean| smoothing
	NominalTickMs      float64 // fallback before Init announces the real tick
	StaleThresholdTick float64 // receive gap (in ticks) considered stale

	// Clock offset estimation.
	OffsetEWMARate      float64
	OffsetSpikeEWMARate float64 // used while a spike is active or the sample is an outlier
	OffsetClampMs       float64 // max step per sample
	OffsetSpikeClampMs  float64
	OffsetOutlierTicks  float64 // raw delta beyond this many ticks is an outlier

	// Lag-spike state machine.
	SpikeEnterConfirmMs    float64
	SpikeExitConfirmMs     float64
	ArrivalGapExitExtraMs  float64 // arrival-gap causes hold the exit window open longer
	SpikeCooldownMs        float64 // same cause cannot re-trigger this soon after exiting
	ArrivalGapTicks        float64 // inter-arrival gap (ticks) that opens an impairment window
	ArrivalImpairWindowMs  float64
	SpikeBoostTicksStale   float64 // delay boost (ticks) on entering, by cause
	SpikeBoostTicksSeqGap  float64
	SpikeBoostTicksArrival float64
	BoostDecayMsPerMs      float64 // linear decay of the boost once the spike ends

	// Adaptive playout delay.
	BaseDelayTicks     float64
	JitterMultiplier   float64
	MinDelayTicks      float64
	MaxDelayTicks      float64
	DelayRiseRate      float64 // exponential chase per second, target above current
	DelayFallRate      float64 // target below current
	DelaySpikeRate     float64 // either direction while impaired
	MaxExtrapolateMs   float64
	SpikeExtrapolateMs float64 // tightened cap while a spike is active

	// Input send loop.
	InputHz         float64
	ViewEpsilonDeg  float64 // View resends only past this camera movement
	CommandCapacity int     // command buffer overflow bound

	// Prediction movement model. Must track the server simulation.
	BaseSpeedRadPerSec   float64
	BoostSpeedMultiplier float64
	TurnRateRadPerSec    float64
	SegmentSpacingRad    float64
	ReplayStepMs         float64

	// Reconciliation policy.
	ErrorWindowSize     int
	SoftErrorDeg        float64 // below: no correction
	HardErrorDeg        float64 // above: snap
	SoftCorrectMs       float64
	SteeringSuppressDeg float64 // soft suppressed to none while steering under this error
	StressIntervalTicks float64 // receive interval past this counts as network stress

	// Display blend.
	BlendRateNormal   float64
	BlendRateSoft     float64
	BlendRateHard     float64
	BlendRateSteering float64
	AlphaMinNormal    float64
	AlphaMaxNormal    float64
	AlphaMaxSoft      float64
	AlphaMaxHard      float64
	DriftLagDeg       float64 // head/body lag that arms the drift counter
	DriftFrames       int     // consecutive frames before the alpha floor engages
	DriftAlphaFloor   float64
	DeadbandDeg       float64 // sub-threshold tail wobble is suppressed
}

// Default returns the shipped tuning.
func Default() NetTuning {
	return NetTuning{
		BufferCapacity:     24,
		SeqGapStableMs:     1500,
		IntervalEWMARate:   0.12,
		JitterEWMARate:     0.10,
		NominalTickMs:      50,
		StaleThresholdTick: 4,

		OffsetEWMARate:      0.10,
		OffsetSpikeEWMARate: 0.02,
		OffsetClampMs:       40,
		OffsetSpikeClampMs:  8,
		OffsetOutlierTicks:  6,

		SpikeEnterConfirmMs:    120,
		SpikeExitConfirmMs:     450,
		ArrivalGapExitExtraMs:  300,
		SpikeCooldownMs:        1000,
		ArrivalGapTicks:        2.5,
		ArrivalImpairWindowMs:  600,
		SpikeBoostTicksStale:   2.0,
		SpikeBoostTicksSeqGap:  1.5,
		SpikeBoostTicksArrival: 1.0,
		BoostDecayMsPerMs:      0.15,

		BaseDelayTicks:     1.3,
		JitterMultiplier:   2.0,
		MinDelayTicks:      1.0,
		MaxDelayTicks:      6.0,
		DelayRiseRate:      3.0,
		DelayFallRate:      0.6,
		DelaySpikeRate:     6.0,
		MaxExtrapolateMs:   120,
		SpikeExtrapolateMs: 40,

		InputHz:         20,
		ViewEpsilonDeg:  0.75,
		CommandCapacity: 96,

		BaseSpeedRadPerSec:   0.55,
		BoostSpeedMultiplier: 1.8,
		TurnRateRadPerSec:    2.6,
		SegmentSpacingRad:    0.025,
		ReplayStepMs:         16,

		ErrorWindowSize:     240,
		SoftErrorDeg:        0.4,
		HardErrorDeg:        5.0,
		SoftCorrectMs:       350,
		SteeringSuppressDeg: 0.8,
		StressIntervalTicks: 2.0,

		BlendRateNormal:   14,
		BlendRateSoft:     22,
		BlendRateHard:     40,
		BlendRateSteering: 20,
		AlphaMinNormal:    0.05,
		AlphaMaxNormal:    0.45,
		AlphaMaxSoft:      0.65,
		AlphaMaxHard:      1.0,
		DriftLagDeg:       1.2,
		DriftFrames:       6,
		DriftAlphaFloor:   0.25,
		DeadbandDeg:       0.02,
	}
}

// Load returns the default tuning with any environment overrides applied.
func Load() NetTuning {
	t := Default()
	overrideFloat(&t.BaseDelayTicks, envBaseDelayTicks)
	overrideFloat(&t.MaxDelayTicks, envMaxDelayTicks)
	overrideFloat(&t.SpikeEnterConfirmMs, envSpikeEnterMs)
	overrideFloat(&t.SpikeExitConfirmMs, envSpikeExitMs)
	overrideFloat(&t.MaxExtrapolateMs, envMaxExtrapMs)
	overrideFloat(&t.InputHz, envInputHz)
	overrideFloat(&t.HardErrorDeg, envHardErrorDeg)
	overrideInt(&t.CommandCapacity, envCommandCapacity)
	return t
}

func overrideFloat(dst *float64, key string) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		*dst = v
	}
}
