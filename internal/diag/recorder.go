// Package diag is the diagnostics surface of the netcode core. The core
// reports through the Recorder interface; hosts wire in a prometheus-backed
// recorder, the event ring, or a no-op. Nothing in here feeds back into any
// networking decision.
package diag

// Recorder receives netcode telemetry. Implementations must be cheap; the
// snapshot and prediction layers call these on hot paths.
type Recorder interface {
	SnapshotAdmitted()
	SnapshotDropped(reason string)
	SeqGapFlagged()
	SpikeEntered(cause string)
	SpikeExited(cause string)
	DeltaResync()
	Reconnected()
	CorrectionApplied(kind string)
	ObservePredictionError(deg float64)
	ObserveInterArrival(ms float64)
	SetPlayoutDelay(ms float64)
	SetClockOffset(ms float64)
	SetBufferDepth(n int)
	SetCommandDepth(n int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) SnapshotAdmitted()              {}
func (Nop) SnapshotDropped(string)         {}
func (Nop) SeqGapFlagged()                 {}
func (Nop) SpikeEntered(string)            {}
func (Nop) SpikeExited(string)             {}
func (Nop) DeltaResync()                   {}
func (Nop) Reconnected()                   {}
func (Nop) CorrectionApplied(string)       {}
func (Nop) ObservePredictionError(float64) {}
func (Nop) ObserveInterArrival(float64)    {}
func (Nop) SetPlayoutDelay(float64)        {}
func (Nop) SetClockOffset(float64)         {}
func (Nop) SetBufferDepth(int)             {}
func (Nop) SetCommandDepth(int)            {}

var _ Recorder = Nop{}
