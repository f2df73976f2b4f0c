package diag

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a prometheus-backed Recorder.
type Metrics struct {
	snapshotsAdmitted prometheus.Counter
	snapshotsDropped  *prometheus.CounterVec
	seqGaps           prometheus.Counter
	spikesEntered     *prometheus.CounterVec
	spikesExited      *prometheus.CounterVec
	deltaResyncs      prometheus.Counter
	reconnects        prometheus.Counter
	corrections       *prometheus.CounterVec
	predictionError   prometheus.Histogram
	interArrival      prometheus.Histogram
	playoutDelay      prometheus.Gauge
	clockOffset       prometheus.Gauge
	bufferDepth       prometheus.Gauge
	commandDepth      prometheus.Gauge
}

var _ Recorder = (*Metrics)(nil)

// NewMetrics builds and registers the netcode metrics on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		snapshotsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orbsnake_snapshots_admitted_total",
			Help: "Authoritative snapshots admitted to the playout buffer.",
		}),
		snapshotsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orbsnake_snapshots_dropped_total",
			Help: "Snapshots rejected before buffering.",
		}, []string{"reason"}),
		seqGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orbsnake_seq_gaps_total",
			Help: "Sequence gaps flagged by the snapshot buffer.",
		}),
		spikesEntered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orbsnake_lag_spikes_entered_total",
			Help: "Lag spike activations by cause.",
		}, []string{"cause"}),
		spikesExited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orbsnake_lag_spikes_exited_total",
			Help: "Lag spike deactivations by cause.",
		}, []string{"cause"}),
		deltaResyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orbsnake_delta_resyncs_total",
			Help: "Delta decoder keyframe resyncs.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orbsnake_reconnects_total",
			Help: "Socket reconnect attempts.",
		}),
		corrections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orbsnake_corrections_total",
			Help: "Prediction corrections by kind.",
		}, []string{"kind"}),
		predictionError: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orbsnake_prediction_error_degrees",
			Help:    "Angular error between predicted and authoritative head.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		interArrival: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orbsnake_snapshot_interarrival_ms",
			Help:    "Milliseconds between snapshot arrivals.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 8),
		}),
		playoutDelay: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orbsnake_playout_delay_ms",
			Help: "Current adaptive playout delay.",
		}),
		clockOffset: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orbsnake_clock_offset_ms",
			Help: "Estimated server minus client clock offset.",
		}),
		bufferDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orbsnake_snapshot_buffer_depth",
			Help: "Snapshots currently buffered.",
		}),
		commandDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orbsnake_command_buffer_depth",
			Help: "Unacknowledged input commands.",
		}),
	}
	reg.MustRegister(
		m.snapshotsAdmitted, m.snapshotsDropped, m.seqGaps,
		m.spikesEntered, m.spikesExited, m.deltaResyncs, m.reconnects,
		m.corrections, m.predictionError, m.interArrival,
		m.playoutDelay, m.clockOffset, m.bufferDepth, m.commandDepth,
	)
	return m
}

func (m *Metrics) SnapshotAdmitted()       { m.snapshotsAdmitted.Inc() }
func (m *Metrics) SnapshotDropped(r string) {
	m.snapshotsDropped.WithLabelValues(r).Inc()
}
func (m *Metrics) SeqGapFlagged()          { m.seqGaps.Inc() }
func (m *Metrics) SpikeEntered(c string)   { m.spikesEntered.WithLabelValues(c).Inc() }
func (m *Metrics) SpikeExited(c string)    { m.spikesExited.WithLabelValues(c).Inc() }
func (m *Metrics) DeltaResync()            { m.deltaResyncs.Inc() }
func (m *Metrics) Reconnected()            { m.reconnects.Inc() }
func (m *Metrics) CorrectionApplied(k string) {
	m.corrections.WithLabelValues(k).Inc()
}
func (m *Metrics) ObservePredictionError(deg float64) { m.predictionError.Observe(deg) }
func (m *Metrics) ObserveInterArrival(ms float64)     { m.interArrival.Observe(ms) }
func (m *Metrics) SetPlayoutDelay(ms float64)         { m.playoutDelay.Set(ms) }
func (m *Metrics) SetClockOffset(ms float64)          { m.clockOffset.Set(ms) }
func (m *Metrics) SetBufferDepth(n int)               { m.bufferDepth.Set(float64(n)) }
func (m *Metrics) SetCommandDepth(n int)              { m.commandDepth.Set(float64(n)) }
