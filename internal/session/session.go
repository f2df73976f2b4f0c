// Package session owns one connection to an orbsnake room: matchmaking, the
// websocket, the input send loop, and the glue between the wire decoder, the
// snapshot scheduler, and the local predictor.
//
// Concurrency model: all netcode state is serialized by one session mutex.
// The socket read pump, the input ticker, and the host's per-frame
// RenderSnapshot call each take it briefly; the components underneath are
// plain single-owner structs with no locking of their own.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"orbsnake/client/internal/diag"
	"orbsnake/client/internal/prediction"
	"orbsnake/client/internal/proto"
	"orbsnake/client/internal/snapshot"
	"orbsnake/client/internal/sphere"
	"orbsnake/client/internal/state"
	"orbsnake/client/internal/tuning"
)

// Status is the externally visible connection state.
type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusReconnecting
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusClosed:
		return "closed"
	}
	return "unknown"
}

// Fixed reconnect pause. Deliberately not exponential: a player staring at a
// "reconnecting" overlay wants the retry now, and the server sheds load by
// refusing, not by us backing off forever.
const reconnectBackoff = 1500 * time.Millisecond

// Diagnostics is the JSON-serializable aggregate debug view.
type Diagnostics struct {
	Status           string           `json:"status"`
	Reconnects       int              `json:"reconnects"`
	LocalPlayerID    string           `json:"localPlayerId"`
	TickMs           uint16           `json:"tickMs"`
	AwaitingKeyframe bool             `json:"awaitingKeyframe"`
	CommandDepth     int              `json:"commandDepth"`
	PelletCount      int              `json:"pelletCount"`
	Scheduler        snapshot.Status  `json:"scheduler"`
	Prediction       prediction.Stats `json:"prediction"`
	Events           []diag.Event     `json:"events"`
}

type viewState struct {
	center     sphere.Vec
	haveCenter bool
	radius     float64
	camDist    float64
	dirty      bool

	sentCenter     sphere.Vec
	haveSentCenter bool
	sentRadius     float64
	sentCamDist    float64
}

// Session is one client's connection lifecycle. Create with New, drive with
// Run, render with RenderSnapshot, and tear down with Close.
type Session struct {
	cfg  Config
	tun  tuning.NetTuning
	log  zerolog.Logger
	rec  diag.Recorder
	ring *diag.EventRing
	http *http.Client
	now  func() int64

	mu       sync.Mutex
	writeMu  sync.Mutex
	identity *state.IdentityTable
	decoder  *proto.Decoder
	sched    *snapshot.Scheduler
	cmds     *prediction.Buffer
	pred     *prediction.Predictor
	pellets  *pelletTable

	conn       *websocket.Conn
	status     Status
	closed     bool
	reconnects int

	tickMs  uint16
	localID string

	inputAxis  *sphere.Vec
	inputBoost bool
	view       viewState
}

// New builds a session. rec and ring may be nil.
func New(cfg Config, tun tuning.NetTuning, rec diag.Recorder, ring *diag.EventRing, log zerolog.Logger) *Session {
	if rec == nil {
		rec = diag.Nop{}
	}
	s := &Session{
		cfg:  cfg.normalized(),
		tun:  tun,
		log:  log,
		rec:  rec,
		ring: ring,
		http: &http.Client{},
		now:  func() int64 { return time.Now().UnixMilli() },
	}
	s.resetConnectionLocked()
	return s
}

// resetConnectionLocked rebuilds every per-connection structure: decoder
// cache, snapshot buffer, command buffer, predictor, identity and pellet
// tables. Must hold s.mu (or be pre-Run).
func (s *Session) resetConnectionLocked() {
	s.identity = state.NewIdentityTable()
	s.decoder = proto.NewDecoder(s.identity)
	s.sched = snapshot.New(s.tun, s.rec, s.log)
	if s.cmds == nil {
		s.cmds = prediction.NewBuffer(s.tun.CommandCapacity)
	} else {
		s.cmds.Reset()
	}
	if s.pred == nil {
		s.pred = prediction.New(&s.tun, s.rec, s.log)
	} else {
		s.pred.Reset()
	}
	s.pellets = newPelletTable()
	s.tickMs = 0
	s.localID = ""
	s.view = viewState{}
}

// Run drives the connect/reconnect loop until ctx is cancelled or Close is
// called. Each failed or dropped connection resets all per-connection state
// and retries on the fixed backoff.
func (s *Session) Run(ctx context.Context) error {
	for {
		err := s.connect(ctx)
		if ctx.Err() != nil || s.isClosed() {
			s.setStatus(StatusClosed)
			return ctx.Err()
		}
		s.log.Warn().Err(err).Msg("connection lost, reconnecting")
		s.setStatus(StatusReconnecting)
		s.rec.Reconnected()
		s.event("reconnect", "")
		s.mu.Lock()
		s.reconnects++
		s.resetConnectionLocked()
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			s.setStatus(StatusClosed)
			return ctx.Err()
		case <-time.After(reconnectBackoff):
		}
	}
}

// connect performs one full connection: matchmake, dial, join, then pump
// messages until the socket dies.
func (s *Session) connect(ctx context.Context) error {
	s.setStatus(StatusConnecting)

	target := s.cfg.ServerURL
	room := s.cfg.Room
	if s.cfg.LobbyURL != "" {
		assignment, err := requestMatch(ctx, s.http, s.cfg.LobbyURL, room)
		if err != nil {
			return err
		}
		target = assignment.WSURL
		if assignment.Room != "" {
			room = assignment.Room
		}
	}
	wsURL, err := socketURL(target, room)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}

	join := proto.EncodeJoin(proto.JoinMessage{
		PlayerID:   s.cfg.PlayerID,
		Name:       s.cfg.Name,
		HasName:    s.cfg.Name != "",
		DeferSpawn: s.cfg.DeferSpawn,
		Skin:       s.cfg.Skin,
	})
	if err := s.write(conn, join); err != nil {
		conn.Close()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.status = StatusConnected
	s.mu.Unlock()
	s.log.Info().Str("url", wsURL).Str("room", room).Msg("connected")

	stopSend := make(chan struct{})
	var sendDone sync.WaitGroup
	sendDone.Add(1)
	go func() {
		defer sendDone.Done()
		s.inputLoop(ctx, conn, stopSend)
	}()

	readErr := s.readLoop(ctx, conn)

	close(stopSend)
	conn.Close()
	sendDone.Wait()

	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()
	return readErr
}

// readLoop pumps socket frames into the decoder until the socket errors.
// Wire messages are processed strictly in delivery order.
func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil || s.isClosed() {
			return ctx.Err()
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		s.handleFrame(data, s.now())
	}
}

// handleFrame decodes one packet and routes it. Malformed packets are
// dropped silently (counted); a delta resync transition is logged once.
func (s *Session) handleFrame(data []byte, receivedAt int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasAwaiting := s.decoder.AwaitingKeyframe()
	msg := s.decoder.Decode(data)
	if msg == nil {
		s.rec.SnapshotDropped("decode")
		if !wasAwaiting && s.decoder.AwaitingKeyframe() {
			s.rec.DeltaResync()
			s.event("resync", "awaiting keyframe")
			s.log.Debug().Msg("delta desync, awaiting keyframe")
		}
		return
	}

	switch m := msg.(type) {
	case proto.InitMessage:
		s.localID = m.PlayerID
		s.tickMs = m.TickMs
		s.sched.SetTickMs(float64(m.TickMs))
		s.log.Info().Str("playerId", m.PlayerID).Uint16("tickMs", m.TickMs).Msg("initialized")
		s.admitSnapshot(m.State, receivedAt)
	case proto.StateMessage:
		s.admitSnapshot(m.State, receivedAt)
	case proto.PlayerMetaMessage:
		// Identity table was updated in place by the decoder.
	case proto.PelletResetMessage:
		s.pellets.reset(m.Pellets)
	case proto.PelletDeltaMessage:
		s.pellets.apply(m.Removed, m.Added)
	case proto.PelletConsumeMessage:
		s.pellets.consume(m.PelletID, m.EaterNetID, receivedAt)
	}
}

// admitSnapshot pushes one authoritative snapshot, prunes acknowledged
// inputs, and feeds the predictor its new baseline. Caller holds s.mu.
func (s *Session) admitSnapshot(snap *state.GameStateSnapshot, receivedAt int64) {
	if snap == nil {
		return
	}
	result := s.sched.Push(snap, receivedAt)
	if !result.Admitted {
		return
	}

	if snap.AckInputSeq != nil {
		s.cmds.PruneAcked(*snap.AckInputSeq)
		s.rec.SetCommandDepth(s.cmds.Size())
	}

	if s.localID == "" {
		return
	}
	local := snap.Player(s.localID)
	if local == nil || !local.Alive || len(local.Snake) == 0 {
		return
	}
	s.pred.OnAuthoritative(local.Snake, receivedAt, s.now(), s.cmds.Pending(), s.inputAxis != nil, s.netStress())
}

func (s *Session) netStress() prediction.NetStress {
	active, _ := s.sched.SpikeActive()
	return prediction.NetStress{
		SpikeActive:  active,
		HighJitter:   s.sched.JitterMs() > s.sched.TickMs(),
		SlowInterval: s.sched.IntervalMs() > s.tun.StressIntervalTicks*s.sched.TickMs(),
	}
}

// inputLoop sends the current steering state at the fixed input cadence,
// independent of the render frame rate, plus View updates when the camera
// moved enough to matter.
func (s *Session) inputLoop(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	interval := time.Duration(float64(time.Second) / s.tun.InputHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if s.isClosed() {
			return
		}

		input, view := s.buildOutgoing()
		if err := s.write(conn, input); err != nil {
			// The read loop will observe the same failure and tear down.
			return
		}
		if view != nil {
			if err := s.write(conn, view); err != nil {
				return
			}
		}
	}
}

// write serializes socket writes. The input loop and Respawn share one
// connection and gorilla/websocket allows a single writer at a time.
func (s *Session) write(conn *websocket.Conn, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// buildOutgoing snapshots the input state into encoded Input (always) and
// View (only when dirty past the epsilon) messages.
func (s *Session) buildOutgoing() (input []byte, view []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.cmds.NextSeq()
	cmd := prediction.Command{Seq: seq, SentAtMs: s.now(), Boost: s.inputBoost}
	if s.inputAxis != nil {
		axis := *s.inputAxis
		cmd.Axis = &axis
	}
	if pruned := s.cmds.Enqueue(cmd); pruned > 0 {
		s.event("command-overflow", "")
		s.log.Warn().Int("pruned", pruned).Msg("input command buffer overflow")
	}
	s.rec.SetCommandDepth(s.cmds.Size())

	input = proto.EncodeInput(proto.InputMessage{Seq: seq, Boost: s.inputBoost, Axis: cmd.Axis})

	if s.view.dirty && s.view.haveCenter {
		// Pose change means the center moved past the epsilon or the zoom
		// (radius / camera distance) differs from the last transmitted value.
		changed := !s.view.haveSentCenter ||
			sphere.AngleDeg(s.view.center, s.view.sentCenter) > s.tun.ViewEpsilonDeg ||
			s.view.radius != s.view.sentRadius ||
			s.view.camDist != s.view.sentCamDist
		if changed {
			center := s.view.center
			view = proto.EncodeView(proto.ViewMessage{
				Center:         &center,
				Radius:         s.view.radius,
				HasRadius:      true,
				CameraDistance: s.view.camDist,
				HasDistance:    true,
			})
			s.view.sentCenter = center
			s.view.haveSentCenter = true
			s.view.sentRadius = s.view.radius
			s.view.sentCamDist = s.view.camDist
			s.view.dirty = false
		}
	}
	return input, view
}

// SetInput updates the steering state sampled by the input loop. A nil axis
// means coasting.
func (s *Session) SetInput(axis *sphere.Vec, boost bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if axis == nil {
		s.inputAxis = nil
	} else {
		a := axis.Normalized()
		s.inputAxis = &a
	}
	s.inputBoost = boost
}

// SetView updates the camera interest area.
func (s *Session) SetView(center sphere.Vec, radius, camDist float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.center = center.Normalized()
	s.view.haveCenter = true
	s.view.radius = radius
	s.view.camDist = camDist
	s.view.dirty = true
}

// Respawn asks the server for a new snake and forces the next
// reconciliation to hard-snap onto it.
func (s *Session) Respawn() error {
	s.mu.Lock()
	conn := s.conn
	s.pred.NoteRespawn()
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return s.write(conn, proto.EncodeRespawn())
}

// RenderSnapshot is the per-frame entry point: the interpolated
// authoritative snapshot with the predicted local snake overlaid, or nil
// while nothing is buffered.
func (s *Session) RenderSnapshot(nowMs int64) *state.GameStateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.sched.RenderSnapshot(nowMs)
	if snap == nil {
		return nil
	}
	snap.Pellets = s.pellets.snapshot(nowMs)

	local := snap.Player(s.localID)
	s.pred.SetDisabled(s.disabledReason(local))
	predicted := s.pred.Frame(nowMs, s.cmds.Pending(), s.inputAxis != nil)
	if predicted != nil && local != nil {
		local.Snake = predicted
	}
	return snap
}

// disabledReason decides whether prediction runs this frame. An arrival-gap
// spike only counts as hard when jitter or interval impairment backs it up;
// a short gap alone should not drop the player back to raw server motion.
func (s *Session) disabledReason(local *state.PlayerSnapshot) prediction.DisabledReason {
	if s.localID == "" || local == nil || len(local.Snake) == 0 {
		return prediction.DisabledNotReady
	}
	if !local.Alive {
		return prediction.DisabledDead
	}
	if active, cause := s.sched.SpikeActive(); active {
		if cause != snapshot.CauseArrivalGap || s.sched.Impaired() {
			return prediction.DisabledSpike
		}
	}
	return prediction.DisabledNone
}

// Diagnostics aggregates the debug view of every layer.
func (s *Session) Diagnostics() Diagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := Diagnostics{
		Status:           s.status.String(),
		Reconnects:       s.reconnects,
		LocalPlayerID:    s.localID,
		TickMs:           s.tickMs,
		AwaitingKeyframe: s.decoder.AwaitingKeyframe(),
		CommandDepth:     s.cmds.Size(),
		PelletCount:      s.pellets.size(),
		Scheduler:        s.sched.Status(),
		Prediction:       s.pred.Stats(),
	}
	if s.ring != nil {
		d.Events = s.ring.Recent()
	}
	return d
}

// Status returns the connection state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Close tears the session down; Run returns after the socket unblocks.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.status = StatusClosed
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed && st != StatusClosed {
		return
	}
	s.status = st
}

func (s *Session) event(kind, detail string) {
	if s.ring != nil {
		s.ring.Push(kind, detail)
	}
}
