package proto

import (
	"sort"

	"orbsnake/client/internal/sphere"
	"orbsnake/client/internal/state"
)

// cachedPlayer is the decoder's last-known full field set for one netId.
// Delta frames only transmit fields whose mask bit is set; everything else is
// inherited from here. Lives until a decode failure forces a keyframe resync
// or the socket reconnects.
type cachedPlayer struct {
	alive         bool
	boosting      bool
	score         int32
	scoreFraction float64
	oxygen        float64
	girthScale    float64
	tailExtension float64
	detail        state.SnakeDetail
	snake         []sphere.Vec
	snakeStart    uint16
	snakeTotal    uint16
	digestions    []state.Digestion
}

func (c *cachedPlayer) readFlags(r *reader) {
	f := r.u8()
	c.alive = f&playerFlagAlive != 0
	c.boosting = f&playerFlagBoosting != 0
}

// readSnakeBlock parses a snake block into the cache entry, validating the
// window invariant start+len <= total.
func (c *cachedPlayer) readSnakeBlock(r *reader) {
	c.detail = state.SnakeDetail(r.u8())
	c.snakeStart = 0
	switch c.detail {
	case state.SnakeDetailFull:
		count := int(r.u16())
		c.snake = readOctRun(r, count)
		c.snakeTotal = uint16(count)
	case state.SnakeDetailWindow:
		c.snakeTotal = r.u16()
		c.snakeStart = r.u16()
		count := int(r.u16())
		if count == 0 || int(c.snakeStart)+count > int(c.snakeTotal) {
			r.fail()
			return
		}
		c.snake = readOctRun(r, count)
	case state.SnakeDetailStub:
		c.snakeTotal = r.u16()
		c.snake = readOctRun(r, 1)
	default:
		r.fail()
	}
}

func (c *cachedPlayer) readDigestions(r *reader) {
	count := int(r.u8())
	if !r.ok() {
		return
	}
	c.digestions = make([]state.Digestion, 0, count)
	for i := 0; i < count; i++ {
		c.digestions = append(c.digestions, state.Digestion{
			ID:       r.u16(),
			Progress: dequantUnit16(r.u16()),
			Strength: dequantUnit8(r.u8()),
		})
	}
}

func readOctRun(r *reader, count int) []sphere.Vec {
	if !r.need(count * 4) {
		return nil
	}
	out := make([]sphere.Vec, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, r.oct())
	}
	return out
}

// snapshot materializes the cache entry as a PlayerSnapshot, resolving name
// and color from the identity table and deep-copying the slices so later
// delta frames cannot mutate an admitted snapshot.
func (c *cachedPlayer) snapshot(netID uint16, identity *state.IdentityTable) state.PlayerSnapshot {
	id, meta := identity.Resolve(netID)
	return state.PlayerSnapshot{
		ID:            id,
		Name:          meta.Name,
		Color:         meta.Color,
		Score:         c.score,
		ScoreFraction: c.scoreFraction,
		Oxygen:        c.oxygen,
		TailExtension: c.tailExtension,
		GirthScale:    c.girthScale,
		Alive:         c.alive,
		Boosting:      c.boosting,
		Snake:         append([]sphere.Vec(nil), c.snake...),
		SnakeDetail:   c.detail,
		SnakeStart:    c.snakeStart,
		SnakeTotalLen: c.snakeTotal,
		Digestions:    append([]state.Digestion(nil), c.digestions...),
	}
}

// decodeDelta applies one StateDelta frame against the cache.
//
// Resync policy: a non-keyframe frame is only applied when the decoder is
// initialized, not awaiting a keyframe, and seq is exactly lastSeq+1
// (mod 2^32). Any violation, or any field decode failure mid-frame, sets
// awaitKeyframe and drops the frame; the decoder then discards everything
// until a keyframe delta or a full State/Init arrives. The cache is never
// left half-applied on failure.
func (d *Decoder) decodeDelta(r *reader, flags uint16) ServerMessage {
	now := r.i64()
	seq := r.u32()
	totalPlayers := r.u16()
	var ack *uint16
	if flags&flagStateAck != 0 {
		v := r.u16()
		ack = &v
	}
	count := int(r.u16())
	if !r.ok() {
		d.awaitKeyframe = true
		return nil
	}

	keyframe := flags&flagStateKeyframe != 0
	if !keyframe && (!d.initialized || d.awaitKeyframe || seq != d.lastSeq+1) {
		d.awaitKeyframe = true
		return nil
	}

	// Apply against a scratch cache so a mid-frame failure cannot corrupt
	// the live one.
	work := make(map[uint16]*cachedPlayer, len(d.cache))
	if !keyframe {
		for netID, entry := range d.cache {
			copied := *entry
			work[netID] = &copied
		}
	}

	for i := 0; i < count; i++ {
		netID := r.u16()
		mask := r.u16()
		if !r.ok() {
			d.awaitKeyframe = true
			return nil
		}
		entry := work[netID]
		if entry == nil {
			if !keyframe {
				// Inheriting from a netId we have never seen means the
				// server and client cache have diverged.
				d.awaitKeyframe = true
				return nil
			}
			entry = &cachedPlayer{}
			work[netID] = entry
		} else if !keyframe {
			// Clone slices lazily; the shared backing arrays are still
			// referenced by the live cache.
			entry.snake = append([]sphere.Vec(nil), entry.snake...)
			entry.digestions = append([]state.Digestion(nil), entry.digestions...)
		}
		if !applyDeltaFields(r, entry, mask) {
			d.awaitKeyframe = true
			return nil
		}
	}
	if !r.ok() {
		d.awaitKeyframe = true
		return nil
	}

	d.cache = work
	d.initialized = true
	d.awaitKeyframe = false
	d.lastSeq = seq

	return StateMessage{
		State:    d.cacheSnapshot(now, seq, totalPlayers, ack),
		Delta:    true,
		Keyframe: keyframe,
	}
}

func applyDeltaFields(r *reader, entry *cachedPlayer, mask uint16) bool {
	if mask&MaskFlags != 0 {
		entry.readFlags(r)
	}
	if mask&MaskScore != 0 {
		entry.score += r.varZig()
	}
	if mask&MaskScoreFraction != 0 {
		entry.scoreFraction = dequantUnit16(r.u16())
	}
	if mask&MaskOxygen != 0 {
		entry.oxygen = dequantUnit16(r.u16())
	}
	if mask&MaskGirth != 0 {
		entry.girthScale = dequantRange8(r.u8(), girthMin, girthMax)
	}
	if mask&MaskTailExt != 0 {
		entry.tailExtension = dequantUnit16(r.u16())
	}
	if mask&MaskSnake != 0 {
		switch r.u8() {
		case SnakeOpRebase:
			entry.readSnakeBlock(r)
		case SnakeOpShiftHead:
			head := r.oct()
			if len(entry.snake) == 0 || entry.detail == state.SnakeDetailStub {
				return false
			}
			// O(1) body update: new head in front, old tail dropped.
			entry.snake = append([]sphere.Vec{head}, entry.snake[:len(entry.snake)-1]...)
		default:
			return false
		}
	}
	if mask&MaskDigestions != 0 {
		entry.readDigestions(r)
	}
	if mask&MaskTailTip != 0 {
		tip := r.oct()
		if len(entry.snake) == 0 {
			return false
		}
		entry.snake[len(entry.snake)-1] = tip
	}
	return r.ok()
}

// cacheSnapshot reconstructs a full snapshot from the entire cache. Players
// absent from a delta frame are unchanged, not gone, so every cached entry
// appears. Order is by netId for determinism.
func (d *Decoder) cacheSnapshot(now int64, seq uint32, totalPlayers uint16, ack *uint16) *state.GameStateSnapshot {
	netIDs := make([]int, 0, len(d.cache))
	for netID := range d.cache {
		netIDs = append(netIDs, int(netID))
	}
	sort.Ints(netIDs)

	snap := &state.GameStateSnapshot{
		Now:          now,
		Seq:          seq,
		TotalPlayers: totalPlayers,
		AckInputSeq:  ack,
		Players:      make([]state.PlayerSnapshot, 0, len(netIDs)),
	}
	for _, netID := range netIDs {
		entry := d.cache[uint16(netID)]
		snap.Players = append(snap.Players, entry.snapshot(uint16(netID), d.identity))
	}
	return snap
}
