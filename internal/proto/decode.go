package proto

import (
	"orbsnake/client/internal/state"
)

// Decoder turns server → client packets into ServerMessages. It owns the
// per-connection delta cache and resync state and mutates the session's
// IdentityTable in place as PlayerMeta messages arrive. One Decoder lives
// exactly as long as one socket; reconnect replaces it.
type Decoder struct {
	identity *state.IdentityTable

	cache         map[uint16]*cachedPlayer
	initialized   bool
	awaitKeyframe bool
	lastSeq       uint32
}

// NewDecoder returns a decoder bound to the given identity table.
func NewDecoder(identity *state.IdentityTable) *Decoder {
	return &Decoder{
		identity: identity,
		cache:    make(map[uint16]*cachedPlayer),
	}
}

// AwaitingKeyframe reports whether the decoder is discarding non-keyframe
// deltas until a resync point arrives.
func (d *Decoder) AwaitingKeyframe() bool { return d.awaitKeyframe }

// Reset drops all cached delta state. Called on reconnect.
func (d *Decoder) Reset() {
	d.cache = make(map[uint16]*cachedPlayer)
	d.initialized = false
	d.awaitKeyframe = false
	d.lastSeq = 0
}

// Decode parses one packet. It returns nil for anything malformed,
// wrong-version, or dropped by the delta resync policy; the caller discards
// the packet and moves on.
func (d *Decoder) Decode(buf []byte) ServerMessage {
	r := newReader(buf)
	version := r.u8()
	msgType := r.u8()
	flags := r.u16()
	if !r.ok() || version != Version {
		return nil
	}

	switch msgType {
	case TypeInit:
		return d.decodeInit(r, flags)
	case TypeState:
		return d.decodeState(r, flags)
	case TypeStateDelta:
		return d.decodeDelta(r, flags)
	case TypePlayerMeta:
		return d.decodeMeta(r)
	case TypePelletReset:
		return decodePelletReset(r)
	case TypePelletDelta:
		return decodePelletDelta(r)
	case TypePelletConsume:
		return decodePelletConsume(r)
	}
	return nil
}

func (d *Decoder) decodeInit(r *reader, flags uint16) ServerMessage {
	playerID := r.uuid()
	localNet := r.u16()
	tickMs := r.u16()
	snap := d.readStateBody(r, flags)
	if snap == nil {
		return nil
	}
	d.identity.LocalID = playerID
	d.identity.LocalNet = localNet
	return InitMessage{
		PlayerID:   playerID,
		LocalNetID: localNet,
		TickMs:     tickMs,
		State:      snap,
	}
}

func (d *Decoder) decodeState(r *reader, flags uint16) ServerMessage {
	snap := d.readStateBody(r, flags)
	if snap == nil {
		return nil
	}
	return StateMessage{State: snap}
}

// readStateBody parses a full snapshot and, on success, rebuilds the delta
// cache from it: a full State or Init is always a resync point.
func (d *Decoder) readStateBody(r *reader, flags uint16) *state.GameStateSnapshot {
	snap := &state.GameStateSnapshot{}
	snap.Now = r.i64()
	snap.Seq = r.u32()
	snap.TotalPlayers = r.u16()
	if flags&flagStateAck != 0 {
		ack := r.u16()
		snap.AckInputSeq = &ack
	}
	count := int(r.u16())
	if !r.ok() {
		return nil
	}

	cache := make(map[uint16]*cachedPlayer, count)
	snap.Players = make([]state.PlayerSnapshot, 0, count)
	for i := 0; i < count; i++ {
		netID, entry := readFullPlayer(r)
		if !r.ok() {
			return nil
		}
		cache[netID] = entry
		snap.Players = append(snap.Players, entry.snapshot(netID, d.identity))
	}

	d.cache = cache
	d.initialized = true
	d.awaitKeyframe = false
	d.lastSeq = snap.Seq
	return snap
}

func readFullPlayer(r *reader) (uint16, *cachedPlayer) {
	netID := r.u16()
	entry := &cachedPlayer{}
	entry.readFlags(r)
	entry.score = r.i32()
	entry.scoreFraction = dequantUnit16(r.u16())
	entry.oxygen = dequantUnit16(r.u16())
	entry.girthScale = dequantRange8(r.u8(), girthMin, girthMax)
	entry.tailExtension = dequantUnit16(r.u16())
	entry.readSnakeBlock(r)
	entry.readDigestions(r)
	return netID, entry
}

func (d *Decoder) decodeMeta(r *reader) ServerMessage {
	count := int(r.u16())
	if !r.ok() {
		return nil
	}
	entries := make([]MetaEntry, 0, count)
	for i := 0; i < count; i++ {
		var e MetaEntry
		e.NetID = r.u16()
		e.PlayerID = r.uuid()
		e.Meta.Name = r.str8()
		switch r.u8() {
		case 0:
			e.Meta.Color = state.Color{R: r.u8(), G: r.u8(), B: r.u8()}
		case 1:
			color, ok := state.ParseHexColor(r.str8())
			if !ok {
				r.fail()
			}
			e.Meta.Color = color
			e.HexColor = true
		default:
			r.fail()
		}
		if !r.ok() {
			return nil
		}
		entries = append(entries, e)
	}
	for _, e := range entries {
		d.identity.Put(e.NetID, e.PlayerID, e.Meta)
	}
	return PlayerMetaMessage{Entries: entries}
}

func decodePelletReset(r *reader) ServerMessage {
	pellets := readPellets(r)
	if !r.ok() {
		return nil
	}
	return PelletResetMessage{Pellets: pellets}
}

func decodePelletDelta(r *reader) ServerMessage {
	count := int(r.u16())
	if !r.ok() {
		return nil
	}
	removed := make([]uint16, 0, count)
	for i := 0; i < count; i++ {
		removed = append(removed, r.u16())
	}
	added := readPellets(r)
	if !r.ok() {
		return nil
	}
	return PelletDeltaMessage{Removed: removed, Added: added}
}

func decodePelletConsume(r *reader) ServerMessage {
	msg := PelletConsumeMessage{PelletID: r.u16(), EaterNetID: r.u16()}
	if !r.ok() {
		return nil
	}
	return msg
}

func readPellets(r *reader) []state.PelletSnapshot {
	count := int(r.u16())
	if !r.ok() {
		return nil
	}
	pellets := make([]state.PelletSnapshot, 0, count)
	for i := 0; i < count; i++ {
		pellets = append(pellets, state.PelletSnapshot{
			ID:   r.u16(),
			Dir:  r.oct(),
			Size: dequantRange8(r.u8(), pelletSizeMin, pelletSizeMax),
		})
	}
	return pellets
}
