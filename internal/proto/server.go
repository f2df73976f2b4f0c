package proto

import (
	"orbsnake/client/internal/sphere"
	"orbsnake/client/internal/state"
)

// Delta frame field-mask bits. An unset bit means the field is inherited from
// the decoder's cached state for that netId.
const (
	MaskFlags         = 1 << 0
	MaskScore         = 1 << 1
	MaskScoreFraction = 1 << 2
	MaskOxygen        = 1 << 3
	MaskGirth         = 1 << 4
	MaskTailExt       = 1 << 5
	MaskSnake         = 1 << 6
	MaskDigestions    = 1 << 7
	MaskTailTip       = 1 << 8
)

// Snake sub-operations inside a delta entry.
const (
	// SnakeOpRebase replaces the whole cached snake, same layout as a full
	// snapshot's snake block.
	SnakeOpRebase = 0
	// SnakeOpShiftHead prepends one head direction and drops the old tail.
	// Requires a cached, non-stub snake.
	SnakeOpShiftHead = 1
)

const (
	playerFlagAlive    = 1 << 0
	playerFlagBoosting = 1 << 1
)

// StatePlayer pairs a full player snapshot with its compact network id.
type StatePlayer struct {
	NetID  uint16
	Player state.PlayerSnapshot
}

// StateFrame is the logical content of a full State message.
type StateFrame struct {
	Now          int64
	Seq          uint32
	TotalPlayers uint16
	Ack          *uint16
	Players      []StatePlayer
}

// InitFrame is the logical content of an Init message.
type InitFrame struct {
	PlayerID   string
	LocalNetID uint16
	TickMs     uint16
	State      StateFrame
}

// DeltaPlayer is one player entry of a StateDelta frame. Only the fields
// selected by Mask are written.
type DeltaPlayer struct {
	NetID         uint16
	Mask          uint16
	Alive         bool
	Boosting      bool
	ScoreDelta    int32 // zigzag varint on the wire
	ScoreFraction float64
	Oxygen        float64
	GirthScale    float64
	TailExtension float64
	SnakeOp       uint8
	SnakeDetail   state.SnakeDetail
	Snake         []sphere.Vec
	SnakeStart    uint16
	SnakeTotalLen uint16
	NewHead       sphere.Vec
	TailTip       sphere.Vec
	Digestions    []state.Digestion
}

// DeltaFrame is the logical content of a StateDelta message.
type DeltaFrame struct {
	Now          int64
	Seq          uint32
	TotalPlayers uint16
	Ack          *uint16
	Keyframe     bool
	Players      []DeltaPlayer
}

func stateFlags(ack *uint16, keyframe bool) uint16 {
	var flags uint16
	if ack != nil {
		flags |= flagStateAck
	}
	if keyframe {
		flags |= flagStateKeyframe
	}
	return flags
}

// EncodeState renders a full State message.
func EncodeState(f StateFrame) []byte {
	w := newWriter(headerSize + 16 + len(f.Players)*48)
	writeHeader(w, TypeState, stateFlags(f.Ack, false))
	writeStateBody(w, f)
	return w.buf
}

// EncodeInit renders an Init message: local identity, tick length, and a
// first full snapshot.
func EncodeInit(f InitFrame) []byte {
	w := newWriter(headerSize + 20 + 16 + len(f.State.Players)*48)
	writeHeader(w, TypeInit, stateFlags(f.State.Ack, false))
	w.uuid(f.PlayerID)
	w.u16(f.LocalNetID)
	w.u16(f.TickMs)
	writeStateBody(w, f.State)
	return w.buf
}

func writeStateBody(w *writer, f StateFrame) {
	w.i64(f.Now)
	w.u32(f.Seq)
	w.u16(f.TotalPlayers)
	if f.Ack != nil {
		w.u16(*f.Ack)
	}
	w.u16(uint16(len(f.Players)))
	for _, p := range f.Players {
		writeFullPlayer(w, p.NetID, p.Player)
	}
}

func writeFullPlayer(w *writer, netID uint16, p state.PlayerSnapshot) {
	w.u16(netID)
	w.u8(packPlayerFlags(p.Alive, p.Boosting))
	w.i32(p.Score)
	w.u16(quantUnit16(p.ScoreFraction))
	w.u16(quantUnit16(p.Oxygen))
	w.u8(quantRange8(p.GirthScale, girthMin, girthMax))
	w.u16(quantUnit16(p.TailExtension))
	writeSnakeBlock(w, p.SnakeDetail, p.Snake, p.SnakeStart, p.SnakeTotalLen)
	writeDigestions(w, p.Digestions)
}

func writeSnakeBlock(w *writer, detail state.SnakeDetail, snake []sphere.Vec, start, total uint16) {
	w.u8(uint8(detail))
	switch detail {
	case state.SnakeDetailFull:
		w.u16(uint16(len(snake)))
		for _, v := range snake {
			w.oct(v)
		}
	case state.SnakeDetailWindow:
		w.u16(total)
		w.u16(start)
		w.u16(uint16(len(snake)))
		for _, v := range snake {
			w.oct(v)
		}
	case state.SnakeDetailStub:
		w.u16(total)
		head := sphere.Vec{Z: 1}
		if len(snake) > 0 {
			head = snake[0]
		}
		w.oct(head)
	}
}

func writeDigestions(w *writer, digestions []state.Digestion) {
	w.u8(uint8(len(digestions)))
	for _, d := range digestions {
		w.u16(d.ID)
		w.u16(quantUnit16(d.Progress))
		w.u8(quantUnit8(d.Strength))
	}
}

// EncodeStateDelta renders a StateDelta frame. The caller owns mask
// consistency; the decoder enforces it.
func EncodeStateDelta(f DeltaFrame) []byte {
	w := newWriter(headerSize + 16 + len(f.Players)*24)
	writeHeader(w, TypeStateDelta, stateFlags(f.Ack, f.Keyframe))
	w.i64(f.Now)
	w.u32(f.Seq)
	w.u16(f.TotalPlayers)
	if f.Ack != nil {
		w.u16(*f.Ack)
	}
	w.u16(uint16(len(f.Players)))
	for _, p := range f.Players {
		w.u16(p.NetID)
		w.u16(p.Mask)
		if p.Mask&MaskFlags != 0 {
			w.u8(packPlayerFlags(p.Alive, p.Boosting))
		}
		if p.Mask&MaskScore != 0 {
			w.varZig(p.ScoreDelta)
		}
		if p.Mask&MaskScoreFraction != 0 {
			w.u16(quantUnit16(p.ScoreFraction))
		}
		if p.Mask&MaskOxygen != 0 {
			w.u16(quantUnit16(p.Oxygen))
		}
		if p.Mask&MaskGirth != 0 {
			w.u8(quantRange8(p.GirthScale, girthMin, girthMax))
		}
		if p.Mask&MaskTailExt != 0 {
			w.u16(quantUnit16(p.TailExtension))
		}
		if p.Mask&MaskSnake != 0 {
			w.u8(p.SnakeOp)
			switch p.SnakeOp {
			case SnakeOpRebase:
				writeSnakeBlock(w, p.SnakeDetail, p.Snake, p.SnakeStart, p.SnakeTotalLen)
			case SnakeOpShiftHead:
				w.oct(p.NewHead)
			}
		}
		if p.Mask&MaskDigestions != 0 {
			writeDigestions(w, p.Digestions)
		}
		if p.Mask&MaskTailTip != 0 {
			w.oct(p.TailTip)
		}
	}
	return w.buf
}

// EncodePlayerMeta renders the identity side channel.
func EncodePlayerMeta(entries []MetaEntry) []byte {
	w := newWriter(headerSize + 2 + len(entries)*40)
	writeHeader(w, TypePlayerMeta, 0)
	w.u16(uint16(len(entries)))
	for _, e := range entries {
		w.u16(e.NetID)
		w.uuid(e.PlayerID)
		w.str8(e.Meta.Name)
		if e.HexColor {
			w.u8(1)
			w.str8(e.Meta.Color.Hex())
		} else {
			w.u8(0)
			w.u8(e.Meta.Color.R)
			w.u8(e.Meta.Color.G)
			w.u8(e.Meta.Color.B)
		}
	}
	return w.buf
}

// EncodePelletReset renders a full pellet table replacement.
func EncodePelletReset(pellets []state.PelletSnapshot) []byte {
	w := newWriter(headerSize + 2 + len(pellets)*7)
	writeHeader(w, TypePelletReset, 0)
	writePellets(w, pellets)
	return w.buf
}

// EncodePelletDelta renders pellet removals and additions.
func EncodePelletDelta(removed []uint16, added []state.PelletSnapshot) []byte {
	w := newWriter(headerSize + 4 + len(removed)*2 + len(added)*7)
	writeHeader(w, TypePelletDelta, 0)
	w.u16(uint16(len(removed)))
	for _, id := range removed {
		w.u16(id)
	}
	writePellets(w, added)
	return w.buf
}

// EncodePelletConsume renders a pellet-consumed event.
func EncodePelletConsume(pelletID, eaterNetID uint16) []byte {
	w := newWriter(headerSize + 4)
	writeHeader(w, TypePelletConsume, 0)
	w.u16(pelletID)
	w.u16(eaterNetID)
	return w.buf
}

func writePellets(w *writer, pellets []state.PelletSnapshot) {
	w.u16(uint16(len(pellets)))
	for _, p := range pellets {
		w.u16(p.ID)
		w.oct(p.Dir)
		w.u8(quantRange8(p.Size, pelletSizeMin, pelletSizeMax))
	}
}

func packPlayerFlags(alive, boosting bool) uint8 {
	var f uint8
	if alive {
		f |= playerFlagAlive
	}
	if boosting {
		f |= playerFlagBoosting
	}
	return f
}
