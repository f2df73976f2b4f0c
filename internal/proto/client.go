package proto

import (
	"orbsnake/client/internal/sphere"
	"orbsnake/client/internal/state"
)

// ClientMessage is the decoded form of one client → server packet. The
// server side of the codec lives here too so both halves of the protocol
// stay in one package.
type ClientMessage interface{ clientMessage() }

// JoinMessage requests entry to the room.
type JoinMessage struct {
	PlayerID   string // optional, empty when absent
	Name       string // optional
	HasName    bool
	DeferSpawn bool
	Skin       []state.Color // optional, at most MaxSkinColors
}

// InputMessage carries one steering sample.
type InputMessage struct {
	Seq   uint16
	Boost bool
	Axis  *sphere.Vec // nil when the player is coasting
}

// ViewMessage updates the server-side interest area.
type ViewMessage struct {
	Center         *sphere.Vec
	Radius         float64
	HasRadius      bool
	CameraDistance float64
	HasDistance    bool
}

// RespawnMessage asks for a new snake after death.
type RespawnMessage struct{}

func (JoinMessage) clientMessage()    {}
func (InputMessage) clientMessage()   {}
func (ViewMessage) clientMessage()    {}
func (RespawnMessage) clientMessage() {}

func writeHeader(w *writer, msgType uint8, flags uint16) {
	w.u8(Version)
	w.u8(msgType)
	w.u16(flags)
}

// EncodeJoin renders a Join message. Skins beyond MaxSkinColors are
// truncated.
func EncodeJoin(m JoinMessage) []byte {
	var flags uint16
	if m.PlayerID != "" {
		flags |= flagJoinPlayerID
	}
	if m.HasName {
		flags |= flagJoinName
	}
	if m.DeferSpawn {
		flags |= flagJoinDefer
	}
	skin := m.Skin
	if len(skin) > MaxSkinColors {
		skin = skin[:MaxSkinColors]
	}
	if len(skin) > 0 {
		flags |= flagJoinSkin
	}

	w := newWriter(headerSize + 16 + 1 + len(m.Name) + 1 + len(skin)*3)
	writeHeader(w, TypeJoin, flags)
	if flags&flagJoinPlayerID != 0 {
		w.uuid(m.PlayerID)
	}
	if flags&flagJoinName != 0 {
		w.str8(m.Name)
	}
	if flags&flagJoinSkin != 0 {
		w.u8(uint8(len(skin)))
		for _, c := range skin {
			w.u8(c.R)
			w.u8(c.G)
			w.u8(c.B)
		}
	}
	return w.buf
}

// EncodeInput renders an Input message. This is the per-tick hot path, so
// the buffer is sized exactly.
func EncodeInput(m InputMessage) []byte {
	var flags uint16
	size := headerSize + 3
	if m.Axis != nil {
		flags |= flagInputAxis
		size += 4
	}
	w := newWriter(size)
	writeHeader(w, TypeInput, flags)
	w.u16(m.Seq)
	w.bool8(m.Boost)
	if m.Axis != nil {
		w.oct(*m.Axis)
	}
	return w.buf
}

// EncodeView renders a View message.
func EncodeView(m ViewMessage) []byte {
	var flags uint16
	if m.Center != nil {
		flags |= flagViewCenter
	}
	if m.HasRadius {
		flags |= flagViewRadius
	}
	if m.HasDistance {
		flags |= flagViewDistance
	}
	w := newWriter(headerSize + 8)
	writeHeader(w, TypeView, flags)
	if m.Center != nil {
		w.oct(*m.Center)
	}
	if m.HasRadius {
		w.u16(quantRange16(m.Radius, ViewRadiusMin, ViewRadiusMax))
	}
	if m.HasDistance {
		w.u16(quantRange16(m.CameraDistance, CameraDistanceMin, CameraDistanceMax))
	}
	return w.buf
}

// EncodeRespawn renders a Respawn message (header only).
func EncodeRespawn() []byte {
	w := newWriter(headerSize)
	writeHeader(w, TypeRespawn, 0)
	return w.buf
}

// DecodeClientMessage parses one client → server packet. Returns nil for
// anything truncated, inconsistent, or carrying the wrong version.
func DecodeClientMessage(buf []byte) ClientMessage {
	r := newReader(buf)
	version := r.u8()
	msgType := r.u8()
	flags := r.u16()
	if !r.ok() || version != Version {
		return nil
	}

	var msg ClientMessage
	switch msgType {
	case TypeJoin:
		msg = decodeJoin(r, flags)
	case TypeInput:
		msg = decodeInput(r, flags)
	case TypeView:
		msg = decodeView(r, flags)
	case TypeRespawn:
		msg = RespawnMessage{}
	default:
		return nil
	}
	if !r.ok() {
		return nil
	}
	return msg
}

func decodeJoin(r *reader, flags uint16) ClientMessage {
	var m JoinMessage
	if flags&flagJoinPlayerID != 0 {
		m.PlayerID = r.uuid()
	}
	if flags&flagJoinName != 0 {
		m.Name = r.str8()
		m.HasName = true
	}
	m.DeferSpawn = flags&flagJoinDefer != 0
	if flags&flagJoinSkin != 0 {
		count := int(r.u8())
		if count == 0 || count > MaxSkinColors {
			r.fail()
			return nil
		}
		m.Skin = make([]state.Color, 0, count)
		for i := 0; i < count; i++ {
			m.Skin = append(m.Skin, state.Color{R: r.u8(), G: r.u8(), B: r.u8()})
		}
	}
	return m
}

func decodeInput(r *reader, flags uint16) ClientMessage {
	var m InputMessage
	m.Seq = r.u16()
	m.Boost = r.bool8()
	if flags&flagInputAxis != 0 {
		axis := r.oct()
		m.Axis = &axis
	}
	return m
}

func decodeView(r *reader, flags uint16) ClientMessage {
	var m ViewMessage
	if flags&flagViewCenter != 0 {
		center := r.oct()
		m.Center = &center
	}
	if flags&flagViewRadius != 0 {
		m.Radius = dequantRange16(r.u16(), ViewRadiusMin, ViewRadiusMax)
		m.HasRadius = true
	}
	if flags&flagViewDistance != 0 {
		m.CameraDistance = dequantRange16(r.u16(), CameraDistanceMin, CameraDistanceMax)
		m.HasDistance = true
	}
	return m
}
