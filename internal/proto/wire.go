// Package proto implements the orbsnake binary wire protocol: client-bound
// and server-bound message codecs, the octahedral direction packing, and the
// stateful delta-frame decoder.
//
// Every message starts with a 4-byte little-endian header
// {version:u8, type:u8, flags:u16}. The version must match exactly; there is
// no negotiation and no backward compatibility beyond bumping it. Decoding is
// pure and total: malformed, truncated, or wrong-version buffers yield nil
// and the caller drops the packet.
package proto

import (
	"orbsnake/client/internal/state"
)

// Version tracks the wire-protocol revision expected by the server.
const Version = 3

const headerSize = 4

// Client → server message type bytes.
const (
	TypeJoin    = 0x01
	TypeInput   = 0x02
	TypeRespawn = 0x03
	TypeView    = 0x04
)

// Server → client message type bytes.
const (
	TypeInit          = 0x10
	TypeState         = 0x11
	TypePlayerMeta    = 0x12
	TypePelletDelta   = 0x13
	TypePelletReset   = 0x14
	TypeStateDelta    = 0x15
	TypePelletConsume = 0x16
)

// Header flag bits, per message type.
const (
	flagJoinPlayerID = 1 << 0
	flagJoinName     = 1 << 1
	flagJoinDefer    = 1 << 2
	flagJoinSkin     = 1 << 3

	flagInputAxis = 1 << 0

	flagViewCenter   = 1 << 0
	flagViewRadius   = 1 << 1
	flagViewDistance = 1 << 2

	flagStateAck      = 1 << 0
	flagStateKeyframe = 1 << 1 // StateDelta only
)

// Quantization ranges declared by the protocol.
const (
	girthMin = 1.0
	girthMax = 2.0

	pelletSizeMin = 0.55
	pelletSizeMax = 2.85

	// View message ranges, radians for the radius and world units for the
	// camera distance.
	ViewRadiusMin     = 0.05
	ViewRadiusMax     = 1.6
	CameraDistanceMin = 1.2
	CameraDistanceMax = 6.0
)

// MaxSkinColors bounds the Join skin palette.
const MaxSkinColors = 8

// ServerMessage is the decoded form of one server → client packet.
type ServerMessage interface{ serverMessage() }

// InitMessage assigns the local player identity and carries the first full
// room snapshot.
type InitMessage struct {
	PlayerID   string
	LocalNetID uint16
	TickMs     uint16
	State      *state.GameStateSnapshot
}

// StateMessage carries one authoritative room snapshot. Delta reports whether
// it was reconstructed from a StateDelta frame, Keyframe whether that frame
// reset the decoder cache.
type StateMessage struct {
	State    *state.GameStateSnapshot
	Delta    bool
	Keyframe bool
}

// MetaEntry is one identity record in a PlayerMeta message.
type MetaEntry struct {
	NetID    uint16
	PlayerID string
	Meta     state.PlayerMeta
	// HexColor records that the entry used the string color path. Preserved
	// so the encoder can round-trip either protocol generation.
	HexColor bool
}

// PlayerMetaMessage updates the netId → identity table. The decoder has
// already folded the entries into the session's IdentityTable when this is
// returned.
type PlayerMetaMessage struct {
	Entries []MetaEntry
}

// PelletResetMessage replaces the entire pellet table.
type PelletResetMessage struct {
	Pellets []state.PelletSnapshot
}

// PelletDeltaMessage removes and adds individual pellets.
type PelletDeltaMessage struct {
	Removed []uint16
	Added   []state.PelletSnapshot
}

// PelletConsumeMessage animates one pellet into the eater before removal.
type PelletConsumeMessage struct {
	PelletID   uint16
	EaterNetID uint16
}

func (InitMessage) serverMessage()          {}
func (StateMessage) serverMessage()         {}
func (PlayerMetaMessage) serverMessage()    {}
func (PelletResetMessage) serverMessage()   {}
func (PelletDeltaMessage) serverMessage()   {}
func (PelletConsumeMessage) serverMessage() {}
