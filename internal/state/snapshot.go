package state

import "orbsnake/client/internal/sphere"

// SnakeDetail describes how much of a snake body a snapshot carries.
type SnakeDetail uint8

const (
	// SnakeDetailStub carries only the head direction.
	SnakeDetailStub SnakeDetail = iota
	// SnakeDetailWindow carries a contiguous slice of the body.
	SnakeDetailWindow
	// SnakeDetailFull carries every body point.
	SnakeDetailFull
)

func (d SnakeDetail) String() string {
	switch d {
	case SnakeDetailStub:
		return "stub"
	case SnakeDetailWindow:
		return "window"
	case SnakeDetailFull:
		return "full"
	}
	return "unknown"
}

// Digestion is a food bulge travelling down a snake body.
type Digestion struct {
	ID       uint16  `json:"id"`
	Progress float64 `json:"progress"`
	Strength float64 `json:"strength"`
}

// PlayerSnapshot is one player's authoritative state at a single tick. Snake
// points are unit-sphere directions ordered head first.
type PlayerSnapshot struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Color         Color        `json:"color"`
	Score         int32        `json:"score"`
	ScoreFraction float64      `json:"scoreFraction"`
	Oxygen        float64      `json:"oxygen"`
	TailExtension float64      `json:"tailExtension"`
	GirthScale    float64      `json:"girthScale"`
	Alive         bool         `json:"alive"`
	Boosting      bool         `json:"boosting"`
	Snake         []sphere.Vec `json:"snake"`
	SnakeDetail   SnakeDetail  `json:"snakeDetail"`
	SnakeStart    uint16       `json:"snakeStart"`
	SnakeTotalLen uint16       `json:"snakeTotalLen"`
	Digestions    []Digestion  `json:"digestions,omitempty"`
}

// Clone deep-copies the snapshot so callers can mutate without aliasing the
// decoder cache.
func (p PlayerSnapshot) Clone() PlayerSnapshot {
	out := p
	if p.Snake != nil {
		out.Snake = append([]sphere.Vec(nil), p.Snake...)
	}
	if p.Digestions != nil {
		out.Digestions = append([]Digestion(nil), p.Digestions...)
	}
	return out
}

// PelletSnapshot is one food pellet on the sphere surface. A consumed pellet
// lingers briefly with Consumed set so the renderer can animate it toward
// EaterNetID's snake before it disappears.
type PelletSnapshot struct {
	ID         uint16     `json:"id"`
	Dir        sphere.Vec `json:"dir"`
	Size       float64    `json:"size"`
	Consumed   bool       `json:"consumed,omitempty"`
	EaterNetID uint16     `json:"eaterNetId,omitempty"`
}

// GameStateSnapshot is one authoritative room tick as seen by this client.
type GameStateSnapshot struct {
	Now          int64            `json:"now"`
	Seq          uint32           `json:"seq"`
	TotalPlayers uint16           `json:"totalPlayers"`
	AckInputSeq  *uint16          `json:"ackInputSeq,omitempty"`
	Players      []PlayerSnapshot `json:"players"`
	Pellets      []PelletSnapshot `json:"pellets,omitempty"`
}

// Player returns the snapshot entry for the given player id, or nil.
func (s *GameStateSnapshot) Player(id string) *PlayerSnapshot {
	if s == nil {
		return nil
	}
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// TimedSnapshot pairs an authoritative snapshot with its client arrival time.
// Buffers sort by State.Now (server time), not by arrival.
type TimedSnapshot struct {
	State      *GameStateSnapshot
	ReceivedAt int64
}
