package session

import (
	"sort"

	"orbsnake/client/internal/state"
)

// How long a consumed pellet stays in render snapshots (flagged, with its
// eater) before it is dropped. Long enough for the eat animation, short
// enough that a missed removal delta cannot strand it.
const pelletLingerMs = 250

// pelletTable is the client-side pellet set, maintained from PelletReset /
// PelletDelta / PelletConsume messages and stamped into render snapshots.
// Owned by the session, accessed under its lock.
type pelletTable struct {
	pellets  map[uint16]state.PelletSnapshot
	consumed map[uint16]int64 // pellet id -> consume time (ms)
}

func newPelletTable() *pelletTable {
	return &pelletTable{
		pellets:  make(map[uint16]state.PelletSnapshot),
		consumed: make(map[uint16]int64),
	}
}

func (t *pelletTable) reset(pellets []state.PelletSnapshot) {
	t.pellets = make(map[uint16]state.PelletSnapshot, len(pellets))
	t.consumed = make(map[uint16]int64)
	for _, p := range pellets {
		t.pellets[p.ID] = p
	}
}

func (t *pelletTable) apply(removed []uint16, added []state.PelletSnapshot) {
	for _, id := range removed {
		delete(t.pellets, id)
		delete(t.consumed, id)
	}
	for _, p := range added {
		t.pellets[p.ID] = p
		delete(t.consumed, p.ID)
	}
}

// consume marks the pellet as eaten instead of dropping it outright: it
// stays in snapshots with the eater reference until the linger window
// passes or a later delta removes it.
func (t *pelletTable) consume(id, eaterNetID uint16, nowMs int64) {
	p, ok := t.pellets[id]
	if !ok {
		return
	}
	p.Consumed = true
	p.EaterNetID = eaterNetID
	t.pellets[id] = p
	t.consumed[id] = nowMs
}

func (t *pelletTable) size() int { return len(t.pellets) }

// snapshot drops consumed pellets past the linger window, then returns the
// rest ordered by id so output is deterministic.
func (t *pelletTable) snapshot(nowMs int64) []state.PelletSnapshot {
	for id, at := range t.consumed {
		if nowMs-at > pelletLingerMs {
			delete(t.pellets, id)
			delete(t.consumed, id)
		}
	}
	if len(t.pellets) == 0 {
		return nil
	}
	out := make([]state.PelletSnapshot, 0, len(t.pellets))
	for _, p := range t.pellets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
