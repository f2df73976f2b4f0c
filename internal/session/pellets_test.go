package session

import (
	"testing"

	"orbsnake/client/internal/sphere"
	"orbsnake/client/internal/state"
)

func TestPelletTableLifecycle(t *testing.T) {
	tab := newPelletTable()
	tab.reset([]state.PelletSnapshot{
		{ID: 2, Dir: sphere.Vec{X: 1}, Size: 1},
		{ID: 1, Dir: sphere.Vec{Y: 1}, Size: 2},
	})
	if tab.size() != 2 {
		t.Fatalf("size %d", tab.size())
	}

	snap := tab.snapshot(0)
	if len(snap) != 2 || snap[0].ID != 1 || snap[1].ID != 2 {
		t.Fatalf("snapshot not id-ordered: %+v", snap)
	}

	tab.apply([]uint16{1}, []state.PelletSnapshot{{ID: 3, Dir: sphere.Vec{Z: 1}, Size: 1.5}})
	snap = tab.snapshot(0)
	if len(snap) != 2 || snap[0].ID != 2 || snap[1].ID != 3 {
		t.Fatalf("after delta: %+v", snap)
	}

	tab.reset(nil)
	if tab.size() != 0 || tab.snapshot(0) != nil {
		t.Fatalf("reset should empty the table")
	}
}

func TestPelletTableConsumeLingers(t *testing.T) {
	tab := newPelletTable()
	tab.reset([]state.PelletSnapshot{
		{ID: 2, Dir: sphere.Vec{X: 1}, Size: 1},
		{ID: 3, Dir: sphere.Vec{Z: 1}, Size: 1.5},
	})

	tab.consume(2, 7, 1000)
	tab.consume(99, 7, 1000) // unknown ids are ignored

	snap := tab.snapshot(1000)
	if len(snap) != 2 {
		t.Fatalf("consumed pellet dropped immediately: %+v", snap)
	}
	if !snap[0].Consumed || snap[0].EaterNetID != 7 {
		t.Fatalf("eater not recorded: %+v", snap[0])
	}
	if snap[1].Consumed {
		t.Fatalf("untouched pellet flagged: %+v", snap[1])
	}

	// Still visible inside the linger window, gone after.
	if snap = tab.snapshot(1000 + pelletLingerMs); len(snap) != 2 {
		t.Fatalf("pellet dropped inside linger window: %+v", snap)
	}
	snap = tab.snapshot(1000 + pelletLingerMs + 1)
	if len(snap) != 1 || snap[0].ID != 3 {
		t.Fatalf("pellet not pruned after linger window: %+v", snap)
	}

	// A removal delta takes a consumed pellet out immediately.
	tab.reset([]state.PelletSnapshot{{ID: 4, Dir: sphere.Vec{Y: 1}, Size: 1}})
	tab.consume(4, 7, 2000)
	tab.apply([]uint16{4}, nil)
	if snap = tab.snapshot(2000); snap != nil {
		t.Fatalf("removed pellet still present: %+v", snap)
	}
}
