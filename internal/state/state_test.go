package state

import (
	"testing"

	"orbsnake/client/internal/sphere"
)

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		in   string
		want Color
		ok   bool
	}{
		{"#000000", Color{}, true},
		{"#ffffff", Color{255, 255, 255}, true},
		{"#AbCdEf", Color{0xab, 0xcd, 0xef}, true},
		{"ffffff", Color{}, false},
		{"#fff", Color{}, false},
		{"#gggggg", Color{}, false},
		{"", Color{}, false},
	}
	for _, c := range cases {
		got, ok := ParseHexColor(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("ParseHexColor(%q) = %+v, %v; want %+v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestColorHexRoundTrip(t *testing.T) {
	c := Color{R: 18, G: 52, B: 86}
	got, ok := ParseHexColor(c.Hex())
	if !ok || got != c {
		t.Fatalf("round trip via %q gave %+v", c.Hex(), got)
	}
}

func TestIdentityTableResolve(t *testing.T) {
	tab := NewIdentityTable()
	if id, meta := tab.Resolve(5); id != "" || meta.Name != "" {
		t.Fatalf("unknown net id should resolve empty, got %q %+v", id, meta)
	}
	tab.Put(5, "abc", PlayerMeta{Name: "five"})
	if id, meta := tab.Resolve(5); id != "abc" || meta.Name != "five" {
		t.Fatalf("resolve after put: %q %+v", id, meta)
	}
	tab.Reset()
	if id, _ := tab.Resolve(5); id != "" {
		t.Fatalf("reset should drop entries, got %q", id)
	}
}

func TestPlayerSnapshotCloneDoesNotAlias(t *testing.T) {
	p := PlayerSnapshot{
		Snake:      []sphere.Vec{{Z: 1}, {X: 1}},
		Digestions: []Digestion{{ID: 1, Progress: 0.5}},
	}
	c := p.Clone()
	c.Snake[0] = sphere.Vec{Y: 1}
	c.Digestions[0].Progress = 0.9
	if p.Snake[0] != (sphere.Vec{Z: 1}) || p.Digestions[0].Progress != 0.5 {
		t.Fatalf("clone aliases the original: %+v", p)
	}
}

func TestGameStateSnapshotPlayerLookup(t *testing.T) {
	s := &GameStateSnapshot{Players: []PlayerSnapshot{{ID: "a"}, {ID: "b"}}}
	if got := s.Player("b"); got == nil || got.ID != "b" {
		t.Fatalf("lookup failed: %+v", got)
	}
	if got := s.Player("zz"); got != nil {
		t.Fatalf("expected nil for unknown id")
	}
	var nilSnap *GameStateSnapshot
	if got := nilSnap.Player("a"); got != nil {
		t.Fatalf("nil receiver should return nil")
	}
}
