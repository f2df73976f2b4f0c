package diag

import "testing"

func TestEventRingKeepsInsertionOrder(t *testing.T) {
	r := NewEventRing(4)
	r.Push("a", "")
	r.Push("b", "x")
	got := r.Recent()
	if len(got) != 2 || got[0].Kind != "a" || got[1].Kind != "b" || got[1].Detail != "x" {
		t.Fatalf("recent %+v", got)
	}
}

func TestEventRingEvictsOldest(t *testing.T) {
	r := NewEventRing(3)
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		r.Push(k, "")
	}
	got := r.Recent()
	if len(got) != 3 {
		t.Fatalf("len %d", len(got))
	}
	for i, want := range []string{"c", "d", "e"} {
		if got[i].Kind != want {
			t.Fatalf("recent[%d] = %q, want %q", i, got[i].Kind, want)
		}
	}
}

func TestEventRingDefaultCapacity(t *testing.T) {
	r := NewEventRing(0)
	for i := 0; i < 100; i++ {
		r.Push("k", "")
	}
	if got := len(r.Recent()); got != 64 {
		t.Fatalf("default capacity held %d", got)
	}
}
