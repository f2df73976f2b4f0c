package prediction

import "testing"

func TestIsInputSeqNewer(t *testing.T) {
	cases := []struct {
		a, b uint16
		want bool
	}{
		{1, 0, true},
		{0, 1, false},
		{5, 5, false},
		{0, 65535, true},  // wraparound: 0 succeeds 65535
		{65535, 0, false},
		{32768, 0, false}, // exactly half the space away is not newer
		{32767, 0, true},
	}
	for _, c := range cases {
		if got := IsInputSeqNewer(c.a, c.b); got != c.want {
			t.Fatalf("IsInputSeqNewer(%d, %d) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestBufferPruneAcked(t *testing.T) {
	b := NewBuffer(16)
	for seq := uint16(1); seq <= 5; seq++ {
		b.Enqueue(Command{Seq: seq})
	}
	if pruned := b.PruneAcked(3); pruned != 3 {
		t.Fatalf("pruned %d, want 3", pruned)
	}
	pending := b.Pending()
	if len(pending) != 2 || pending[0].Seq != 4 || pending[1].Seq != 5 {
		t.Fatalf("pending %+v", pending)
	}
}

func TestBufferPruneAckedAcrossWraparound(t *testing.T) {
	b := NewBuffer(16)
	for _, seq := range []uint16{65534, 65535, 0, 1} {
		b.Enqueue(Command{Seq: seq})
	}
	if pruned := b.PruneAcked(65535); pruned != 2 {
		t.Fatalf("pruned %d, want 2", pruned)
	}
	pending := b.Pending()
	if len(pending) != 2 || pending[0].Seq != 0 || pending[1].Seq != 1 {
		t.Fatalf("pending %+v", pending)
	}
}

func TestBufferOverflowPrunesOldest(t *testing.T) {
	b := NewBuffer(4)
	var pruned int
	for seq := uint16(1); seq <= 6; seq++ {
		pruned += b.Enqueue(Command{Seq: seq})
	}
	if pruned != 2 {
		t.Fatalf("overflow pruned %d, want 2", pruned)
	}
	pending := b.Pending()
	if len(pending) != 4 || pending[0].Seq != 3 || pending[3].Seq != 6 {
		t.Fatalf("pending %+v", pending)
	}
}

func TestBufferPendingAfter(t *testing.T) {
	b := NewBuffer(16)
	for seq := uint16(10); seq <= 14; seq++ {
		b.Enqueue(Command{Seq: seq})
	}
	after := b.PendingAfter(12)
	if len(after) != 2 || after[0].Seq != 13 {
		t.Fatalf("pending after 12: %+v", after)
	}
	if got := b.PendingAfter(14); got != nil {
		t.Fatalf("expected nil when everything is acked, got %+v", got)
	}
	if b.Size() != 5 {
		t.Fatalf("PendingAfter must not mutate, size %d", b.Size())
	}
}

func TestBufferNextSeqWrapsAndResets(t *testing.T) {
	b := NewBuffer(4)
	b.nextSeq = 65535
	if got := b.NextSeq(); got != 65535 {
		t.Fatalf("NextSeq = %d", got)
	}
	if got := b.NextSeq(); got != 0 {
		t.Fatalf("NextSeq after wrap = %d", got)
	}
	b.Enqueue(Command{Seq: 0})
	b.Reset()
	if b.Size() != 0 || b.NextSeq() != 0 {
		t.Fatalf("reset did not clear buffer state")
	}
}
