package proto

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestVarZigRoundTrip(t *testing.T) {
	cases := []int32{0, 1, -1, 2, -2, 63, 64, -64, -65, 300, -300, math.MaxInt32, math.MinInt32}
	for _, v := range cases {
		w := newWriter(8)
		w.varZig(v)
		r := newReader(w.buf)
		got := r.varZig()
		if !r.ok() || got != v {
			t.Fatalf("varZig(%d): got %d ok=%v", v, got, r.ok())
		}
		if r.off != len(w.buf) {
			t.Fatalf("varZig(%d): %d bytes unread", v, len(w.buf)-r.off)
		}
	}
}

func TestVarZigRejectsOverlongEncoding(t *testing.T) {
	r := newReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00})
	r.varZig()
	if r.ok() {
		t.Fatalf("fifth continuation byte should fail the reader")
	}
}

func TestVarZigTruncated(t *testing.T) {
	r := newReader([]byte{0x80})
	r.varZig()
	if r.ok() {
		t.Fatalf("truncated varint should fail the reader")
	}
}

func TestStr8TruncatesAtCodepointBoundary(t *testing.T) {
	// 2-byte runes: 255 is odd, so the truncated payload must back off to 254.
	long := strings.Repeat("é", 200)
	w := newWriter(260)
	w.str8(long)
	r := newReader(w.buf)
	got := r.str8()
	if !r.ok() {
		t.Fatalf("decode failed")
	}
	if len(got) != 254 {
		t.Fatalf("expected 254 payload bytes, got %d", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a codepoint")
	}
	if !strings.HasPrefix(long, got) {
		t.Fatalf("truncated string is not a prefix of the original")
	}
}

func TestReaderFailsClosedAfterUnderrun(t *testing.T) {
	r := newReader([]byte{0x01})
	r.u16()
	if r.ok() {
		t.Fatalf("u16 on one byte should fail")
	}
	if v := r.u8(); v != 0 {
		t.Fatalf("reads after failure must return zero, got %d", v)
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	const id = "8f14e45f-ceea-4f3c-8a1b-2c3d4e5f6a7b"
	w := newWriter(16)
	w.uuid(id)
	if len(w.buf) != 16 {
		t.Fatalf("uuid should be 16 raw bytes, got %d", len(w.buf))
	}
	r := newReader(w.buf)
	if got := r.uuid(); got != id {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestUUIDUnparseableWritesZeros(t *testing.T) {
	w := newWriter(16)
	w.uuid("not-a-uuid")
	for _, b := range w.buf {
		if b != 0 {
			t.Fatalf("expected all zero bytes, got % x", w.buf)
		}
	}
}
