package proto

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/google/uuid"

	"orbsnake/client/internal/sphere"
)

// reader walks a buffer little-endian and fails closed: the first underrun or
// inconsistency latches bad, every later read returns zeros, and the caller
// checks ok() once at the end instead of threading error returns through
// every field.
type reader struct {
	buf []byte
	off int
	bad bool
}

func newReader(buf []byte) *reader { return &reader{buf: buf} }

func (r *reader) ok() bool { return !r.bad }

func (r *reader) fail() { r.bad = true }

func (r *reader) need(n int) bool {
	if r.bad || n < 0 || r.off+n > len(r.buf) {
		r.bad = true
		return false
	}
	return true
}

func (r *reader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) bool8() bool { return r.u8() != 0 }

func (r *reader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) i16() int16 { return int16(r.u16()) }

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) i32() int32 { return int32(r.u32()) }

func (r *reader) i64() int64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return int64(v)
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v
}

// str8 reads a u8 length prefix followed by that many UTF-8 bytes.
func (r *reader) str8() string {
	n := int(r.u8())
	b := r.bytes(n)
	if r.bad {
		return ""
	}
	return string(b)
}

// uuid reads 16 raw bytes and renders the canonical string form.
func (r *reader) uuid() string {
	b := r.bytes(16)
	if r.bad {
		return ""
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		r.fail()
		return ""
	}
	return id.String()
}

// varZig reads a zigzag varint: 7 payload bits per byte, high bit continues,
// at most 5 bytes (enough for 32 bits of magnitude). A fifth byte with the
// continuation bit set is malformed.
func (r *reader) varZig() int32 {
	var raw uint32
	for i := 0; i < 5; i++ {
		b := r.u8()
		if r.bad {
			return 0
		}
		raw |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int32(raw>>1) ^ -int32(raw&1)
		}
	}
	r.fail()
	return 0
}

// oct reads a two-i16 octahedral-packed unit direction.
func (r *reader) oct() sphere.Vec {
	x := r.i16()
	y := r.i16()
	if r.bad {
		return sphere.Vec{}
	}
	return decodeOct(x, y)
}

// writer builds a buffer little-endian. It never fails; encoders validate
// their inputs before writing.
type writer struct {
	buf []byte
}

func newWriter(capacity int) *writer {
	return &writer{buf: make([]byte, 0, capacity)}
}

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) bool8(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *writer) i16(v int16) { w.u16(uint16(v)) }

func (w *writer) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) i32(v int32) { w.u32(uint32(v)) }

func (w *writer) i64(v int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
}

func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }

// str8 writes a u8 length prefix and at most 255 bytes of UTF-8, truncating
// at a whole-codepoint boundary when the string is longer.
func (w *writer) str8(s string) {
	b := truncateUTF8(s, 255)
	w.u8(uint8(len(b)))
	w.bytes(b)
}

// uuid writes the 16 raw bytes of the id, or all zeros if it does not parse.
func (w *writer) uuid(id string) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		w.bytes(make([]byte, 16))
		return
	}
	w.bytes(parsed[:])
}

func (w *writer) varZig(v int32) {
	raw := uint32(v<<1) ^ uint32(v>>31)
	for {
		b := uint8(raw & 0x7f)
		raw >>= 7
		if raw == 0 {
			w.u8(b)
			return
		}
		w.u8(b | 0x80)
	}
}

func (w *writer) oct(v sphere.Vec) {
	x, y := encodeOct(v)
	w.i16(x)
	w.i16(y)
}

func truncateUTF8(s string, max int) []byte {
	if len(s) <= max {
		return []byte(s)
	}
	b := []byte(s)[:max]
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return b
}
