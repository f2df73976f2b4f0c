// Package prediction holds the client-side prediction pipeline: the
// sequence-numbered input command buffer, the deterministic replay of
// unacknowledged inputs, and the soft/hard reconciliation of the predicted
// local snake against authoritative snapshots.
package prediction

import (
	"orbsnake/client/internal/sphere"
)

// Command is one outgoing steering input, owned by the buffer until it is
// acknowledged or pruned.
type Command struct {
	Seq      uint16
	SentAtMs int64
	Axis     *sphere.Vec
	Boost    bool
}

// IsInputSeqNewer reports whether a is newer than b under mod-2^16
// wraparound. Plain > breaks the moment the sequence wraps.
func IsInputSeqNewer(a, b uint16) bool {
	return int16(a-b) > 0
}

// Buffer queues unacknowledged input commands in send order.
type Buffer struct {
	cmds     []Command
	capacity int
	nextSeq  uint16
}

// NewBuffer returns a buffer that prunes its oldest entries past capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 64
	}
	return &Buffer{capacity: capacity}
}

// NextSeq hands out the next wrapping sequence number.
func (b *Buffer) NextSeq() uint16 {
	seq := b.nextSeq
	b.nextSeq++
	return seq
}

// Enqueue appends a command. If acks have stopped arriving and the buffer is
// over capacity the oldest unacknowledged commands are pruned; the count is
// returned so the caller can surface it, never silently.
func (b *Buffer) Enqueue(cmd Command) (overflowPruned int) {
	b.cmds = append(b.cmds, cmd)
	if excess := len(b.cmds) - b.capacity; excess > 0 {
		b.cmds = append(b.cmds[:0], b.cmds[excess:]...)
		return excess
	}
	return 0
}

// PruneAcked drops every command at or before ackSeq and returns how many
// were removed.
func (b *Buffer) PruneAcked(ackSeq uint16) int {
	kept := b.cmds[:0]
	for _, cmd := range b.cmds {
		if IsInputSeqNewer(cmd.Seq, ackSeq) {
			kept = append(kept, cmd)
		}
	}
	pruned := len(b.cmds) - len(kept)
	b.cmds = kept
	return pruned
}

// PendingAfter returns the buffered commands strictly newer than ackSeq, in
// send order. The returned slice aliases the buffer; callers must not hold
// it across mutations.
func (b *Buffer) PendingAfter(ackSeq uint16) []Command {
	for i, cmd := range b.cmds {
		if IsInputSeqNewer(cmd.Seq, ackSeq) {
			return b.cmds[i:]
		}
	}
	return nil
}

// Pending returns every buffered command in send order.
func (b *Buffer) Pending() []Command { return b.cmds }

// Size returns the number of buffered commands.
func (b *Buffer) Size() int { return len(b.cmds) }

// Reset drops everything, including the sequence counter. Used on reconnect.
func (b *Buffer) Reset() {
	b.cmds = b.cmds[:0]
	b.nextSeq = 0
}
