package snapshot

import (
	"orbsnake/client/internal/sphere"
	"orbsnake/client/internal/state"
)

// BuildInterpolatedSnapshot evaluates a time-sorted snapshot list at the
// target server time: linear blend between the two bracketing snapshots, the
// oldest as-is before the window, extrapolation from the last pair beyond it
// (the caller caps the target time). The result is freshly allocated; the
// buffered snapshots are never aliased.
func BuildInterpolatedSnapshot(entries []state.TimedSnapshot, target int64) *state.GameStateSnapshot {
	if len(entries) == 0 {
		return nil
	}
	first := entries[0].State
	if target <= first.Now || len(entries) == 1 {
		if len(entries) == 1 && target > first.Now {
			return cloneAt(first, target)
		}
		return cloneAt(first, first.Now)
	}

	last := entries[len(entries)-1].State
	if target >= last.Now {
		// Extrapolate the last pair with f > 1.
		prev := entries[len(entries)-2].State
		return blend(prev, last, factor(prev.Now, last.Now, target), target)
	}

	for i := len(entries) - 1; i > 0; i-- {
		a := entries[i-1].State
		b := entries[i].State
		if target >= a.Now && target <= b.Now {
			return blend(a, b, factor(a.Now, b.Now, target), target)
		}
	}
	return cloneAt(last, target)
}

func factor(a, b, t int64) float64 {
	if b <= a {
		return 1
	}
	return float64(t-a) / float64(b-a)
}

// blend linearly mixes two snapshots. Players are matched by id from the
// newer side so joins and leaves resolve toward b; directions slerp along
// the sphere, scalars lerp, discrete fields stick to the nearer endpoint.
func blend(a, b *state.GameStateSnapshot, f float64, target int64) *state.GameStateSnapshot {
	out := &state.GameStateSnapshot{
		Now:          target,
		Seq:          b.Seq,
		TotalPlayers: b.TotalPlayers,
		AckInputSeq:  b.AckInputSeq,
		Players:      make([]state.PlayerSnapshot, 0, len(b.Players)),
		Pellets:      append([]state.PelletSnapshot(nil), b.Pellets...),
	}
	for i := range b.Players {
		pb := &b.Players[i]
		pa := a.Player(pb.ID)
		if pa == nil {
			out.Players = append(out.Players, pb.Clone())
			continue
		}
		out.Players = append(out.Players, blendPlayer(pa, pb, f))
	}
	return out
}

func blendPlayer(a, b *state.PlayerSnapshot, f float64) state.PlayerSnapshot {
	near := b
	if f < 0.5 {
		near = a
	}
	out := near.Clone()
	out.ID = b.ID
	out.Name = b.Name
	out.Color = b.Color
	out.Score = b.Score
	out.ScoreFraction = lerp(a.ScoreFraction, b.ScoreFraction, f)
	out.Oxygen = lerp(a.Oxygen, b.Oxygen, f)
	out.TailExtension = lerp(a.TailExtension, b.TailExtension, f)
	out.GirthScale = lerp(a.GirthScale, b.GirthScale, f)
	out.Snake = blendSnake(a.Snake, b.Snake, f)
	out.SnakeDetail = b.SnakeDetail
	out.SnakeStart = b.SnakeStart
	out.SnakeTotalLen = b.SnakeTotalLen
	return out
}

// blendSnake slerps paired body points; points only one side has come from
// the newer body.
func blendSnake(a, b []sphere.Vec, f float64) []sphere.Vec {
	n := len(b)
	out := make([]sphere.Vec, 0, n)
	shared := len(a)
	if n < shared {
		shared = n
	}
	for i := 0; i < shared; i++ {
		out = append(out, sphere.Slerp(a[i], b[i], f))
	}
	out = append(out, b[shared:]...)
	return out
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }

func cloneAt(s *state.GameStateSnapshot, now int64) *state.GameStateSnapshot {
	out := &state.GameStateSnapshot{
		Now:          now,
		Seq:          s.Seq,
		TotalPlayers: s.TotalPlayers,
		AckInputSeq:  s.AckInputSeq,
		Players:      make([]state.PlayerSnapshot, 0, len(s.Players)),
		Pellets:      append([]state.PelletSnapshot(nil), s.Pellets...),
	}
	for i := range s.Players {
		out.Players = append(out.Players, s.Players[i].Clone())
	}
	return out
}
