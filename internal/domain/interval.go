package domain

import (
	"sort"
	"time"
)

// Interval is a half-open UTC time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) IsEmpty() bool {
	return !iv.End.After(iv.Start)
}

// Overlaps reports whether the two half-open intervals share any instant.
// Touching endpoints do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// Contains reports whether other lies fully within iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Clamp restricts iv to bounds. The second return is false when nothing
// remains.
func (iv Interval) Clamp(bounds Interval) (Interval, bool) {
	out := iv
	if out.Start.Before(bounds.Start) {
		out.Start = bounds.Start
	}
	if out.End.After(bounds.End) {
		out.End = bounds.End
	}
	if out.IsEmpty() {
		return Interval{}, false
	}
	return out, true
}

// CoalesceIntervals sorts the intervals by start and merges overlapping or
// touching ones into maximal runs. Empty intervals are dropped. The input
// slice is not modified.
func CoalesceIntervals(ivs []Interval) []Interval {
	in := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if !iv.IsEmpty() {
			in = append(in, iv)
		}
	}
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool {
		if in[i].Start.Equal(in[j].Start) {
			return in[i].End.Before(in[j].End)
		}
		return in[i].Start.Before(in[j].Start)
	})

	out := make([]Interval, 0, len(in))
	cur := in[0]
	for _, iv := range in[1:] {
		if iv.Start.After(cur.End) {
			out = append(out, cur)
			cur = iv
			continue
		}
		if iv.End.After(cur.End) {
			cur.End = iv.End
		}
	}
	return append(out, cur)
}

// SubtractIntervals removes every interval in sub from the open set. open must
// be sorted and disjoint (the shape CoalesceIntervals produces); the result
// keeps that shape.
func SubtractIntervals(open, sub []Interval) []Interval {
	if len(sub) == 0 {
		return open
	}
	sub = CoalesceIntervals(sub)

	out := make([]Interval, 0, len(open))
	for _, iv := range open {
		remaining := iv
		for _, s := range sub {
			if !remaining.Overlaps(s) {
				continue
			}
			if s.Start.After(remaining.Start) {
				out = append(out, Interval{Start: remaining.Start, End: s.Start})
			}
			if s.End.Before(remaining.End) {
				remaining = Interval{Start: s.End, End: remaining.End}
			} else {
				remaining = Interval{}
				break
			}
		}
		if !remaining.IsEmpty() {
			out = append(out, remaining)
		}
	}
	return out
}

// ContainedInUnion reports whether probe lies fully inside one interval of a
// sorted, disjoint open set. Because the set is coalesced, containment in the
// union implies containment in a single interval.
func ContainedInUnion(open []Interval, probe Interval) bool {
	for _, iv := range open {
		if iv.Contains(probe) {
			return true
		}
		if iv.Start.After(probe.Start) {
			break
		}
	}
	return false
}

// MaxOverlap returns the maximum number of intervals simultaneously covering
// any instant within probe. Capacity is a concurrency bound, so this is a
// boundary sweep over the intersecting intervals, not a sum.
func MaxOverlap(ivs []Interval, probe Interval) int {
	type event struct {
		at    time.Time
		delta int
	}

	events := make([]event, 0, 2*len(ivs))
	for _, iv := range ivs {
		clamped, ok := iv.Clamp(probe)
		if !ok {
			continue
		}
		events = append(events, event{at: clamped.Start, delta: 1})
		events = append(events, event{at: clamped.End, delta: -1})
	}
	if len(events) == 0 {
		return 0
	}

	// Ends sort before starts at the same instant: half-open intervals that
	// touch do not overlap.
	sort.Slice(events, func(i, j int) bool {
		if events[i].at.Equal(events[j].at) {
			return events[i].delta < events[j].delta
		}
		return events[i].at.Before(events[j].at)
	})

	max, cur := 0, 0
	for _, ev := range events {
		cur += ev.delta
		if cur > max {
			max = cur
		}
	}
	return max
}
