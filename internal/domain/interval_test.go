package domain

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func TestCoalesceIntervals_MergesTouchingAndOverlapping(t *testing.T) {
	got := CoalesceIntervals([]Interval{
		{Start: at(13, 0), End: at(14, 0)},
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(10, 0), End: at(11, 0)},
		{Start: at(9, 30), End: at(9, 45)},
	})

	want := []Interval{
		{Start: at(9, 0), End: at(11, 0)},
		{Start: at(13, 0), End: at(14, 0)},
	}
	assertIntervals(t, got, want)
}

func TestCoalesceIntervals_DropsEmpty(t *testing.T) {
	got := CoalesceIntervals([]Interval{
		{Start: at(10, 0), End: at(10, 0)},
		{Start: at(11, 0), End: at(10, 0)},
	})
	if len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}

func TestSubtractIntervals_SplitsAroundBlock(t *testing.T) {
	open := []Interval{{Start: at(8, 0), End: at(17, 0)}}
	got := SubtractIntervals(open, []Interval{{Start: at(12, 0), End: at(13, 0)}})

	want := []Interval{
		{Start: at(8, 0), End: at(12, 0)},
		{Start: at(13, 0), End: at(17, 0)},
	}
	assertIntervals(t, got, want)
}

func TestSubtractIntervals_RemovesFullyCovered(t *testing.T) {
	open := []Interval{
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(11, 0), End: at(12, 0)},
	}
	got := SubtractIntervals(open, []Interval{{Start: at(8, 0), End: at(10, 30)}})

	want := []Interval{{Start: at(11, 0), End: at(12, 0)}}
	assertIntervals(t, got, want)
}

func TestSubtractIntervals_TrimsEdges(t *testing.T) {
	open := []Interval{{Start: at(9, 0), End: at(12, 0)}}
	got := SubtractIntervals(open, []Interval{
		{Start: at(8, 0), End: at(9, 30)},
		{Start: at(11, 30), End: at(13, 0)},
	})

	want := []Interval{{Start: at(9, 30), End: at(11, 30)}}
	assertIntervals(t, got, want)
}

func TestContainedInUnion(t *testing.T) {
	open := []Interval{
		{Start: at(8, 0), End: at(10, 30)},
		{Start: at(13, 0), End: at(17, 0)},
	}

	if !ContainedInUnion(open, Interval{Start: at(9, 0), End: at(10, 30)}) {
		t.Fatalf("expected containment for window inside first interval")
	}
	// Partial overlap is not containment: the window runs past the open end.
	if ContainedInUnion(open, Interval{Start: at(9, 0), End: at(11, 0)}) {
		t.Fatalf("expected no containment for window running past open end")
	}
	if ContainedInUnion(open, Interval{Start: at(11, 0), End: at(12, 0)}) {
		t.Fatalf("expected no containment for window in the gap")
	}
}

func TestMaxOverlap_CountsConcurrencyNotSum(t *testing.T) {
	// Three reservations, pairwise overlapping only in twos.
	ivs := []Interval{
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(9, 30), End: at(10, 30)},
		{Start: at(10, 0), End: at(11, 0)},
	}
	probe := Interval{Start: at(9, 0), End: at(11, 0)}

	if got := MaxOverlap(ivs, probe); got != 2 {
		t.Fatalf("MaxOverlap = %d, want 2", got)
	}
}

func TestMaxOverlap_TouchingIntervalsDoNotStack(t *testing.T) {
	ivs := []Interval{
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(10, 0), End: at(11, 0)},
	}
	probe := Interval{Start: at(9, 0), End: at(11, 0)}

	if got := MaxOverlap(ivs, probe); got != 1 {
		t.Fatalf("MaxOverlap = %d, want 1", got)
	}
}

func TestMaxOverlap_IgnoresIntervalsOutsideProbe(t *testing.T) {
	ivs := []Interval{
		{Start: at(7, 0), End: at(8, 0)},
		{Start: at(9, 0), End: at(10, 0)},
	}
	probe := Interval{Start: at(9, 30), End: at(9, 45)}

	if got := MaxOverlap(ivs, probe); got != 1 {
		t.Fatalf("MaxOverlap = %d, want 1", got)
	}
}

func assertIntervals(t *testing.T, got, want []Interval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (got %v)", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Fatalf("interval %d = [%v, %v), want [%v, %v)", i, got[i].Start, got[i].End, want[i].Start, want[i].End)
		}
	}
}
