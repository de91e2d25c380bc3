package scheduling

import (
	"testing"
	"time"
)

func iv(startMin, endMin int) Interval {
	base := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	return Interval{
		Start: base.Add(time.Duration(startMin) * time.Minute),
		End:   base.Add(time.Duration(endMin) * time.Minute),
	}
}

func TestMergeIntervals(t *testing.T) {
	tests := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{
			name: "disjoint stay apart",
			in:   []Interval{iv(0, 30), iv(60, 90)},
			want: []Interval{iv(0, 30), iv(60, 90)},
		},
		{
			name: "overlapping merge",
			in:   []Interval{iv(0, 45), iv(30, 90)},
			want: []Interval{iv(0, 90)},
		},
		{
			name: "adjacent merge",
			in:   []Interval{iv(0, 30), iv(30, 60)},
			want: []Interval{iv(0, 60)},
		},
		{
			name: "unsorted input sorts first",
			in:   []Interval{iv(60, 90), iv(0, 30), iv(20, 70)},
			want: []Interval{iv(0, 90)},
		},
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeIntervals(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d intervals, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !got[i].Start.Equal(tt.want[i].Start) || !got[i].End.Equal(tt.want[i].End) {
					t.Fatalf("interval %d: got %v-%v, want %v-%v",
						i, got[i].Start, got[i].End, tt.want[i].Start, tt.want[i].End)
				}
			}
		})
	}
}

func TestIntervalOverlapsIsHalfOpen(t *testing.T) {
	a := iv(0, 30)
	b := iv(30, 60)

	if a.Overlaps(b) || b.Overlaps(a) {
		t.Fatal("touching intervals must not count as overlapping")
	}
	if !a.Overlaps(iv(29, 31)) {
		t.Fatal("expected overlap")
	}
}

func TestIntervalContains(t *testing.T) {
	win := iv(0, 60)

	if !win.Contains(iv(0, 60)) {
		t.Fatal("an interval contains itself")
	}
	if !win.Contains(iv(10, 50)) {
		t.Fatal("expected containment")
	}
	if win.Contains(iv(-5, 30)) || win.Contains(iv(30, 65)) {
		t.Fatal("spilling intervals must not be contained")
	}
}
