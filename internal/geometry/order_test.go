package geometry

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOrderPoints_AxisAlignedRectangle(t *testing.T) {
	want := Quad{{10, 20}, {110, 20}, {110, 80}, {10, 80}}

	// Every permutation of the input must produce the same labels.
	perms := [][]int{
		{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1},
		{1, 0, 3, 2}, {0, 2, 1, 3}, {3, 0, 2, 1}, {2, 3, 1, 0},
	}
	for _, perm := range perms {
		pts := make([]Point, 4)
		for i, idx := range perm {
			pts[i] = want[idx]
		}

		got, err := OrderPoints(pts)
		if err != nil {
			t.Fatalf("OrderPoints(%v) failed: %v", pts, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("OrderPoints(%v) mismatch (-want +got):\n%s", pts, diff)
		}
	}
}

func TestOrderPoints_SkewedDocument(t *testing.T) {
	pts := []Point{{460, 460}, {40, 440}, {50, 50}, {450, 60}}

	got, err := OrderPoints(pts)
	if err != nil {
		t.Fatalf("OrderPoints failed: %v", err)
	}

	if got.TL() != Pt(50, 50) {
		t.Errorf("TL: got %v, want (50, 50)", got.TL())
	}
	if got.TR() != Pt(450, 60) {
		t.Errorf("TR: got %v, want (450, 60)", got.TR())
	}
	if got.BR() != Pt(460, 460) {
		t.Errorf("BR: got %v, want (460, 460)", got.BR())
	}
	if got.BL() != Pt(40, 440) {
		t.Errorf("BL: got %v, want (40, 440)", got.BL())
	}
}

func TestOrderPoints_IsPermutation(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
	}{
		{"photo of receipt", []Point{{73, 239}, {356, 117}, {475, 265}, {187, 443}}},
		{"slight rotation", []Point{{12, 30}, {402, 8}, {421, 596}, {3, 610}}},
		{"trapezoid", []Point{{100, 0}, {200, 0}, {300, 100}, {0, 100}}},
		{"fractional", []Point{{0.5, 0.25}, {9.75, 1.5}, {10.25, 7.5}, {0.1, 8.9}}},
	}

	less := func(a, b Point) bool {
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OrderPoints(tt.pts)
			if err != nil {
				t.Fatalf("OrderPoints failed: %v", err)
			}

			in := append([]Point(nil), tt.pts...)
			out := got.Points()
			sort.Slice(in, func(i, j int) bool { return less(in[i], in[j]) })
			sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })

			if diff := cmp.Diff(in, out); diff != "" {
				t.Errorf("output is not a permutation of input (-in +out):\n%s", diff)
			}
		})
	}
}

func TestOrderPoints_TiesResolveToFirst(t *testing.T) {
	// A square rotated by 45 degrees: two points share the minimum sum and
	// two share the minimum diff. The first one in input order must win.
	pts := []Point{{1, 0}, {2, 1}, {1, 2}, {0, 1}}

	got, err := OrderPoints(pts)
	if err != nil {
		t.Fatalf("OrderPoints failed: %v", err)
	}

	want := Quad{{1, 0}, {1, 0}, {2, 1}, {1, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tie handling mismatch (-want +got):\n%s", diff)
	}

	// No coordinates are ever synthesized.
	for _, p := range got {
		found := false
		for _, in := range pts {
			if p == in {
				found = true
			}
		}
		if !found {
			t.Errorf("output point %v is not an input point", p)
		}
	}
}

func TestOrderPoints_InvalidCount(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
	}{
		{"nil", nil},
		{"three", []Point{{0, 0}, {1, 0}, {1, 1}}},
		{"five", []Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {2, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OrderPoints(tt.pts)
			if !errors.Is(err, ErrInvalidPointCount) {
				t.Errorf("expected ErrInvalidPointCount, got %v", err)
			}
		})
	}
}

func TestOrderPoints_DegenerateDoesNotPanic(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
	}{
		{"coincident", []Point{{5, 5}, {5, 5}, {5, 5}, {5, 5}}},
		{"collinear", []Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OrderPoints(tt.pts); err != nil {
				t.Errorf("OrderPoints should label degenerate input, got %v", err)
			}
		})
	}
}

func TestRectQuad(t *testing.T) {
	got := RectQuad(4, 3)
	want := Quad{{0, 0}, {4, 0}, {4, 3}, {0, 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RectQuad mismatch (-want +got):\n%s", diff)
	}
}
