package violajones_test

import (
	"reflect"
	"testing"

	violajones "github.com/trackgo/violajones/core"
)

func TestMerge_OverlappingRectanglesShouldCollapse(t *testing.T) {
	rects := []violajones.Rectangle{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 5, Y: 5, Width: 10, Height: 10},
	}
	// The shifted copies overlap by 25 of 100 pixels, so both normalized
	// ratios evaluate to 0.25.
	merged := violajones.MergeRectangles(rects, 0.2)

	if len(merged) != 1 {
		t.Fatalf("expected a single merged rectangle, got %d", len(merged))
	}
	got := merged[0]
	if got.Total != 2 {
		t.Fatalf("merged rectangle should count 2 members, got %d", got.Total)
	}
	if got.X != 3 || got.Y != 3 {
		t.Fatalf("merged corner should be the rounded mean (3, 3), got (%d, %d)", got.X, got.Y)
	}
	if got.Width != 10 || got.Height != 10 {
		t.Fatalf("merged extents should stay 10x10, got %dx%d", got.Width, got.Height)
	}
}

func TestMerge_DisjointRectanglesShouldStaySeparate(t *testing.T) {
	rects := []violajones.Rectangle{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 20, Y: 20, Width: 5, Height: 5},
	}
	merged := violajones.MergeRectangles(rects, 0.5)

	if len(merged) != 2 {
		t.Fatalf("expected 2 separate rectangles, got %d", len(merged))
	}
	for i, r := range merged {
		if r.Total != 1 {
			t.Fatalf("rectangle %d should count a single member, got %d", i, r.Total)
		}
		if r.X != rects[i].X || r.Y != rects[i].Y || r.Width != rects[i].Width || r.Height != rects[i].Height {
			t.Fatalf("rectangle %d should keep its coordinates, got %+v", i, r)
		}
	}
}

func TestMerge_EmptyInputShouldYieldEmptyOutput(t *testing.T) {
	merged := violajones.MergeRectangles(nil, 0.5)
	if len(merged) != 0 {
		t.Fatalf("expected no rectangles, got %d", len(merged))
	}
}

func TestMerge_ShouldBeIdempotentOnItsOwnOutput(t *testing.T) {
	rects := []violajones.Rectangle{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 2, Y: 2, Width: 10, Height: 10},
		{X: 40, Y: 40, Width: 12, Height: 12},
	}
	merged := violajones.MergeRectangles(rects, 0.5)

	// Feed the merged output back in as unit detections. With a 0.5 overlap
	// requirement only identical rectangles can merge, so the geometry must
	// come out unchanged.
	rerun := make([]violajones.Rectangle, len(merged))
	for i, r := range merged {
		rerun[i] = violajones.Rectangle{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
	}
	remerged := violajones.MergeRectangles(rerun, 0.5)

	if len(remerged) != len(merged) {
		t.Fatalf("re-merging changed the cluster count: %d vs %d", len(remerged), len(merged))
	}
	for i := range merged {
		if remerged[i].X != merged[i].X || remerged[i].Y != merged[i].Y ||
			remerged[i].Width != merged[i].Width || remerged[i].Height != merged[i].Height {
			t.Fatalf("re-merging changed rectangle %d: %+v vs %+v", i, remerged[i], merged[i])
		}
	}
}

func TestMerge_TouchingRectanglesShouldNotCollapse(t *testing.T) {
	// Boundary touching counts as an intersection but carries zero overlap
	// area, so the pair never reaches the overlap requirement.
	rects := []violajones.Rectangle{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 10, Y: 0, Width: 10, Height: 10},
	}
	merged := violajones.MergeRectangles(rects, 0.5)
	if len(merged) != 2 {
		t.Fatalf("touching rectangles should stay separate, got %d cluster(s)", len(merged))
	}
}

func TestMerge_IdenticalRectanglesShouldAverageToThemselves(t *testing.T) {
	rect := violajones.Rectangle{X: 7, Y: 9, Width: 24, Height: 24}
	merged := violajones.MergeRectangles([]violajones.Rectangle{rect, rect, rect}, 0.5)

	want := violajones.Rectangle{X: 7, Y: 9, Width: 24, Height: 24, Total: 3}
	if !reflect.DeepEqual(merged, []violajones.Rectangle{want}) {
		t.Fatalf("expected %+v, got %+v", want, merged)
	}
}
