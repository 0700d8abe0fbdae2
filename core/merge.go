package violajones

// Rectangle is a detection result. X and Y locate the top-left corner in
// pixel units. Total reports how many raw detection windows were merged into
// this rectangle; it is 1 for an unmerged detection.
type Rectangle struct {
	X      int
	Y      int
	Width  int
	Height int
	Total  int
}

// disjointSet tracks a partition of n elements. It lives for the duration of
// one merge call only.
type disjointSet struct {
	parent []int
}

func newDisjointSet(n int) *disjointSet {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &disjointSet{parent: parent}
}

// find returns the representative of the set containing i, compressing the
// path so every visited element points at the representative afterwards.
func (ds *disjointSet) find(i int) int {
	root := i
	for ds.parent[root] != root {
		root = ds.parent[root]
	}
	for ds.parent[i] != root {
		ds.parent[i], i = root, ds.parent[i]
	}
	return root
}

func (ds *disjointSet) union(i, j int) {
	ri, rj := ds.find(i), ds.find(j)
	if ri != rj {
		ds.parent[rj] = ri
	}
}

// rectsIntersect reports whether two axis-aligned rectangles given by their
// corner coordinates intersect. Touching boundaries count as intersecting.
func rectsIntersect(ax0, ay0, ax1, ay1, bx0, by0, bx1, by1 int) bool {
	return !(ax1 < bx0 || bx1 < ax0 || ay1 < by0 || by1 < ay0)
}

// MergeRectangles clusters overlapping raw detection rectangles and averages
// each cluster into a single result. Two rectangles end up in the same
// cluster when the overlap of their bounding boxes, normalized by
// area1*(area1/area2) respectively area2*(area1/area2), reaches minOverlap
// both ways. Both normalizations intentionally share the area1/area2 factor,
// matching the reference detector; clustering would change if either were
// replaced by a plain overlap/area ratio.
//
// The order of the returned rectangles carries no meaning.
func MergeRectangles(rects []Rectangle, minOverlap float64) []Rectangle {
	ds := newDisjointSet(len(rects))

	for i := 0; i < len(rects); i++ {
		r1 := rects[i]
		for j := 0; j < len(rects); j++ {
			r2 := rects[j]
			if !rectsIntersect(
				r1.X, r1.Y, r1.X+r1.Width, r1.Y+r1.Height,
				r2.X, r2.Y, r2.X+r2.Width, r2.Y+r2.Height) {
				continue
			}

			x1 := maxInt(r1.X, r2.X)
			y1 := maxInt(r1.Y, r2.Y)
			x2 := minInt(r1.X+r1.Width, r2.X+r2.Width)
			y2 := minInt(r1.Y+r1.Height, r2.Y+r2.Height)
			overlap := float64((x2 - x1) * (y2 - y1))
			area1 := float64(r1.Width * r1.Height)
			area2 := float64(r2.Width * r2.Height)

			if overlap/(area1*(area1/area2)) >= minOverlap &&
				overlap/(area2*(area1/area2)) >= minOverlap {
				ds.union(i, j)
			}
		}
	}

	type cluster struct {
		total  int
		x      int
		y      int
		width  int
		height int
	}
	clusters := make(map[int]*cluster)
	order := make([]int, 0, len(rects))

	for k := range rects {
		rep := ds.find(k)
		c, ok := clusters[rep]
		if !ok {
			c = &cluster{}
			clusters[rep] = c
			order = append(order, rep)
		}
		c.total++
		c.x += rects[k].X
		c.y += rects[k].Y
		c.width += rects[k].Width
		c.height += rects[k].Height
	}

	merged := make([]Rectangle, 0, len(order))
	for _, rep := range order {
		c := clusters[rep]
		merged = append(merged, Rectangle{
			X:      roundDiv(c.x, c.total),
			Y:      roundDiv(c.y, c.total),
			Width:  roundDiv(c.width, c.total),
			Height: roundDiv(c.height, c.total),
			Total:  c.total,
		})
	}
	return merged
}

// roundDiv divides sum by count, rounding half up.
func roundDiv(sum, count int) int {
	return int(float64(sum)/float64(count) + 0.5)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
