package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// pixel is an integer position in an edge map.
type pixel struct {
	X, Y int
}

// Contour is one connected group of edge pixels reduced to its convex hull.
type Contour struct {
	// Hull is the convex hull of the group, counter-clockwise in image
	// coordinates viewed with Y pointing up (clockwise on screen).
	Hull []geometry.Point `json:"hull"`

	// Area is the area enclosed by Hull in square pixels.
	Area float64 `json:"area"`

	// Pixels is the number of edge pixels in the group.
	Pixels int `json:"pixels"`
}

// findContours groups edge pixels (value >= 128 in mask) into 8-connected
// components, computes each component's convex hull, and returns them
// sorted by hull area, largest first.
//
// Components with fewer than minPixels pixels are discarded as noise.
func findContours(mask *image.Gray, minPixels int) []Contour {
	bounds := mask.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	edges := make([][]bool, height)
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		edges[y] = make([]bool, width)
		visited[y] = make([]bool, width)
		row := mask.Pix[mask.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < width; x++ {
			edges[y][x] = row[x] >= 128
		}
	}

	contours := make([]Contour, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !edges[y][x] || visited[y][x] {
				continue
			}
			component := make([]pixel, 0)
			floodFill(edges, visited, x, y, width, height, &component)
			if len(component) < minPixels {
				continue
			}

			pts := make([]geometry.Point, len(component))
			for i, p := range component {
				pts[i] = geometry.Pt(float64(p.X+bounds.Min.X), float64(p.Y+bounds.Min.Y))
			}
			hull := ConvexHull(pts)
			contours = append(contours, Contour{
				Hull:   hull,
				Area:   PolygonArea(hull),
				Pixels: len(component),
			})
		}
	}

	sort.SliceStable(contours, func(i, j int) bool {
		return contours[i].Area > contours[j].Area
	})
	return contours
}

// floodFill performs iterative 8-connected flood-fill from a starting
// point, marking visited pixels and appending them to the component.
func floodFill(edges, visited [][]bool, startX, startY, width, height int, component *[]pixel) {
	stack := []pixel{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !edges[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		*component = append(*component, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, pixel{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}

// ConvexHull returns the convex hull of pts using Andrew's monotone chain.
//
// The hull starts at the point with the smallest X (then smallest Y) and
// contains no collinear vertices. Fewer than three distinct points are
// returned as-is (deduplicated).
func ConvexHull(pts []geometry.Point) []geometry.Point {
	sorted := append([]geometry.Point(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	unique := sorted[:0]
	for i, p := range sorted {
		if i == 0 || p != sorted[i-1] {
			unique = append(unique, p)
		}
	}
	if len(unique) < 3 {
		return unique
	}

	cross := func(o, a, b geometry.Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]geometry.Point, 0, 2*len(unique))
	for _, p := range unique {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(unique) - 2; i >= 0; i-- {
		p := unique[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// PolygonArea returns the unsigned area of a closed polygon (shoelace formula).
func PolygonArea(poly []geometry.Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	var sum float64
	for i := range poly {
		j := (i + 1) % len(poly)
		sum += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return math.Abs(sum) / 2
}

// Perimeter returns the length of a closed polygon.
func Perimeter(poly []geometry.Point) float64 {
	if len(poly) < 2 {
		return 0
	}
	var total float64
	for i := range poly {
		total += geometry.Distance(poly[i], poly[(i+1)%len(poly)])
	}
	return total
}

// ApproxPolygon simplifies a closed polygon with the Douglas-Peucker
// algorithm and returns the kept vertices in their original order.
//
// The outline is split at two mutually distant vertices, so the result does
// not depend on where the input happens to start. Afterwards any kept vertex
// lying within epsilon of the segment joining its neighbours is dropped, as
// long as at least three vertices remain.
func ApproxPolygon(closed []geometry.Point, epsilon float64) []geometry.Point {
	n := len(closed)
	if n < 3 {
		return append([]geometry.Point(nil), closed...)
	}

	a := farthestFrom(closed, 0)
	if a == 0 {
		return []geometry.Point{closed[0]}
	}
	b := farthestFrom(closed, a)

	keep := make([]bool, n)
	keep[a], keep[b] = true, true
	simplifyChain(closed, a, b, epsilon, keep)
	simplifyChain(closed, b, a, epsilon, keep)

	kept := make([]int, 0, 8)
	for i, k := range keep {
		if k {
			kept = append(kept, i)
		}
	}
	kept = dropFlatVertices(closed, kept, epsilon)

	out := make([]geometry.Point, len(kept))
	for i, idx := range kept {
		out[i] = closed[idx]
	}
	return out
}

// farthestFrom returns the index of the vertex farthest from poly[from].
// It returns from itself when every vertex coincides with it.
func farthestFrom(poly []geometry.Point, from int) int {
	far := from
	best := 0.0
	for i, p := range poly {
		if d := geometry.Distance(poly[from], p); d > best {
			best = d
			far = i
		}
	}
	return far
}

// simplifyChain marks the vertices Douglas-Peucker keeps on the cyclic chain
// running forward from index i to index j. Both ends must already be marked.
func simplifyChain(poly []geometry.Point, i, j int, epsilon float64, keep []bool) {
	n := len(poly)
	if (j-i+n)%n < 2 {
		return
	}

	index := -1
	maxDist := 0.0
	for k := (i + 1) % n; k != j; k = (k + 1) % n {
		if d := segmentDistance(poly[k], poly[i], poly[j]); d > maxDist {
			maxDist = d
			index = k
		}
	}
	if index < 0 || maxDist <= epsilon {
		return
	}

	keep[index] = true
	simplifyChain(poly, i, index, epsilon, keep)
	simplifyChain(poly, index, j, epsilon, keep)
}

// dropFlatVertices repeatedly removes the kept vertex closest to the segment
// joining its neighbours while that distance is within epsilon.
func dropFlatVertices(poly []geometry.Point, kept []int, epsilon float64) []int {
	for len(kept) > 3 {
		flattest := -1
		best := epsilon
		for i, idx := range kept {
			prev := kept[(i+len(kept)-1)%len(kept)]
			next := kept[(i+1)%len(kept)]
			if d := segmentDistance(poly[idx], poly[prev], poly[next]); d <= best {
				best = d
				flattest = i
			}
		}
		if flattest < 0 {
			break
		}
		kept = append(kept[:flattest], kept[flattest+1:]...)
	}
	return kept
}

// segmentDistance returns the distance from p to the segment a-b.
func segmentDistance(p, a, b geometry.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return geometry.Distance(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lengthSq
	t = math.Max(0, math.Min(1, t))
	return geometry.Distance(p, geometry.Pt(a.X+t*dx, a.Y+t*dy))
}
