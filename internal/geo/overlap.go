package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// OverlapRatio computes area(a∩b)/area(a∪b) in planar degree space, the units
// canceling in the ratio. Intersection uses Sutherland-Hodgman clipping, which
// is exact when the clip polygon is convex; when neither polygon is convex the
// geometry is simplified to its bounding rectangle before retrying, mirroring
// the topology-error recovery used elsewhere in the pipeline.
func OverlapRatio(a, b orb.Polygon) float64 {
	areaA := math.Abs(planar.Area(a))
	areaB := math.Abs(planar.Area(b))
	if areaA == 0 && areaB == 0 {
		return 0
	}

	inter, ok := intersectionArea(a, b)
	if !ok {
		// Simplified-geometry retry: clip the bounding rectangles instead.
		inter, _ = intersectionArea(boundPolygon(a), boundPolygon(b))
		areaA = boundArea(a)
		areaB = boundArea(b)
	}

	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	ratio := inter / union
	if math.IsNaN(ratio) || ratio < 0 {
		return 0
	}
	return math.Min(1, ratio)
}

// intersectionArea clips a against b's outer ring. It reports ok=false when
// neither outer ring is convex, in which case the result is unreliable.
func intersectionArea(a, b orb.Polygon) (float64, bool) {
	clip := ringPoints(b[0])
	subject := ringPoints(a[0])
	if !isConvex(clip) {
		if !isConvex(subject) {
			return 0, false
		}
		subject, clip = clip, subject
	}

	clipped := clipPolygon(subject, clip)
	if len(clipped) < 3 {
		return 0, true
	}
	return math.Abs(shoelace(clipped)), true
}

// clipPolygon runs Sutherland-Hodgman: the subject ring is clipped against
// each edge of the convex clip ring in turn.
func clipPolygon(subject, clip []orb.Point) []orb.Point {
	orientation := 1.0
	if shoelace(clip) < 0 {
		orientation = -1.0
	}

	output := subject
	for i := 0; i < len(clip); i++ {
		if len(output) == 0 {
			return nil
		}
		edgeA := clip[i]
		edgeB := clip[(i+1)%len(clip)]

		input := output
		output = nil
		for j := 0; j < len(input); j++ {
			cur := input[j]
			prev := input[(j+len(input)-1)%len(input)]

			curIn := inside(cur, edgeA, edgeB, orientation)
			prevIn := inside(prev, edgeA, edgeB, orientation)

			switch {
			case curIn && prevIn:
				output = append(output, cur)
			case curIn && !prevIn:
				output = append(output, lineIntersection(prev, cur, edgeA, edgeB), cur)
			case !curIn && prevIn:
				output = append(output, lineIntersection(prev, cur, edgeA, edgeB))
			}
		}
	}
	return output
}

func inside(p, edgeA, edgeB orb.Point, orientation float64) bool {
	return orientation*cross(edgeA, edgeB, p) >= 0
}

// lineIntersection intersects segment p1-p2 with the infinite line a-b.
func lineIntersection(p1, p2, a, b orb.Point) orb.Point {
	d1 := orb.Point{p2[0] - p1[0], p2[1] - p1[1]}
	d2 := orb.Point{b[0] - a[0], b[1] - a[1]}
	denom := d1[0]*d2[1] - d1[1]*d2[0]
	if denom == 0 {
		return p1
	}
	t := ((a[0]-p1[0])*d2[1] - (a[1]-p1[1])*d2[0]) / denom
	return orb.Point{p1[0] + t*d1[0], p1[1] + t*d1[1]}
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// ringPoints drops the duplicated closing point.
func ringPoints(ring orb.Ring) []orb.Point {
	pts := []orb.Point(ring)
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	return pts
}

func isConvex(pts []orb.Point) bool {
	if len(pts) < 3 {
		return false
	}
	var sign float64
	for i := range pts {
		c := cross(pts[i], pts[(i+1)%len(pts)], pts[(i+2)%len(pts)])
		if c == 0 {
			continue
		}
		if sign == 0 {
			sign = c
		} else if sign*c < 0 {
			return false
		}
	}
	return true
}

func shoelace(pts []orb.Point) float64 {
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i][0]*pts[j][1] - pts[j][0]*pts[i][1]
	}
	return sum / 2
}

func boundPolygon(p orb.Polygon) orb.Polygon {
	return orb.Polygon{p.Bound().ToRing()}
}

func boundArea(p orb.Polygon) float64 {
	b := p.Bound()
	return (b.Max[0] - b.Min[0]) * (b.Max[1] - b.Min[1])
}
