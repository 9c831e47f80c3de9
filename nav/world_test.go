package nav

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// testWorld is an exact obstacle layer of axis-aligned boxes and disks.
type testWorld struct {
	boxes   []testBox
	circles []testCircle
}

type testBox struct {
	min, max r2.Vec
}

type testCircle struct {
	center r2.Vec
	radius float64
}

// segmentSampleStep bounds how far apart segment samples are.
const segmentSampleStep = 0.01

func (w *testWorld) addBox(cx, cy, width, height float64) {
	w.boxes = append(w.boxes, testBox{
		min: r2.Vec{X: cx - width/2, Y: cy - height/2},
		max: r2.Vec{X: cx + width/2, Y: cy + height/2},
	})
}

func (w *testWorld) addCircle(cx, cy, radius float64) {
	w.circles = append(w.circles, testCircle{center: r2.Vec{X: cx, Y: cy}, radius: radius})
}

// distance returns the distance from p to the nearest obstacle, 0 when inside one.
func (w *testWorld) distance(p r2.Vec) float64 {
	best := math.Inf(1)
	for _, b := range w.boxes {
		dx := math.Max(math.Max(b.min.X-p.X, 0), p.X-b.max.X)
		dy := math.Max(math.Max(b.min.Y-p.Y, 0), p.Y-b.max.Y)
		best = math.Min(best, math.Hypot(dx, dy))
	}
	for _, c := range w.circles {
		best = math.Min(best, math.Max(r2.Norm(r2.Sub(p, c.center))-c.radius, 0))
	}
	return best
}

func (w *testWorld) inside(p r2.Vec) bool {
	return w.distance(p) == 0
}

func (w *testWorld) IsCircleFree(center r2.Vec, radius float64) bool {
	d := w.distance(center)
	if d == 0 {
		return false
	}
	return d >= radius
}

func (w *testWorld) IsSegmentFree(a, b r2.Vec, sweepRadius float64) bool {
	length := r2.Norm(r2.Sub(b, a))
	steps := int(math.Ceil(length/segmentSampleStep)) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p := r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
		if !w.IsCircleFree(p, sweepRadius) {
			return false
		}
	}
	return true
}

// blockedWorld reports every query as blocked.
type blockedWorld struct{}

func (blockedWorld) IsCircleFree(r2.Vec, float64) bool         { return false }
func (blockedWorld) IsSegmentFree(r2.Vec, r2.Vec, float64) bool { return false }

func vec(x, y float64) r2.Vec {
	return r2.Vec{X: x, Y: y}
}

func near(a, b r2.Vec, tol float64) bool {
	return r2.Norm(r2.Sub(a, b)) <= tol
}
