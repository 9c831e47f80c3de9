// Package obstacles is the static obstacle layer agents plan against.
//
// Obstacles are boxes and disks attached to the static body of a Chipmunk2D
// space. The space is never stepped; it is used purely as a spatial index for
// the clearance queries the navigation core needs.
package obstacles

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/jakecoffman/cp"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/trek/nav"
)

var (
	ErrInvalidShape = errors.New("invalid obstacle shape")
	ErrDuplicateID  = errors.New("duplicate obstacle id")
)

// Kind is an obstacle's geometric primitive.
type Kind uint8

const (
	KindRect Kind = iota
	KindCircle
)

func (k Kind) String() string {
	switch k {
	case KindRect:
		return "rect"
	case KindCircle:
		return "circle"
	default:
		return "unknown"
	}
}

// Obstacle describes one blocking shape.
type Obstacle struct {
	ID     string
	Kind   Kind
	Center r2.Vec
	Width  float64 // Rect only
	Height float64 // Rect only
	Radius float64 // Circle only
	Group  uint    // Collision group; queries made for the same non-zero group ignore it
}

// Min returns the lower-left corner of the obstacle's bounding box.
func (o Obstacle) Min() r2.Vec {
	if o.Kind == KindCircle {
		return r2.Sub(o.Center, r2.Vec{X: o.Radius, Y: o.Radius})
	}
	return r2.Sub(o.Center, r2.Vec{X: o.Width / 2, Y: o.Height / 2})
}

// Max returns the upper-right corner of the obstacle's bounding box.
func (o Obstacle) Max() r2.Vec {
	if o.Kind == KindCircle {
		return r2.Add(o.Center, r2.Vec{X: o.Radius, Y: o.Radius})
	}
	return r2.Add(o.Center, r2.Vec{X: o.Width / 2, Y: o.Height / 2})
}

func (o Obstacle) validate() error {
	switch o.Kind {
	case KindRect:
		if o.Width <= 0 || o.Height <= 0 {
			return fmt.Errorf("%w: rect %q has size %vx%v", ErrInvalidShape, o.ID, o.Width, o.Height)
		}
	case KindCircle:
		if o.Radius <= 0 {
			return fmt.Errorf("%w: circle %q has radius %v", ErrInvalidShape, o.ID, o.Radius)
		}
	default:
		return fmt.Errorf("%w: %q has kind %d", ErrInvalidShape, o.ID, o.Kind)
	}
	return nil
}

type entry struct {
	def   Obstacle
	shape *cp.Shape
}

// World holds the obstacle set. It implements nav.ObstacleQuery.
// It is not safe for concurrent mutation; queries may run concurrently
// with each other once the set is fixed.
type World struct {
	space   *cp.Space
	entries map[string]*entry
	nextID  int
}

var _ nav.ObstacleQuery = (*World)(nil)

// NewWorld creates an empty obstacle world.
func NewWorld() *World {
	return &World{
		space:   cp.NewSpace(),
		entries: make(map[string]*entry),
	}
}

// AddRect adds an axis-aligned box centred on center. An empty id is assigned automatically.
func (w *World) AddRect(id string, center r2.Vec, width, height float64) (string, error) {
	return w.Add(Obstacle{ID: id, Kind: KindRect, Center: center, Width: width, Height: height})
}

// AddCircle adds a disk. An empty id is assigned automatically.
func (w *World) AddCircle(id string, center r2.Vec, radius float64) (string, error) {
	return w.Add(Obstacle{ID: id, Kind: KindCircle, Center: center, Radius: radius})
}

// Add inserts an obstacle and returns its id.
func (w *World) Add(o Obstacle) (string, error) {
	if o.ID == "" {
		o.ID = w.autoID()
	}
	if _, exists := w.entries[o.ID]; exists {
		return "", fmt.Errorf("%w: %q", ErrDuplicateID, o.ID)
	}
	if err := o.validate(); err != nil {
		return "", err
	}

	body := w.space.StaticBody
	var shape *cp.Shape
	switch o.Kind {
	case KindCircle:
		shape = cp.NewCircle(body, o.Radius, toCP(o.Center))
	default:
		lo, hi := o.Min(), o.Max()
		shape = cp.NewBox2(body, cp.BB{L: lo.X, B: lo.Y, R: hi.X, T: hi.Y}, 0)
	}
	shape.SetFilter(cp.NewShapeFilter(o.Group, cp.ALL_CATEGORIES, cp.ALL_CATEGORIES))
	w.space.AddShape(shape)

	w.entries[o.ID] = &entry{def: o, shape: shape}
	return o.ID, nil
}

// Remove deletes an obstacle. Returns false if the id is unknown.
func (w *World) Remove(id string) bool {
	e, ok := w.entries[id]
	if !ok {
		return false
	}
	w.space.RemoveShape(e.shape)
	delete(w.entries, id)
	return true
}

// Clear removes every obstacle.
func (w *World) Clear() {
	for id := range w.entries {
		w.Remove(id)
	}
}

// Get returns the obstacle with the given id.
func (w *World) Get(id string) (Obstacle, bool) {
	e, ok := w.entries[id]
	if !ok {
		return Obstacle{}, false
	}
	return e.def, true
}

// Len returns the number of obstacles.
func (w *World) Len() int {
	return len(w.entries)
}

// Obstacles returns all obstacles ordered by id.
func (w *World) Obstacles() []Obstacle {
	out := make([]Obstacle, 0, len(w.entries))
	for _, e := range w.entries {
		out = append(out, e.def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsCircleFree reports whether a disk overlaps no obstacle.
func (w *World) IsCircleFree(center r2.Vec, radius float64) bool {
	return w.circleFree(center, radius, cp.SHAPE_FILTER_ALL)
}

// IsSegmentFree reports whether a disk swept from a to b overlaps no obstacle.
func (w *World) IsSegmentFree(a, b r2.Vec, sweepRadius float64) bool {
	return w.segmentFree(a, b, sweepRadius, cp.SHAPE_FILTER_ALL)
}

// Excluding returns a query view that ignores obstacles in group.
// A zero group excludes nothing.
func (w *World) Excluding(group uint) nav.ObstacleQuery {
	return view{w: w, filter: cp.NewShapeFilter(group, cp.ALL_CATEGORIES, cp.ALL_CATEGORIES)}
}

type view struct {
	w      *World
	filter cp.ShapeFilter
}

func (v view) IsCircleFree(center r2.Vec, radius float64) bool {
	return v.w.circleFree(center, radius, v.filter)
}

func (v view) IsSegmentFree(a, b r2.Vec, sweepRadius float64) bool {
	return v.w.segmentFree(a, b, sweepRadius, v.filter)
}

func (w *World) circleFree(center r2.Vec, radius float64, filter cp.ShapeFilter) bool {
	if radius < 0 {
		radius = 0
	}
	info := w.space.PointQueryNearest(toCP(center), radius, filter)
	return info == nil || info.Shape == nil
}

// segmentFree checks both end disks explicitly: a swept query only reports
// surfaces it enters, so a segment that starts inside a shape would pass.
func (w *World) segmentFree(a, b r2.Vec, radius float64, filter cp.ShapeFilter) bool {
	if !w.circleFree(a, radius, filter) || !w.circleFree(b, radius, filter) {
		return false
	}
	if a == b {
		return true
	}
	if radius < 0 {
		radius = 0
	}
	hit := w.space.SegmentQueryFirst(toCP(a), toCP(b), radius, filter)
	return hit.Shape == nil
}

func (w *World) autoID() string {
	for {
		w.nextID++
		id := "obstacle-" + strconv.Itoa(w.nextID)
		if _, exists := w.entries[id]; !exists {
			return id
		}
	}
}

func toCP(v r2.Vec) cp.Vector {
	return cp.Vector{X: v.X, Y: v.Y}
}
