// Package geom maps positions between the three coordinate spaces the
// document engine reconciles:
//
//   - Raster (image) space: pixel coordinates of a rendered page bitmap,
//     origin top-left, Y increasing downward.
//   - Canvas space: point coordinates with the same top-left, Y-down
//     orientation. This is the native space of the overlay writer and of
//     edit requests.
//   - Document space: PDF user-space coordinates in points, origin
//     bottom-left, Y increasing upward.
//
// All transforms are pure and stateless. A Space pairs the raster dimensions
// of a bitmap with the point dimensions of the page it was rendered from;
// its two directions round-trip within floating-point tolerance.
package geom

import (
	"math"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
)

// Point is a position in document space (points, bottom-left origin).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PixelPoint is a position in raster space (pixels, top-left origin).
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in document space, anchored at its
// bottom-left corner.
type Rect struct {
	X float64 `json:"x"` // left edge
	Y float64 `json:"y"` // bottom edge
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Right returns the right edge of the rectangle.
func (r Rect) Right() float64 { return r.X + r.W }

// Top returns the top edge of the rectangle.
func (r Rect) Top() float64 { return r.Y + r.H }

// Overlaps reports whether two rectangles share any area.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Top() && o.Y < r.Top()
}

// Space maps between the raster space of one rendered bitmap and the
// document space of the page it was rendered from.
type Space struct {
	rasterW float64
	rasterH float64
	pageW   float64
	pageH   float64
}

// NewSpace validates the bitmap and page dimensions and returns a transform
// between them. Zero or negative dimensions are rejected outright rather
// than letting a later division produce Inf.
func NewSpace(rasterW, rasterH, pageW, pageH float64) (Space, error) {
	if rasterW <= 0 || rasterH <= 0 {
		return Space{}, docerr.Newf(docerr.Validation,
			"raster dimensions must be positive, got %gx%g", rasterW, rasterH)
	}
	if pageW <= 0 || pageH <= 0 {
		return Space{}, docerr.Newf(docerr.Validation,
			"page dimensions must be positive, got %gx%g", pageW, pageH)
	}
	return Space{rasterW: rasterW, rasterH: rasterH, pageW: pageW, pageH: pageH}, nil
}

// ToDocument maps a raster-space point into document space. The X axis is a
// plain rescale; the Y axis flips because raster Y grows downward while
// document Y grows upward.
func (s Space) ToDocument(p PixelPoint) Point {
	nx := p.X / s.rasterW
	ny := 1 - p.Y/s.rasterH
	return Point{X: nx * s.pageW, Y: ny * s.pageH}
}

// ToImage is the inverse of ToDocument.
func (s Space) ToImage(p Point) PixelPoint {
	nx := p.X / s.pageW
	ny := 1 - p.Y/s.pageH
	return PixelPoint{X: nx * s.rasterW, Y: ny * s.rasterH}
}

// PolygonToDocument applies ToDocument to every vertex.
func (s Space) PolygonToDocument(poly []PixelPoint) []Point {
	out := make([]Point, len(poly))
	for i, p := range poly {
		out[i] = s.ToDocument(p)
	}
	return out
}

// BoundsOf returns the axis-aligned bounding box of a document-space
// polygon. An empty polygon yields the zero Rect.
func BoundsOf(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// PixelBoundsOf returns the bounding box of a raster-space polygon as its
// min and max corners.
func PixelBoundsOf(poly []PixelPoint) (min, max PixelPoint) {
	if len(poly) == 0 {
		return PixelPoint{}, PixelPoint{}
	}
	min, max = poly[0], poly[0]
	for _, p := range poly[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}

// CanvasToDocument converts a canvas-space rectangle (top-left anchored,
// Y down) on a page of the given height into document space:
//
//	docY = pageH - y - h
func CanvasToDocument(x, y, w, h, pageH float64) Rect {
	return Rect{X: x, Y: pageH - y - h, W: w, H: h}
}

// DocumentToCanvas converts a document-space rectangle back to the
// canvas-space top-left anchor and size. It is its own inverse paired with
// CanvasToDocument.
func DocumentToCanvas(r Rect, pageH float64) (x, y, w, h float64) {
	return r.X, pageH - r.Y - r.H, r.W, r.H
}
