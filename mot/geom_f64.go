package mot

import (
	"image"
	"math"
)

// Rectangle is an axis-aligned box: top-left corner plus size
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

// NewRectFromCorners creates rectangle from (xmin, ymin, xmax, ymax) coordinates
func NewRectFromCorners(xmin, ymin, xmax, ymax float64) Rectangle {
	return Rectangle{
		X:      xmin,
		Y:      ymin,
		Width:  xmax - xmin,
		Height: ymax - ymin,
	}
}

func NewRectFrom(rect image.Rectangle) Rectangle {
	return Rectangle{
		X:      float64(rect.Min.X),
		Y:      float64(rect.Min.Y),
		Width:  float64(rect.Dx()),
		Height: float64(rect.Dy()),
	}
}

// Corners returns (xmin, ymin, xmax, ymax)
func (rect Rectangle) Corners() (float64, float64, float64, float64) {
	return rect.X, rect.Y, rect.X + rect.Width, rect.Y + rect.Height
}

// Center returns center of the rectangle
func (rect Rectangle) Center() Point {
	return Point{
		X: rect.X + rect.Width/2.0,
		Y: rect.Y + rect.Height/2.0,
	}
}

// Area returns rectangle's area. Could be non-positive for degenerate boxes
func (rect Rectangle) Area() float64 {
	return rect.Width * rect.Height
}

// Valid reports whether every coordinate is finite and both sides are positive
func (rect Rectangle) Valid() bool {
	for _, v := range [4]float64{rect.X, rect.Y, rect.Width, rect.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return rect.Width > 0 && rect.Height > 0
}

// WithCenter returns rectangle of the same size centered at the given point
func (rect Rectangle) WithCenter(center Point) Rectangle {
	return Rectangle{
		X:      center.X - rect.Width/2.0,
		Y:      center.Y - rect.Height/2.0,
		Width:  rect.Width,
		Height: rect.Height,
	}
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func NewPointFrom(point image.Point) Point {
	return Point{
		X: float64(point.X),
		Y: float64(point.Y),
	}
}
