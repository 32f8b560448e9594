package mot

import "math"

// Transform is a 3x3 row-major warp mapping previous-frame points into current-frame points.
// Affine warps keep the last row equal to (0, 0, 1).
type Transform [3][3]float64

// Identity returns transform which leaves every point in place
func Identity() Transform {
	return Transform{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// NewAffine creates transform from 2x3 affine matrix
func NewAffine(a00, a01, a02, a10, a11, a12 float64) Transform {
	return Transform{
		{a00, a01, a02},
		{a10, a11, a12},
		{0, 0, 1},
	}
}

// IsIdentity reports whether transform is the identity
func (t Transform) IsIdentity() bool {
	return t == Identity()
}

// Mul returns t*other: other applied first, then t
func (t Transform) Mul(other Transform) Transform {
	var out Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += t[i][k] * other[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// Apply maps point through the warp (with projective division for homographies)
func (t Transform) Apply(p Point) Point {
	x := t[0][0]*p.X + t[0][1]*p.Y + t[0][2]
	y := t[1][0]*p.X + t[1][1]*p.Y + t[1][2]
	w := t[2][0]*p.X + t[2][1]*p.Y + t[2][2]
	if w == 0 || math.IsNaN(w) {
		return p
	}
	return Point{X: x / w, Y: y / w}
}

// TransformBox maps rectangle through the warp.
// If centerOnly is set then only the center is moved and the size is kept,
// otherwise all four corners are mapped and the axis-aligned hull is returned.
func (t Transform) TransformBox(rect Rectangle, centerOnly bool) Rectangle {
	if centerOnly {
		return rect.WithCenter(t.Apply(rect.Center()))
	}
	xmin, ymin, xmax, ymax := rect.Corners()
	corners := [4]Point{
		t.Apply(Point{X: xmin, Y: ymin}),
		t.Apply(Point{X: xmax, Y: ymin}),
		t.Apply(Point{X: xmin, Y: ymax}),
		t.Apply(Point{X: xmax, Y: ymax}),
	}
	nxmin, nymin := corners[0].X, corners[0].Y
	nxmax, nymax := corners[0].X, corners[0].Y
	for _, c := range corners[1:] {
		nxmin = minFloat64(nxmin, c.X)
		nymin = minFloat64(nymin, c.Y)
		nxmax = maxFloat64(nxmax, c.X)
		nymax = maxFloat64(nymax, c.Y)
	}
	return NewRectFromCorners(nxmin, nymin, nxmax, nymax)
}

// rescaled expresses warp estimated on an image resized by (sx, sy) in original image coordinates
func (t Transform) rescaled(sx, sy float64) Transform {
	down := Transform{
		{sx, 0, 0},
		{0, sy, 0},
		{0, 0, 1},
	}
	up := Transform{
		{1 / sx, 0, 0},
		{0, 1 / sy, 0},
		{0, 0, 1},
	}
	return up.Mul(t).Mul(down)
}
