package mot

import (
	"math"
	"testing"
)

const (
	eps = 0.00001
)

func TestIoU(t *testing.T) {
	cases := []struct {
		name string
		r1   Rectangle
		r2   Rectangle
		want float64
	}{
		{"same", NewRectFromCorners(10, 10, 50, 50), NewRectFromCorners(10, 10, 50, 50), 1.0},
		{"disjoint", NewRectFromCorners(0, 0, 10, 10), NewRectFromCorners(20, 20, 30, 30), 0.0},
		{"touching", NewRectFromCorners(0, 0, 10, 10), NewRectFromCorners(10, 0, 20, 10), 0.0},
		{"half", NewRectFromCorners(0, 0, 10, 10), NewRectFromCorners(5, 0, 15, 10), 50.0 / 150.0},
		{"shifted", NewRectFromCorners(10, 10, 50, 50), NewRectFromCorners(12, 11, 52, 49), 1444.0 / 1676.0},
		{"zero width", NewRectFromCorners(0, 0, 0, 10), NewRectFromCorners(0, 0, 10, 10), 0.0},
		{"negative height", NewRect(0, 0, 10, -5), NewRectFromCorners(0, -5, 10, 10), 0.0},
	}
	for _, c := range cases {
		got := IoU(c.r1, c.r2)
		if math.Abs(got-c.want) > eps {
			t.Errorf("%s: IoU = %v, expected %v", c.name, got, c.want)
		}
		if math.Abs(IoU(c.r2, c.r1)-got) > eps {
			t.Errorf("%s: IoU is not symmetric", c.name)
		}
	}
}

func TestRectangleCorners(t *testing.T) {
	rect := NewRectFromCorners(12, 11, 52, 49)
	if rect.Width != 40 || rect.Height != 38 {
		t.Errorf("Wrong size: %v", rect)
	}
	xmin, ymin, xmax, ymax := rect.Corners()
	if xmin != 12 || ymin != 11 || xmax != 52 || ymax != 49 {
		t.Errorf("Wrong corners: %v %v %v %v", xmin, ymin, xmax, ymax)
	}
	center := rect.Center()
	if center != (Point{X: 32, Y: 30}) {
		t.Errorf("Wrong center: %v", center)
	}
}

func TestRectangleValid(t *testing.T) {
	if !NewRectFromCorners(0, 0, 1, 1).Valid() {
		t.Error("Unit box should be valid")
	}
	invalid := []Rectangle{
		NewRectFromCorners(0, 0, 0, 1),
		NewRectFromCorners(5, 5, 1, 1),
		NewRect(math.NaN(), 0, 1, 1),
		NewRect(0, 0, math.Inf(1), 1),
	}
	for _, rect := range invalid {
		if rect.Valid() {
			t.Errorf("Box %v should be invalid", rect)
		}
	}
}

func TestTransformIdentity(t *testing.T) {
	rect := NewRectFromCorners(10, 20, 30, 60)
	tr := Identity()
	if !tr.IsIdentity() {
		t.Error("Identity() should be identity")
	}
	if got := tr.TransformBox(rect, false); got != rect {
		t.Errorf("Identity moved box: %v", got)
	}
}

func TestTransformBoxTranslation(t *testing.T) {
	tr := NewAffine(1, 0, 5, 0, 1, -3)
	rect := NewRectFromCorners(10, 10, 50, 50)
	got := tr.TransformBox(rect, false)
	want := NewRectFromCorners(15, 7, 55, 47)
	if math.Abs(got.X-want.X) > eps || math.Abs(got.Y-want.Y) > eps || math.Abs(got.Width-want.Width) > eps || math.Abs(got.Height-want.Height) > eps {
		t.Errorf("Wrong box: %v, expected %v", got, want)
	}
}

func TestTransformBoxScaleCenterOnly(t *testing.T) {
	// Scale x2 around origin
	tr := NewAffine(2, 0, 0, 0, 2, 0)
	rect := NewRectFromCorners(10, 10, 20, 20)

	full := tr.TransformBox(rect, false)
	if full != NewRectFromCorners(20, 20, 40, 40) {
		t.Errorf("Wrong full transform: %v", full)
	}

	centerOnly := tr.TransformBox(rect, true)
	if centerOnly.Width != 10 || centerOnly.Height != 10 {
		t.Errorf("Center-only transform must keep size, got %v", centerOnly)
	}
	if centerOnly.Center() != (Point{X: 30, Y: 30}) {
		t.Errorf("Wrong center: %v", centerOnly.Center())
	}
}

func TestTransformRotationHull(t *testing.T) {
	// 90 degrees rotation around origin
	tr := NewAffine(0, -1, 0, 1, 0, 0)
	got := tr.TransformBox(NewRectFromCorners(1, 2, 3, 6), false)
	want := NewRectFromCorners(-6, 1, -2, 3)
	if math.Abs(got.X-want.X) > eps || math.Abs(got.Y-want.Y) > eps || math.Abs(got.Width-want.Width) > eps || math.Abs(got.Height-want.Height) > eps {
		t.Errorf("Wrong box: %v, expected %v", got, want)
	}
}

func TestTransformRescaled(t *testing.T) {
	// Shift by 2px estimated on half-sized image is 4px on original one
	small := NewAffine(1, 0, 2, 0, 1, 1)
	full := small.rescaled(0.5, 0.5)
	p := full.Apply(Point{X: 100, Y: 100})
	if math.Abs(p.X-104) > eps || math.Abs(p.Y-102) > eps {
		t.Errorf("Wrong point: %v", p)
	}
}
