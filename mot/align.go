package mot

import (
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Aligner estimates camera motion between two consecutive frames.
// Returned transform maps points of the previous frame into the current one.
type Aligner interface {
	Align(previous, current image.Image) (Transform, error)
}

// ECCAligner is pure Go implementation of enhanced correlation coefficient maximization
// (Evangelidis & Psarakis, 2008) with the same stop criteria as OpenCV's findTransformECC.
type ECCAligner struct {
	mode       WarpMode
	iterations int
	eps        float64
	maxWidth   int
}

// NewECCAligner creates aligner from tracker configuration
func NewECCAligner(cfg Config) *ECCAligner {
	return &ECCAligner{
		mode:       cfg.WarpMode,
		iterations: cfg.NumberOfIterations,
		eps:        cfg.TerminationEps,
		maxWidth:   cfg.AlignMaxWidth,
	}
}

// Align estimates warp between frames. On any failure identity transform is returned along with
// error wrapping ErrAlignmentFailure.
func (aligner *ECCAligner) Align(previous, current image.Image) (Transform, error) {
	if previous == nil || current == nil {
		return Identity(), errors.Wrap(ErrAlignmentFailure, "missing frame")
	}
	pb := previous.Bounds()
	cb := current.Bounds()
	if pb.Dx() != cb.Dx() || pb.Dy() != cb.Dy() {
		return Identity(), errors.Wrapf(ErrAlignmentFailure, "frame sizes differ: %dx%d vs %dx%d", pb.Dx(), pb.Dy(), cb.Dx(), cb.Dy())
	}
	sx, sy := 1.0, 1.0
	if aligner.maxWidth > 0 && pb.Dx() > aligner.maxWidth {
		previous = resize.Resize(uint(aligner.maxWidth), 0, previous, resize.Bilinear)
		current = resize.Resize(uint(aligner.maxWidth), 0, current, resize.Bilinear)
		sx = float64(previous.Bounds().Dx()) / float64(pb.Dx())
		sy = float64(previous.Bounds().Dy()) / float64(pb.Dy())
	}
	template := newGrayFrame(previous).blur()
	input := newGrayFrame(current).blur()
	warp, err := estimateECC(template, input, aligner.mode, aligner.iterations, aligner.eps)
	if err != nil {
		return Identity(), err
	}
	if sx != 1.0 || sy != 1.0 {
		warp = warp.rescaled(sx, sy)
	}
	return warp, nil
}

// grayFrame is single channel float image
type grayFrame struct {
	width  int
	height int
	pix    []float64
}

func newGrayFrame(img image.Image) *grayFrame {
	bounds := img.Bounds()
	frame := &grayFrame{
		width:  bounds.Dx(),
		height: bounds.Dy(),
		pix:    make([]float64, bounds.Dx()*bounds.Dy()),
	}
	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < frame.height; y++ {
			offset := gray.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := gray.Pix[offset : offset+frame.width]
			for x, v := range row {
				frame.pix[y*frame.width+x] = float64(v)
			}
		}
		return frame
	}
	for y := 0; y < frame.height; y++ {
		for x := 0; x < frame.width; x++ {
			g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			frame.pix[y*frame.width+x] = float64(g.Y)
		}
	}
	return frame
}

func (frame *grayFrame) at(x, y int) float64 {
	return frame.pix[y*frame.width+x]
}

// blur applies separable binomial 5-tap kernel (Gaussian approximation)
func (frame *grayFrame) blur() *grayFrame {
	kernel := [5]float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}
	clampInt := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	tmp := make([]float64, len(frame.pix))
	for y := 0; y < frame.height; y++ {
		for x := 0; x < frame.width; x++ {
			sum := 0.0
			for k := -2; k <= 2; k++ {
				sum += kernel[k+2] * frame.at(clampInt(x+k, 0, frame.width-1), y)
			}
			tmp[y*frame.width+x] = sum
		}
	}
	out := &grayFrame{width: frame.width, height: frame.height, pix: make([]float64, len(frame.pix))}
	for y := 0; y < frame.height; y++ {
		for x := 0; x < frame.width; x++ {
			sum := 0.0
			for k := -2; k <= 2; k++ {
				sum += kernel[k+2] * tmp[clampInt(y+k, 0, frame.height-1)*frame.width+x]
			}
			out.pix[y*frame.width+x] = sum
		}
	}
	return out
}

// gradients returns horizontal and vertical central differences
func (frame *grayFrame) gradients() (*grayFrame, *grayFrame) {
	gx := &grayFrame{width: frame.width, height: frame.height, pix: make([]float64, len(frame.pix))}
	gy := &grayFrame{width: frame.width, height: frame.height, pix: make([]float64, len(frame.pix))}
	for y := 0; y < frame.height; y++ {
		for x := 0; x < frame.width; x++ {
			x0, x1 := x-1, x+1
			if x0 < 0 {
				x0 = 0
			}
			if x1 >= frame.width {
				x1 = frame.width - 1
			}
			y0, y1 := y-1, y+1
			if y0 < 0 {
				y0 = 0
			}
			if y1 >= frame.height {
				y1 = frame.height - 1
			}
			if x1 > x0 {
				gx.pix[y*frame.width+x] = (frame.at(x1, y) - frame.at(x0, y)) / float64(x1-x0)
			}
			if y1 > y0 {
				gy.pix[y*frame.width+x] = (frame.at(x, y1) - frame.at(x, y0)) / float64(y1-y0)
			}
		}
	}
	return gx, gy
}

// sample returns bilinear interpolation at (x, y). Point must lie inside the frame
func (frame *grayFrame) sample(x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= frame.width {
		x1 = frame.width - 1
	}
	if y1 >= frame.height {
		y1 = frame.height - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)
	top := frame.at(x0, y0)*(1-fx) + frame.at(x1, y0)*fx
	bottom := frame.at(x0, y1)*(1-fx) + frame.at(x1, y1)*fx
	return top*(1-fy) + bottom*fy
}

// eccWarp holds warp parameters being optimized
type eccWarp struct {
	mode  WarpMode
	theta float64
	t     Transform
}

// jacobian fills row with derivatives of warped intensity by each parameter
func (warp *eccWarp) jacobian(row []float64, x, y, gx, gy float64) {
	switch warp.mode {
	case WarpTranslation:
		row[0] = gx
		row[1] = gy
	case WarpEuclidean:
		c := math.Cos(warp.theta)
		s := math.Sin(warp.theta)
		row[0] = gx*(-s*x-c*y) + gy*(c*x-s*y)
		row[1] = gx
		row[2] = gy
	case WarpAffine:
		row[0] = gx * x
		row[1] = gy * x
		row[2] = gx * y
		row[3] = gy * y
		row[4] = gx
		row[5] = gy
	default:
		h := warp.t
		den := h[2][0]*x + h[2][1]*y + h[2][2]
		xw := (h[0][0]*x + h[0][1]*y + h[0][2]) / den
		yw := (h[1][0]*x + h[1][1]*y + h[1][2]) / den
		hatX := -(gx*xw + gy*yw)
		row[0] = gx * x / den
		row[1] = gx * y / den
		row[2] = gx / den
		row[3] = gy * x / den
		row[4] = gy * y / den
		row[5] = gy / den
		row[6] = hatX * x / den
		row[7] = hatX * y / den
	}
}

// update applies parameters increment
func (warp *eccWarp) update(delta []float64) {
	switch warp.mode {
	case WarpTranslation:
		warp.t[0][2] += delta[0]
		warp.t[1][2] += delta[1]
	case WarpEuclidean:
		warp.theta += delta[0]
		c := math.Cos(warp.theta)
		s := math.Sin(warp.theta)
		warp.t[0][0], warp.t[0][1] = c, -s
		warp.t[1][0], warp.t[1][1] = s, c
		warp.t[0][2] += delta[1]
		warp.t[1][2] += delta[2]
	case WarpAffine:
		warp.t[0][0] += delta[0]
		warp.t[1][0] += delta[1]
		warp.t[0][1] += delta[2]
		warp.t[1][1] += delta[3]
		warp.t[0][2] += delta[4]
		warp.t[1][2] += delta[5]
	default:
		warp.t[0][0] += delta[0]
		warp.t[0][1] += delta[1]
		warp.t[0][2] += delta[2]
		warp.t[1][0] += delta[3]
		warp.t[1][1] += delta[4]
		warp.t[1][2] += delta[5]
		warp.t[2][0] += delta[6]
		warp.t[2][1] += delta[7]
	}
}

// estimateECC finds warp W maximizing correlation between template(x) and input(W x)
func estimateECC(template, input *grayFrame, mode WarpMode, iterations int, eps float64) (Transform, error) {
	if template.width < 2 || template.height < 2 {
		return Identity(), errors.Wrap(ErrAlignmentFailure, "frames are too small")
	}
	numParams := mode.numParams()
	gradX, gradY := input.gradients()
	n := template.width * template.height
	warped := make([]float64, n)
	warpedGX := make([]float64, n)
	warpedGY := make([]float64, n)
	valid := make([]bool, n)
	jrow := make([]float64, numParams)

	warp := &eccWarp{mode: mode, t: Identity()}
	rho := -1.0
	lastRho := math.Inf(-1)
	maxX := float64(template.width - 1)
	maxY := float64(template.height - 1)

	for iteration := 1; iteration <= iterations && math.Abs(rho-lastRho) >= eps; iteration++ {
		// Warp input image and its gradients into template coordinates
		count := 0
		for y := 0; y < template.height; y++ {
			for x := 0; x < template.width; x++ {
				k := y*template.width + x
				p := warp.t.Apply(Point{X: float64(x), Y: float64(y)})
				if p.X < 0 || p.Y < 0 || p.X > maxX || p.Y > maxY || math.IsNaN(p.X) || math.IsNaN(p.Y) {
					valid[k] = false
					continue
				}
				valid[k] = true
				warped[k] = input.sample(p.X, p.Y)
				warpedGX[k] = gradX.sample(p.X, p.Y)
				warpedGY[k] = gradY.sample(p.X, p.Y)
				count++
			}
		}
		if count <= numParams {
			return Identity(), errors.Wrap(ErrAlignmentFailure, "frames do not overlap")
		}

		tmplMean, imgMean := 0.0, 0.0
		for k := 0; k < n; k++ {
			if valid[k] {
				tmplMean += template.pix[k]
				imgMean += warped[k]
			}
		}
		tmplMean /= float64(count)
		imgMean /= float64(count)

		hessian := make([]float64, numParams*numParams)
		tmplProjection := make([]float64, numParams)
		imgProjection := make([]float64, numParams)
		tmplNorm2, imgNorm2, correlation := 0.0, 0.0, 0.0
		for y := 0; y < template.height; y++ {
			for x := 0; x < template.width; x++ {
				k := y*template.width + x
				if !valid[k] {
					continue
				}
				tz := template.pix[k] - tmplMean
				iz := warped[k] - imgMean
				tmplNorm2 += tz * tz
				imgNorm2 += iz * iz
				correlation += tz * iz
				warp.jacobian(jrow, float64(x), float64(y), warpedGX[k], warpedGY[k])
				for a := 0; a < numParams; a++ {
					tmplProjection[a] += jrow[a] * tz
					imgProjection[a] += jrow[a] * iz
					for b := a; b < numParams; b++ {
						hessian[a*numParams+b] += jrow[a] * jrow[b]
					}
				}
			}
		}
		if tmplNorm2 == 0 || imgNorm2 == 0 {
			return Identity(), errors.Wrap(ErrAlignmentFailure, "frame has no texture")
		}
		for a := 0; a < numParams; a++ {
			for b := 0; b < a; b++ {
				hessian[a*numParams+b] = hessian[b*numParams+a]
			}
		}

		lastRho = rho
		rho = correlation / (math.Sqrt(tmplNorm2) * math.Sqrt(imgNorm2))
		if math.IsNaN(rho) {
			return Identity(), errors.Wrap(ErrAlignmentFailure, "correlation is NaN")
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(mat.NewSymDense(numParams, hessian)); !ok {
			return Identity(), errors.Wrap(ErrAlignmentFailure, "hessian is singular")
		}
		imgProj := mat.NewVecDense(numParams, imgProjection)
		tmplProj := mat.NewVecDense(numParams, tmplProjection)
		var hinvImg mat.VecDense
		if err := chol.SolveVecTo(&hinvImg, imgProj); err != nil {
			return Identity(), errors.Wrapf(ErrAlignmentFailure, "can't solve normal equations: %v", err)
		}
		lambdaN := imgNorm2 - mat.Dot(imgProj, &hinvImg)
		lambdaD := correlation - mat.Dot(tmplProj, &hinvImg)
		if lambdaD <= 0 {
			return Identity(), errors.Wrap(ErrAlignmentFailure, "correlation would be minimized: frames may be uncorrelated or non-overlapped")
		}
		lambda := lambdaN / lambdaD

		// Projection of error (lambda*template - warped) onto jacobian
		errorProjection := mat.NewVecDense(numParams, nil)
		errorProjection.AddScaledVec(errorProjection, lambda, tmplProj)
		errorProjection.SubVec(errorProjection, imgProj)
		var delta mat.VecDense
		if err := chol.SolveVecTo(&delta, errorProjection); err != nil {
			return Identity(), errors.Wrapf(ErrAlignmentFailure, "can't solve normal equations: %v", err)
		}
		warp.update(delta.RawVector().Data)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.IsNaN(warp.t[i][j]) || math.IsInf(warp.t[i][j], 0) {
				return Identity(), errors.Wrap(ErrAlignmentFailure, "warp diverged")
			}
		}
	}
	return warp.t, nil
}
