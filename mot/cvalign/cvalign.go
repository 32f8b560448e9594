//go:build opencv

// Package cvalign provides camera motion estimation backed by OpenCV's findTransformECC.
//
// It is drop-in replacement for pure Go mot.ECCAligner when OpenCV is available (build with -tags opencv):
//
//	aligner := cvalign.New(cfg)
//	tracker, err := mot.NewTracker(cfg, mot.WithAligner(aligner))
package cvalign

import (
	"image"

	"github.com/LdDl/tracktor-go/mot"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Aligner estimates warp between frames via gocv.FindTransformECC
type Aligner struct {
	motionType    gocv.MotionType
	mode          mot.WarpMode
	criteria      gocv.TermCriteria
	gaussFiltSize int
}

// New creates aligner from tracker configuration
func New(cfg mot.Config) *Aligner {
	return &Aligner{
		motionType:    motionType(cfg.WarpMode),
		mode:          cfg.WarpMode,
		criteria:      gocv.NewTermCriteria(gocv.Count|gocv.EPS, cfg.NumberOfIterations, cfg.TerminationEps),
		gaussFiltSize: 5,
	}
}

func motionType(mode mot.WarpMode) gocv.MotionType {
	switch mode {
	case mot.WarpTranslation:
		return gocv.MotionTranslation
	case mot.WarpAffine:
		return gocv.MotionAffine
	case mot.WarpHomography:
		return gocv.MotionHomography
	default:
		return gocv.MotionEuclidean
	}
}

// Align implements mot.Aligner
func (aligner *Aligner) Align(previous, current image.Image) (mot.Transform, error) {
	if previous == nil || current == nil {
		return mot.Identity(), errors.Wrap(mot.ErrAlignmentFailure, "missing frame")
	}
	if previous.Bounds().Dx() != current.Bounds().Dx() || previous.Bounds().Dy() != current.Bounds().Dy() {
		return mot.Identity(), errors.Wrap(mot.ErrAlignmentFailure, "frame sizes differ")
	}
	prevGray, err := toGray(previous)
	if err != nil {
		return mot.Identity(), err
	}
	defer prevGray.Close()
	currGray, err := toGray(current)
	if err != nil {
		return mot.Identity(), err
	}
	defer currGray.Close()

	rows := 2
	if aligner.mode == mot.WarpHomography {
		rows = 3
	}
	warp := gocv.Eye(rows, 3, gocv.MatTypeCV32F)
	defer warp.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	cc := gocv.FindTransformECC(prevGray, currGray, &warp, aligner.motionType, aligner.criteria, mask, aligner.gaussFiltSize)
	if cc <= 0 || cc != cc {
		return mot.Identity(), errors.Wrapf(mot.ErrAlignmentFailure, "correlation coefficient %v", cc)
	}

	transform := mot.Identity()
	for i := 0; i < rows; i++ {
		for j := 0; j < 3; j++ {
			transform[i][j] = float64(warp.GetFloatAt(i, j))
		}
	}
	return transform, nil
}

func toGray(img image.Image) (gocv.Mat, error) {
	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, errors.Wrapf(mot.ErrAlignmentFailure, "can't convert frame: %v", err)
	}
	defer rgb.Close()
	gray := gocv.NewMat()
	if err := gocv.CvtColor(rgb, &gray, gocv.ColorBGRToGray); err != nil {
		gray.Close()
		return gocv.Mat{}, errors.Wrapf(mot.ErrAlignmentFailure, "can't convert frame to grayscale: %v", err)
	}
	return gray, nil
}
