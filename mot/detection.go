package mot

import (
	"math"

	"github.com/pkg/errors"
)

// Detection is a single candidate box produced by external detector for the current frame
type Detection struct {
	BBox  Rectangle
	Score float64
	// Appearance embedding. Optional: needed only for re-identification
	Feature []float32
}

// NewDetection creates detection from (xmin, ymin, xmax, ymax) corners
func NewDetection(xmin, ymin, xmax, ymax, score float64, feature []float32) Detection {
	return Detection{
		BBox:    NewRectFromCorners(xmin, ymin, xmax, ymax),
		Score:   score,
		Feature: feature,
	}
}

// Validate checks that detection has usable box and score
func (det Detection) Validate() error {
	if !det.BBox.Valid() {
		return errors.Wrapf(ErrMalformedDetection, "degenerate box %+v", det.BBox)
	}
	if math.IsNaN(det.Score) || math.IsInf(det.Score, 0) {
		return errors.Wrapf(ErrMalformedDetection, "bad score %v", det.Score)
	}
	return nil
}

// HasFeature reports whether detection carries appearance embedding
func (det Detection) HasFeature() bool {
	return len(det.Feature) > 0
}
