package mot

import "github.com/pkg/errors"

var (
	// ErrConfig is returned when configuration is malformed or contradictory. Fatal: no tracker is created
	ErrConfig = errors.New("invalid tracker configuration")
	// ErrAlignmentFailure is reported when camera motion can not be estimated; identity transform is used instead
	ErrAlignmentFailure = errors.New("frame alignment failed")
	// ErrAssociationEmpty is reported when frame carries no usable detections
	ErrAssociationEmpty = errors.New("no detections in frame")
	// ErrReidUnavailable is reported when re-identification is enabled but detection has no feature vector
	ErrReidUnavailable = errors.New("detection has no appearance feature")
	// ErrMalformedDetection is reported for detections with degenerate box or score
	ErrMalformedDetection = errors.New("malformed detection")
	// ErrFeatureDimension is reported when two feature vectors can not be compared
	ErrFeatureDimension = errors.New("feature vectors dimension mismatch")
	// ErrMotionModel makes the frame unrecoverable: it is skipped and track table stays untouched
	ErrMotionModel = errors.New("motion model failure")
)
