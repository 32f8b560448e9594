package mot

import "github.com/rs/zerolog"

// Option configures Tracker collaborators
type Option func(*Tracker)

// WithLogger sets logger for tracker events. Default is no-op logger
func WithLogger(logger zerolog.Logger) Option {
	return func(tracker *Tracker) {
		tracker.baseLogger = logger
	}
}

// WithAligner replaces default ECC aligner (e.g. with OpenCV backed one)
func WithAligner(aligner Aligner) Option {
	return func(tracker *Tracker) {
		tracker.aligner = aligner
	}
}

// WithMotionPredictor replaces predictor built from motion model configuration.
// Passing nil disables motion prediction.
func WithMotionPredictor(motion MotionPredictor) Option {
	return func(tracker *Tracker) {
		tracker.motion = motion
	}
}
