package mot

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// MotionPredictor predicts track's box in the next frame from its recent boxes (the oldest first)
type MotionPredictor interface {
	Predict(history []Rectangle) (Rectangle, error)
}

// NewMotionPredictor creates predictor described by configuration. Disabled model gives nil predictor
func NewMotionPredictor(cfg MotionModelConfig) MotionPredictor {
	if !cfg.Enabled {
		return nil
	}
	switch cfg.Kind {
	case MotionKalman:
		return NewKalmanMotion(cfg.NSteps, cfg.CenterOnly)
	default:
		return NewLinearMotion(cfg.NSteps, cfg.CenterOnly)
	}
}

// window returns at most nSteps+1 most recent boxes
func window(history []Rectangle, nSteps int) []Rectangle {
	if nSteps < 1 {
		nSteps = 1
	}
	if len(history) > nSteps+1 {
		return history[len(history)-(nSteps+1):]
	}
	return history
}

// LinearMotion is constant velocity model: mean displacement over the window is applied once more
type LinearMotion struct {
	nSteps     int
	centerOnly bool
}

// NewLinearMotion creates constant velocity predictor
func NewLinearMotion(nSteps int, centerOnly bool) *LinearMotion {
	return &LinearMotion{
		nSteps:     nSteps,
		centerOnly: centerOnly,
	}
}

// Predict extrapolates the last box. With less than two boxes the last box is returned as is
func (motion *LinearMotion) Predict(history []Rectangle) (Rectangle, error) {
	if len(history) == 0 {
		return Rectangle{}, errors.Wrap(ErrMotionModel, "empty history")
	}
	last := history[len(history)-1]
	points := window(history, motion.nSteps)
	if len(points) < 2 {
		return last, nil
	}
	first := points[0]
	steps := float64(len(points) - 1)
	if motion.centerOnly {
		c0 := first.Center()
		c1 := last.Center()
		vx := (c1.X - c0.X) / steps
		vy := (c1.Y - c0.Y) / steps
		return last.WithCenter(Point{X: c1.X + vx, Y: c1.Y + vy}), nil
	}
	fx0, fy0, fx1, fy1 := first.Corners()
	lx0, ly0, lx1, ly1 := last.Corners()
	return NewRectFromCorners(
		lx0+(lx0-fx0)/steps,
		ly0+(ly0-fy0)/steps,
		lx1+(lx1-fx1)/steps,
		ly1+(ly1-fy1)/steps,
	), nil
}

// KalmanMotion replays the window through Kalman filter and returns its one step prediction.
// Filter is rebuilt on each call, so it always agrees with (possibly camera-compensated) history.
type KalmanMotion struct {
	nSteps     int
	centerOnly bool
	dt         float64
	stdDevA    float64
	stdDevM    float64
}

// NewKalmanMotion creates Kalman based predictor with unit time step
func NewKalmanMotion(nSteps int, centerOnly bool) *KalmanMotion {
	return &KalmanMotion{
		nSteps:     nSteps,
		centerOnly: centerOnly,
		dt:         1.0,
		stdDevA:    2.0,
		stdDevM:    0.1,
	}
}

// Predict executes predict/update over the window and one more predict step
func (motion *KalmanMotion) Predict(history []Rectangle) (Rectangle, error) {
	if len(history) == 0 {
		return Rectangle{}, errors.Wrap(ErrMotionModel, "empty history")
	}
	last := history[len(history)-1]
	points := window(history, motion.nSteps)
	if len(points) < 2 {
		return last, nil
	}
	if motion.centerOnly {
		return motion.predictCenter(points)
	}
	return motion.predictBBox(points)
}

func (motion *KalmanMotion) predictCenter(points []Rectangle) (Rectangle, error) {
	seed := points[0].Center()
	kf := kalman_filter.NewKalman2D(
		motion.dt, 0.0, 0.0,
		motion.stdDevA, motion.stdDevM, motion.stdDevM,
		kalman_filter.WithState2D(seed.X, seed.Y),
	)
	for _, rect := range points[1:] {
		kf.Predict()
		center := rect.Center()
		err := kf.Update(center.X, center.Y)
		if err != nil {
			return Rectangle{}, errors.Wrapf(ErrMotionModel, "can't update center filter: %v", err)
		}
	}
	kf.Predict()
	x, y := kf.GetState()
	return points[len(points)-1].WithCenter(Point{X: x, Y: y}), nil
}

func (motion *KalmanMotion) predictBBox(points []Rectangle) (Rectangle, error) {
	seed := points[0]
	seedCenter := seed.Center()
	kf := kalman_filter.NewKalmanBBox(
		motion.dt, 0.0, 0.0, 0.0, 0.0,
		motion.stdDevA, motion.stdDevM, motion.stdDevM, motion.stdDevM, motion.stdDevM,
		kalman_filter.WithStateBBox(seedCenter.X, seedCenter.Y, seed.Width, seed.Height),
	)
	for _, rect := range points[1:] {
		kf.Predict()
		center := rect.Center()
		err := kf.Update(center.X, center.Y, rect.Width, rect.Height)
		if err != nil {
			return Rectangle{}, errors.Wrapf(ErrMotionModel, "can't update bbox filter: %v", err)
		}
	}
	kf.Predict()
	cx, cy, w, h := kf.GetState()
	return Rectangle{
		X:      cx - w/2.0,
		Y:      cy - h/2.0,
		Width:  w,
		Height: h,
	}, nil
}
