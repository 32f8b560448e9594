package mot

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func movingHistory(n int, vx, vy float64) []Rectangle {
	history := make([]Rectangle, 0, n)
	for i := 0; i < n; i++ {
		history = append(history, NewRect(10+vx*float64(i), 20+vy*float64(i), 40, 80))
	}
	return history
}

func TestNewMotionPredictor(t *testing.T) {
	cfg := DefaultConfig().MotionModel
	assert.Nil(t, NewMotionPredictor(cfg))

	cfg.Enabled = true
	_, ok := NewMotionPredictor(cfg).(*LinearMotion)
	assert.True(t, ok)

	cfg.Kind = MotionKalman
	_, ok = NewMotionPredictor(cfg).(*KalmanMotion)
	assert.True(t, ok)
}

func TestLinearMotionCenterOnly(t *testing.T) {
	motion := NewLinearMotion(3, true)
	predicted, err := motion.Predict(movingHistory(6, 5, -2))
	require.NoError(t, err)
	// Last box is at (35, 10), one more step gives (40, 8)
	assert.InDelta(t, 40.0, predicted.X, 1e-9)
	assert.InDelta(t, 8.0, predicted.Y, 1e-9)
	assert.Equal(t, 40.0, predicted.Width)
	assert.Equal(t, 80.0, predicted.Height)
}

func TestLinearMotionCorners(t *testing.T) {
	history := []Rectangle{
		NewRectFromCorners(0, 0, 10, 10),
		NewRectFromCorners(2, 1, 14, 13),
	}
	motion := NewLinearMotion(1, false)
	predicted, err := motion.Predict(history)
	require.NoError(t, err)
	xmin, ymin, xmax, ymax := predicted.Corners()
	assert.InDelta(t, 4.0, xmin, 1e-9)
	assert.InDelta(t, 2.0, ymin, 1e-9)
	assert.InDelta(t, 18.0, xmax, 1e-9)
	assert.InDelta(t, 16.0, ymax, 1e-9)
}

func TestLinearMotionWindow(t *testing.T) {
	// Object was standing still and then started moving: only the last nSteps+1 boxes matter
	history := []Rectangle{
		NewRect(0, 0, 10, 10),
		NewRect(0, 0, 10, 10),
		NewRect(0, 0, 10, 10),
		NewRect(4, 0, 10, 10),
		NewRect(8, 0, 10, 10),
	}
	predicted, err := NewLinearMotion(2, true).Predict(history)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, predicted.X, 1e-9)
}

func TestMotionShortHistory(t *testing.T) {
	box := NewRect(5, 5, 10, 10)
	for _, motion := range []MotionPredictor{NewLinearMotion(3, true), NewKalmanMotion(3, false)} {
		predicted, err := motion.Predict([]Rectangle{box})
		require.NoError(t, err)
		assert.Equal(t, box, predicted)

		_, err = motion.Predict(nil)
		assert.True(t, errors.Is(err, ErrMotionModel))
	}
}

func TestKalmanMotion(t *testing.T) {
	history := movingHistory(8, 5, 0)
	lastCenter := history[len(history)-1].Center()

	for _, centerOnly := range []bool{true, false} {
		predicted, err := NewKalmanMotion(7, centerOnly).Predict(history)
		require.NoError(t, err)
		center := predicted.Center()
		assert.Greater(t, center.X, lastCenter.X, "center_only=%v", centerOnly)
		assert.Less(t, center.X, lastCenter.X+10, "center_only=%v", centerOnly)
		assert.InDelta(t, lastCenter.Y, center.Y, 1.0, "center_only=%v", centerOnly)
		if centerOnly {
			assert.Equal(t, 40.0, predicted.Width)
			assert.Equal(t, 80.0, predicted.Height)
		} else {
			assert.InDelta(t, 40.0, predicted.Width, 1.0)
			assert.InDelta(t, 80.0, predicted.Height, 1.0)
		}
	}
}
