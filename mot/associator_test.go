package mot

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeTrack(id int64, xmin, ymin, xmax, ymax, score float64, feature []float32) *Track {
	track := NewTrack(id, NewDetection(xmin, ymin, xmax, ymax, score, feature), 10, 2, false)
	track.Activate()
	return track
}

func TestFilterDetections(t *testing.T) {
	associator := NewAssociator(DefaultConfig())
	detections := []Detection{
		NewDetection(0, 0, 100, 100, 0.9, nil),
		NewDetection(0, 0, 100, 95, 0.8, nil),
		NewDetection(200, 200, 250, 250, 0.4, nil),
		NewDetection(300, 300, 350, 350, 0.5, nil),
	}
	kept := associator.FilterDetections(detections)
	// Low confidence one is dropped, duplicate is suppressed, threshold is inclusive
	assert.Equal(t, []int{0, 3}, kept)
}

func TestFilterTracks(t *testing.T) {
	associator := NewAssociator(DefaultConfig())
	tracks := []*Track{
		activeTrack(1, 0, 0, 100, 100, 0.7, nil),
		activeTrack(2, 1, 1, 100, 100, 0.9, nil),
		activeTrack(3, 300, 300, 350, 350, 0.3, nil),
		activeTrack(4, 500, 500, 550, 550, 0.6, nil),
	}
	kept := associator.FilterTracks(tracks)
	ids := make([]int64, 0, len(kept))
	for _, track := range kept {
		ids = append(ids, track.GetID())
	}
	// Low score track still takes part in matching, duplicate is suppressed
	assert.Equal(t, []int64{2, 3, 4}, ids)
}

func TestAssociate(t *testing.T) {
	associator := NewAssociator(DefaultConfig())
	tracks := []*Track{
		activeTrack(1, 10, 10, 50, 50, 0.9, nil),
		activeTrack(2, 200, 200, 260, 300, 0.9, nil),
		activeTrack(3, 400, 100, 440, 180, 0.2, nil),
	}
	detections := []Detection{
		NewDetection(600, 600, 650, 650, 0.95, nil),
		NewDetection(12, 11, 52, 49, 0.9, nil),
		NewDetection(12, 11, 52, 50, 0.85, nil),
	}
	association := associator.Associate(tracks, detections)
	assert.Equal(t, map[int64]int{1: 1}, association.Matched)
	assert.Equal(t, []int64{2, 3}, association.Unmatched)
	// Track 3 is below regression threshold: it can't live on its own box
	_, ok := association.Regressable[2]
	assert.True(t, ok)
	_, ok = association.Regressable[3]
	assert.False(t, ok)
	assert.Equal(t, []int{0}, association.UnmatchedDetections)
	assert.Equal(t, 1, association.Suppressed)
}

func TestAssociateLowScoreTrack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RegressionPersonThresh = 0.7
	associator := NewAssociator(cfg)
	tracks := []*Track{
		activeTrack(1, 10, 10, 50, 50, 0.6, nil),
		activeTrack(2, 200, 200, 260, 300, 0.6, nil),
	}
	detections := []Detection{NewDetection(11, 10, 51, 50, 0.6, nil)}
	association := associator.Associate(tracks, detections)
	assert.Equal(t, map[int64]int{1: 0}, association.Matched)
	assert.Equal(t, []int64{2}, association.Unmatched)
	assert.Empty(t, association.Regressable)
	assert.Empty(t, association.UnmatchedDetections)
}

func TestAssociateLowIoU(t *testing.T) {
	associator := NewAssociator(DefaultConfig())
	tracks := []*Track{activeTrack(1, 0, 0, 10, 10, 0.9, nil)}
	// IoU = 20 / 180 is below match floor
	detections := []Detection{NewDetection(8, 0, 18, 10, 0.9, nil)}
	association := associator.Associate(tracks, detections)
	assert.Empty(t, association.Matched)
	assert.Equal(t, []int{0}, association.UnmatchedDetections)
}

func TestSuppressCovered(t *testing.T) {
	associator := NewAssociator(DefaultConfig())
	detections := []Detection{
		NewDetection(0, 0, 10, 10, 0.9, nil),
		NewDetection(1, 1, 11, 11, 0.9, nil),
		NewDetection(100, 100, 110, 110, 0.9, nil),
	}
	kept, suppressed := associator.SuppressCovered([]int{1, 2}, detections, []Rectangle{detections[0].BBox})
	assert.Equal(t, []int{2}, kept)
	assert.Equal(t, 1, suppressed)
}

func TestDetectionValidate(t *testing.T) {
	assert.NoError(t, NewDetection(0, 0, 10, 10, 0.5, nil).Validate())
	bad := []Detection{
		NewDetection(10, 0, 0, 10, 0.5, nil),
		NewDetection(0, 0, 10, 0, 0.5, nil),
		NewDetection(0, 0, 10, 10, math.NaN(), nil),
		NewDetection(math.Inf(-1), 0, 10, 10, 0.5, nil),
	}
	for _, det := range bad {
		err := det.Validate()
		assert.True(t, errors.Is(err, ErrMalformedDetection), "%+v", det)
	}
}

func TestReidentify(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReIDSimThreshold = 0.3
	cfg.ReIDIoUThreshold = 0.2
	reid := NewReIdentifier(cfg)

	f := []float32{1, 0}
	g := []float32{0.5, float32(math.Sqrt(0.75))}
	lost := activeTrack(1, 10, 10, 50, 50, 0.9, f)
	lost.Deactivate()
	lost.Age()

	far := activeTrack(2, 300, 300, 340, 340, 0.9, f)
	far.Deactivate()

	detections := []Detection{
		NewDetection(11, 11, 49, 49, 0.9, g),
		NewDetection(500, 500, 540, 540, 0.9, nil),
		NewDetection(301, 301, 341, 341, 0.9, []float32{0, 1}),
	}
	matches, issues := reid.Reidentify([]*Track{lost, far}, detections, []int{0, 1, 2})
	require.Len(t, matches, 1)
	assert.Equal(t, int64(1), matches[0].TrackID)
	assert.Equal(t, 0, matches[0].Detection)
	assert.InDelta(t, 0.5, matches[0].Similarity, 1e-6)
	assert.InDelta(t, 1444.0/1600.0, matches[0].IoU, 1e-9)

	require.Len(t, issues, 1)
	assert.True(t, errors.Is(issues[0], ErrReidUnavailable))
}

func TestReidentifyGates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReIDSimThreshold = 0.9
	cfg.InactivePatience = 1
	reid := NewReIdentifier(cfg)

	f := []float32{1, 0}
	lost := activeTrack(1, 10, 10, 50, 50, 0.9, f)
	lost.Deactivate()

	// Similar appearance, but too far away
	detections := []Detection{NewDetection(100, 100, 140, 140, 0.9, f)}
	matches, _ := reid.Reidentify([]*Track{lost}, detections, []int{0})
	assert.Empty(t, matches)

	// Close, but appearance differs
	detections = []Detection{NewDetection(10, 10, 50, 50, 0.9, []float32{0.5, 0.5})}
	matches, _ = reid.Reidentify([]*Track{lost}, detections, []int{0})
	assert.Empty(t, matches)

	// Close and similar, but the track is beyond patience
	lost.Age()
	lost.Age()
	detections = []Detection{NewDetection(10, 10, 50, 50, 0.9, f)}
	matches, _ = reid.Reidentify([]*Track{lost}, detections, []int{0})
	assert.Empty(t, matches)
}
