package mot

import (
	"github.com/pkg/errors"
)

// ReIDMatch is a reconnection of inactive track with a detection
type ReIDMatch struct {
	TrackID    int64
	Detection  int
	Similarity float64
	IoU        float64
}

// ReIdentifier reconnects inactive tracks with unmatched detections by appearance
type ReIdentifier struct {
	simThreshold float64
	iouThreshold float64
	patience     int
	metric       SimilarityMetric
	algorithm    MatchingAlgorithm
}

// NewReIdentifier creates re-identifier from tracker configuration
func NewReIdentifier(cfg Config) *ReIdentifier {
	return &ReIdentifier{
		simThreshold: cfg.ReIDSimThreshold,
		iouThreshold: cfg.ReIDIoUThreshold,
		patience:     cfg.InactivePatience,
		metric:       cfg.ReIDMetric,
		algorithm:    cfg.MatchingAlgorithm,
	}
}

// Reidentify compares candidate detections against galleries of inactive tracks (sorted by identifier).
// A pair is eligible only when both appearance similarity and IoU with the track's last box meet thresholds.
// Returns matches plus per-detection problems (detections without features, incomparable features).
func (reid *ReIdentifier) Reidentify(inactive []*Track, detections []Detection, candidates []int) ([]ReIDMatch, []error) {
	var issues []error
	withFeatures := make([]int, 0, len(candidates))
	for _, idx := range candidates {
		if !detections[idx].HasFeature() {
			issues = append(issues, errors.Wrapf(ErrReidUnavailable, "detection #%d", idx))
			continue
		}
		withFeatures = append(withFeatures, idx)
	}

	tracks := make([]*Track, 0, len(inactive))
	for _, track := range inactive {
		if track.GetState() == TrackInactive && track.GetFramesInactive() <= reid.patience && track.GetGallery().Len() > 0 {
			tracks = append(tracks, track)
		}
	}
	if len(tracks) == 0 || len(withFeatures) == 0 {
		return nil, issues
	}

	rowIDs := make([]int64, len(tracks))
	for i, track := range tracks {
		rowIDs[i] = track.GetID()
	}
	colScores := make([]float64, len(withFeatures))
	for j, idx := range withFeatures {
		colScores[j] = detections[idx].Score
	}
	affinity := newAffinityMatrix(rowIDs, colScores)
	ious := make([][]float64, len(tracks))
	for i, track := range tracks {
		ious[i] = make([]float64, len(withFeatures))
		for j, idx := range withFeatures {
			det := detections[idx]
			iou := IoU(det.BBox, track.GetBBox())
			ious[i][j] = iou
			if iou < reid.iouThreshold {
				continue
			}
			sim, ok, err := track.GetGallery().BestSimilarity(det.Feature, reid.metric)
			if err != nil && !ok {
				issues = append(issues, errors.Wrapf(err, "detection #%d vs track %d", idx, track.GetID()))
				continue
			}
			affinity.values[i][j] = sim
		}
	}

	matches := make([]ReIDMatch, 0)
	for _, pair := range solveAssignment(affinity, reid.simThreshold, reid.algorithm) {
		matches = append(matches, ReIDMatch{
			TrackID:    rowIDs[pair[0]],
			Detection:  withFeatures[pair[1]],
			Similarity: affinity.values[pair[0]][pair[1]],
			IoU:        ious[pair[0]][pair[1]],
		})
	}
	return matches, issues
}
