package mot

import "math"

// Association is outcome of matching current detections against active tracks
type Association struct {
	// Matched maps track identifier to detection index
	Matched map[int64]int
	// Regressable holds identifiers of unmatched tracks which passed NMS and regression score threshold.
	// Such tracks could stay alive on their predicted boxes when detections are not public
	Regressable map[int64]struct{}
	// Unmatched holds identifiers of active tracks left without detection
	Unmatched []int64
	// UnmatchedDetections holds indices of detections which passed threshold and NMS but matched no track
	UnmatchedDetections []int
	// Suppressed is number of detections removed by threshold or NMS
	Suppressed int
}

// Associator matches detections to predicted boxes of active tracks
type Associator struct {
	detectionThresh  float64
	regressionThresh float64
	detectionNMS     float64
	regressionNMS    float64
	matchIoU         float64
	algorithm        MatchingAlgorithm
}

// NewAssociator creates associator from tracker configuration
func NewAssociator(cfg Config) *Associator {
	return &Associator{
		detectionThresh:  cfg.DetectionPersonThresh,
		regressionThresh: cfg.RegressionPersonThresh,
		detectionNMS:     cfg.DetectionNMSThresh,
		regressionNMS:    cfg.RegressionNMSThresh,
		matchIoU:         cfg.MatchIoUThreshold,
		algorithm:        cfg.MatchingAlgorithm,
	}
}

// FilterDetections drops low confidence detections and runs NMS over the rest.
// Returns kept indices in descending score order.
func (associator *Associator) FilterDetections(detections []Detection) []int {
	candidates := make([]int, 0, len(detections))
	for i := range detections {
		if detections[i].Score >= associator.detectionThresh {
			candidates = append(candidates, i)
		}
	}
	boxes := make([]Rectangle, len(candidates))
	scores := make([]float64, len(candidates))
	for k, idx := range candidates {
		boxes[k] = detections[idx].BBox
		scores[k] = detections[idx].Score
	}
	kept := NMS(boxes, scores, associator.detectionNMS)
	out := make([]int, len(kept))
	for k, idx := range kept {
		out[k] = candidates[idx]
	}
	return out
}

// FilterTracks runs NMS over predicted boxes of tracks. Score is not checked here: a track which gets
// a detection refreshes its score, so regression threshold only limits living on a predicted box.
// Tracks must be sorted by identifier. Returns surviving tracks in the same order.
func (associator *Associator) FilterTracks(tracks []*Track) []*Track {
	candidates := make([]*Track, 0, len(tracks))
	for _, track := range tracks {
		if track.GetPredictedBBox().Valid() {
			candidates = append(candidates, track)
		}
	}
	boxes := make([]Rectangle, len(candidates))
	scores := make([]float64, len(candidates))
	for k, track := range candidates {
		boxes[k] = track.GetPredictedBBox()
		scores[k] = track.GetScore()
	}
	kept := NMS(boxes, scores, associator.regressionNMS)
	keptSet := make(map[int]struct{}, len(kept))
	for _, k := range kept {
		keptSet[k] = struct{}{}
	}
	out := make([]*Track, 0, len(kept))
	for k, track := range candidates {
		if _, ok := keptSet[k]; ok {
			out = append(out, track)
		}
	}
	return out
}

// Associate filters both sides and matches them by IoU between predicted track box and detection box.
// Tracks must be active ones sorted by identifier.
func (associator *Associator) Associate(tracks []*Track, detections []Detection) *Association {
	result := &Association{
		Matched:             make(map[int64]int),
		Regressable:         make(map[int64]struct{}),
		Unmatched:           make([]int64, 0),
		UnmatchedDetections: make([]int, 0),
	}

	detIndices := associator.FilterDetections(detections)
	result.Suppressed = len(detections) - len(detIndices)
	eligibleTracks := associator.FilterTracks(tracks)

	rowIDs := make([]int64, len(eligibleTracks))
	for i, track := range eligibleTracks {
		rowIDs[i] = track.GetID()
	}
	colScores := make([]float64, len(detIndices))
	for j, idx := range detIndices {
		colScores[j] = detections[idx].Score
	}
	affinity := newAffinityMatrix(rowIDs, colScores)
	for i, track := range eligibleTracks {
		predicted := track.GetPredictedBBox()
		for j, idx := range detIndices {
			iou := IoU(predicted, detections[idx].BBox)
			if iou > 0 {
				affinity.values[i][j] = iou
			}
		}
	}

	matchedCols := make(map[int]struct{})
	for _, match := range solveAssignment(affinity, associator.matchIoU, associator.algorithm) {
		result.Matched[rowIDs[match[0]]] = detIndices[match[1]]
		matchedCols[match[1]] = struct{}{}
	}

	for _, track := range eligibleTracks {
		if _, ok := result.Matched[track.GetID()]; !ok && track.GetScore() >= associator.regressionThresh {
			result.Regressable[track.GetID()] = struct{}{}
		}
	}
	for _, track := range tracks {
		if _, ok := result.Matched[track.GetID()]; !ok {
			result.Unmatched = append(result.Unmatched, track.GetID())
		}
	}
	for j, idx := range detIndices {
		if _, ok := matchedCols[j]; !ok {
			result.UnmatchedDetections = append(result.UnmatchedDetections, idx)
		}
	}
	return result
}

// SuppressCovered removes detections overlapping any of the given live boxes by more than detection NMS threshold.
// Such detections are duplicates of objects already being tracked.
func (associator *Associator) SuppressCovered(detIndices []int, detections []Detection, live []Rectangle) (kept []int, suppressed int) {
	kept = make([]int, 0, len(detIndices))
	for _, idx := range detIndices {
		maxIoU := 0.0
		for _, rect := range live {
			maxIoU = math.Max(maxIoU, IoU(detections[idx].BBox, rect))
		}
		if maxIoU > associator.detectionNMS {
			suppressed++
			continue
		}
		kept = append(kept, idx)
	}
	return kept, suppressed
}
