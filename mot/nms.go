package mot

import "sort"

// NMS performs greedy Non-Maximum Suppression.
// Boxes are visited in descending score order (ties keep input order); a box is suppressed
// when its IoU with an already kept box exceeds threshold.
// Returns indices of kept boxes in descending score order.
func NMS(boxes []Rectangle, scores []float64, threshold float64) []int {
	n := len(boxes)
	if n == 0 {
		return nil
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	kept := make([]int, 0, n)
	used := make([]bool, n)
	for oi, i := range order {
		if used[i] {
			continue
		}
		kept = append(kept, i)
		used[i] = true
		for _, j := range order[oi+1:] {
			if used[j] {
				continue
			}
			if IoU(boxes[i], boxes[j]) > threshold {
				used[j] = true
			}
		}
	}
	return kept
}
