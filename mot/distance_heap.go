package mot

// candidatePair is a possible (row, column) assignment with its affinity.
// Rows are tracks, columns are detections.
type candidatePair struct {
	row      int
	col      int
	affinity float64
	// tie breakers
	colScore float64
	rowID    int64
}

// Copied from container/heap - https://golang.org/pkg/container/heap/
// Why make copy? Just want to avoid type conversion

// pairHeap is max-heap by affinity
type pairHeap []*candidatePair

func (h pairHeap) Len() int { return len(h) }
func (h pairHeap) Less(i, j int) bool {
	if h[i].affinity != h[j].affinity {
		return h[i].affinity > h[j].affinity
	}
	if h[i].colScore != h[j].colScore {
		return h[i].colScore > h[j].colScore
	}
	if h[i].rowID != h[j].rowID {
		return h[i].rowID < h[j].rowID
	}
	return h[i].col < h[j].col
}
func (h pairHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (h *pairHeap) Push(x *candidatePair) {
	*h = append(*h, x)
	h.up(h.Len() - 1)
}

// Pop removes and returns the maximum element (according to Less) from the heap.
// The complexity is O(log n) where n = h.Len().
func (h *pairHeap) Pop() *candidatePair {
	n := h.Len() - 1
	h.Swap(0, n)
	h.down(0, n)
	heapSize := len(*h)
	lastNode := (*h)[heapSize-1]
	*h = (*h)[0 : heapSize-1]
	return lastNode
}

func (h pairHeap) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		j = i
	}
}

func (h pairHeap) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.Less(j2, j1) {
			j = j2
		}
		if !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		i = j
	}
	return i > i0
}
