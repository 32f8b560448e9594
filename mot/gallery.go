package mot

// Gallery is bounded FIFO storage of appearance features for a single track
type Gallery struct {
	features [][]float32
	capacity int
}

// NewGallery creates empty gallery. Non-positive capacity gives gallery which stores nothing
func NewGallery(capacity int) *Gallery {
	if capacity < 0 {
		capacity = 0
	}
	return &Gallery{
		features: make([][]float32, 0, capacity),
		capacity: capacity,
	}
}

// Add appends copy of feature evicting the oldest one when gallery is full
func (gallery *Gallery) Add(feature []float32) {
	if gallery.capacity == 0 || len(feature) == 0 {
		return
	}
	gallery.features = append(gallery.features, append([]float32(nil), feature...))
	if len(gallery.features) > gallery.capacity {
		gallery.features = gallery.features[1:]
	}
}

// Len returns number of stored features
func (gallery *Gallery) Len() int {
	return len(gallery.features)
}

// Capacity returns max number of stored features
func (gallery *Gallery) Capacity() int {
	return gallery.capacity
}

// Features returns stored features from the oldest to the newest. Be careful: vectors are not copied
func (gallery *Gallery) Features() [][]float32 {
	return gallery.features
}

// clone copies gallery's slice of features. Vectors are owned by gallery and never mutated, so they are shared
func (gallery *Gallery) clone() *Gallery {
	features := make([][]float32, len(gallery.features), gallery.capacity)
	copy(features, gallery.features)
	return &Gallery{
		features: features,
		capacity: gallery.capacity,
	}
}

// BestSimilarity returns the highest similarity between feature and any gallery entry.
// Returns false when gallery is empty or no entry could be compared.
func (gallery *Gallery) BestSimilarity(feature []float32, metric SimilarityMetric) (float64, bool, error) {
	best := 0.0
	found := false
	var lastErr error
	for _, stored := range gallery.features {
		sim, err := Similarity(stored, feature, metric)
		if err != nil {
			lastErr = err
			continue
		}
		if !found || sim > best {
			best = sim
			found = true
		}
	}
	if !found {
		return 0, false, lastErr
	}
	return best, true, nil
}
