package mot

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNMSDuplicates(t *testing.T) {
	boxes := []Rectangle{
		NewRectFromCorners(0, 0, 100, 95),
		NewRectFromCorners(0, 0, 100, 100),
	}
	scores := []float64{0.8, 0.9}
	if iou := IoU(boxes[0], boxes[1]); iou < 0.949 || iou > 0.951 {
		t.Fatalf("Unexpected IoU between test boxes: %v", iou)
	}
	kept := NMS(boxes, scores, 0.5)
	if diff := cmp.Diff([]int{1}, kept); diff != "" {
		t.Errorf("Wrong kept indices (-want +got):\n%s", diff)
	}
}

func TestNMSOrder(t *testing.T) {
	boxes := []Rectangle{
		NewRectFromCorners(0, 0, 10, 10),
		NewRectFromCorners(100, 100, 110, 110),
		NewRectFromCorners(200, 200, 210, 210),
		NewRectFromCorners(1, 1, 11, 11),
	}
	scores := []float64{0.5, 0.7, 0.7, 0.9}
	kept := NMS(boxes, scores, 0.3)
	// Equal scores keep input order
	if diff := cmp.Diff([]int{3, 1, 2}, kept); diff != "" {
		t.Errorf("Wrong kept indices (-want +got):\n%s", diff)
	}
	if kept := NMS(nil, nil, 0.3); len(kept) != 0 {
		t.Errorf("Expected nothing for empty input, got %v", kept)
	}
}

func TestNMSSurvivorsOverlap(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(30)
		boxes := make([]Rectangle, n)
		scores := make([]float64, n)
		for i := range boxes {
			x := rng.Float64() * 200
			y := rng.Float64() * 200
			boxes[i] = NewRect(x, y, 10+rng.Float64()*60, 10+rng.Float64()*60)
			scores[i] = rng.Float64()
		}
		threshold := 0.1 + rng.Float64()*0.8
		kept := NMS(boxes, scores, threshold)
		if len(kept) == 0 {
			t.Fatalf("Round %d: at least one box must survive", round)
		}
		for a := 0; a < len(kept); a++ {
			if a > 0 && scores[kept[a]] > scores[kept[a-1]] {
				t.Errorf("Round %d: survivors are not sorted by score", round)
			}
			for b := a + 1; b < len(kept); b++ {
				if iou := IoU(boxes[kept[a]], boxes[kept[b]]); iou > threshold {
					t.Errorf("Round %d: survivors %d and %d overlap with IoU %v > %v", round, kept[a], kept[b], iou, threshold)
				}
			}
		}
	}
}
