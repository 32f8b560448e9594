package mot

import "fmt"

// TrackState is lifecycle state of a track
type TrackState uint16

const (
	// TrackNew is transient state: track becomes active in the same frame it is created
	TrackNew TrackState = iota
	// TrackActive is for tracks backed by a detection or by their own predicted box
	TrackActive
	// TrackInactive is for tracks which are lost but still could be re-identified
	TrackInactive
	// TrackDead is terminal: track is removed from the table
	TrackDead
)

func (state TrackState) String() string {
	switch state {
	case TrackNew:
		return "new"
	case TrackActive:
		return "active"
	case TrackInactive:
		return "inactive"
	case TrackDead:
		return "dead"
	default:
		return fmt.Sprintf("TrackState(%d)", uint16(state))
	}
}

// Track is a tracked object
type Track struct {
	id               int64
	currentBBox      Rectangle
	predictedBBox    Rectangle
	score            float64
	state            TrackState
	framesInactive   int
	gallery          *Gallery
	history          []Rectangle
	maxHistoryLen    int
	publicDetections bool
}

// NewTrack creates track in TrackNew state
func NewTrack(id int64, det Detection, maxFeatures, maxHistoryLen int, publicDetections bool) *Track {
	if maxHistoryLen < 1 {
		maxHistoryLen = 1
	}
	track := Track{
		id:               id,
		currentBBox:      det.BBox,
		predictedBBox:    det.BBox,
		score:            det.Score,
		state:            TrackNew,
		framesInactive:   0,
		gallery:          NewGallery(maxFeatures),
		history:          make([]Rectangle, 0, maxHistoryLen+1),
		maxHistoryLen:    maxHistoryLen,
		publicDetections: publicDetections,
	}
	track.history = append(track.history, det.BBox)
	if det.HasFeature() {
		track.gallery.Add(det.Feature)
	}
	return &track
}

// GetID returns track's identifier
func (track *Track) GetID() int64 {
	return track.id
}

// GetBBox returns track's current bounding box
func (track *Track) GetBBox() Rectangle {
	return track.currentBBox
}

// GetPredictedBBox returns box predicted for the current frame. It is used only as matching anchor
func (track *Track) GetPredictedBBox() Rectangle {
	return track.predictedBBox
}

// GetCenter returns track's current center
func (track *Track) GetCenter() Point {
	return track.currentBBox.Center()
}

// GetScore returns track's current confidence
func (track *Track) GetScore() float64 {
	return track.score
}

// GetState returns track's lifecycle state
func (track *Track) GetState() TrackState {
	return track.state
}

// GetFramesInactive returns number of consecutive frames the track has been inactive
func (track *Track) GetFramesInactive() int {
	return track.framesInactive
}

// GetGallery returns track's appearance gallery. Be careful: this is not copy of gallery, but reference to it
func (track *Track) GetGallery() *Gallery {
	return track.gallery
}

// GetHistory returns track's recent boxes, the oldest first. Be careful: this is not copy of history, but reference to it
func (track *Track) GetHistory() []Rectangle {
	return track.history
}

// GetMaxHistoryLen returns track's max history length
func (track *Track) GetMaxHistoryLen() int {
	return track.maxHistoryLen
}

// IsPublic reports whether track requires a fresh detection every frame to stay active
func (track *Track) IsPublic() bool {
	return track.publicDetections
}

// Activate activates track and resets its inactivity counter
func (track *Track) Activate() {
	track.state = TrackActive
	track.framesInactive = 0
}

// Deactivate moves track into inactive state. Counter is advanced by Age
func (track *Track) Deactivate() {
	track.state = TrackInactive
}

// Age increases inactivity counter of inactive track
func (track *Track) Age() {
	if track.state == TrackInactive {
		track.framesInactive++
	}
}

// Kill marks track as dead
func (track *Track) Kill() {
	track.state = TrackDead
}

// Update commits new box and score coming from detection and appends detection's feature to the gallery
func (track *Track) Update(det Detection) {
	track.currentBBox = det.BBox
	track.predictedBBox = det.BBox
	track.score = det.Score
	track.pushHistory(det.BBox)
	if det.HasFeature() {
		track.gallery.Add(det.Feature)
	}
	track.Activate()
}

// Reactivate brings inactive track back with re-identified detection.
// History is restarted since motion before the gap says nothing about motion after it.
func (track *Track) Reactivate(det Detection) {
	track.history = track.history[:0]
	track.Update(det)
}

// selfRegress keeps track alive on its own predicted box
func (track *Track) selfRegress(decay float64) {
	track.currentBBox = track.predictedBBox
	track.score *= decay
	track.pushHistory(track.predictedBBox)
}

// warp expresses track's boxes in coordinates of the next frame
func (track *Track) warp(transform Transform, centerOnly bool) {
	track.currentBBox = transform.TransformBox(track.currentBBox, centerOnly)
	track.predictedBBox = track.currentBBox
	for i := range track.history {
		track.history[i] = transform.TransformBox(track.history[i], centerOnly)
	}
}

func (track *Track) pushHistory(rect Rectangle) {
	track.history = append(track.history, rect)
	if len(track.history) > track.maxHistoryLen {
		track.history = track.history[1:]
	}
}

// Clone returns deep copy of the track (feature vectors are shared)
func (track *Track) Clone() *Track {
	cp := *track
	cp.history = make([]Rectangle, len(track.history), track.maxHistoryLen+1)
	copy(cp.history, track.history)
	cp.gallery = track.gallery.clone()
	return &cp
}
