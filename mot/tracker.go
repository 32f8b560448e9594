package mot

import (
	"image"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Frame is input of a single tracking step
type Frame struct {
	// Current image. Used for camera motion compensation only, could be nil when alignment is disabled
	Image image.Image
	// Previous image. When nil, image of the last processed frame is used
	Previous image.Image
	// Detections of the current frame
	Detections []Detection
}

// TrackOutput is public view of an active track
type TrackOutput struct {
	ID    int64
	BBox  Rectangle
	Score float64
}

// StepResult is outcome of a single tracking step
type StepResult struct {
	// Frame is zero-based index of processed frame
	Frame int
	// Tracks are active tracks sorted by identifier
	Tracks []TrackOutput
	// Skipped is set when frame could not be applied. Track table stays untouched then
	Skipped    bool
	SkipReason error
	// Warnings are recoverable problems met during the step
	Warnings []error
}

// Tracker is tracking-by-detection engine with re-identification and camera motion compensation.
// It is not safe for concurrent use: one instance serves one video stream.
type Tracker struct {
	cfg        Config
	sessionID  uuid.UUID
	tracks     map[int64]*Track
	nextID     int64
	frameIndex int
	lastImage  image.Image

	aligner    Aligner
	motion     MotionPredictor
	associator *Associator
	reid       *ReIdentifier
	baseLogger zerolog.Logger
	logger     zerolog.Logger
}

// NewTracker creates tracker for a new session. Configuration errors are fatal
func NewTracker(cfg Config, opts ...Option) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tracker := &Tracker{
		cfg:        cfg,
		tracks:     make(map[int64]*Track),
		nextID:     1,
		aligner:    NewECCAligner(cfg),
		motion:     NewMotionPredictor(cfg.MotionModel),
		associator: NewAssociator(cfg),
		reid:       NewReIdentifier(cfg),
		baseLogger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(tracker)
	}
	tracker.startSession()
	return tracker, nil
}

// NewDefaultTracker creates tracker with DefaultConfig
func NewDefaultTracker(opts ...Option) *Tracker {
	tracker, err := NewTracker(DefaultConfig(), opts...)
	if err != nil {
		panic("default configuration must be valid: " + err.Error())
	}
	return tracker
}

func (tracker *Tracker) startSession() {
	tracker.sessionID = uuid.New()
	tracker.logger = tracker.baseLogger.With().Str("session", tracker.sessionID.String()).Logger()
}

// SessionID returns identifier of the current tracking session
func (tracker *Tracker) SessionID() uuid.UUID {
	return tracker.sessionID
}

// Config returns tracker's configuration
func (tracker *Tracker) Config() Config {
	return tracker.cfg
}

// FrameIndex returns index which will be assigned to the next frame
func (tracker *Tracker) FrameIndex() int {
	return tracker.frameIndex
}

// Reset drops every track and starts new session. Identifiers keep growing: they are never reused
func (tracker *Tracker) Reset() {
	tracker.tracks = make(map[int64]*Track)
	tracker.frameIndex = 0
	tracker.lastImage = nil
	tracker.startSession()
}

// Step runs one frame through the tracker: align, predict, associate, commit, re-identify, spawn, age, prune.
// Step never fails: problems are reported in result. When frame can't be applied it is marked as skipped
// and track table is left as it was.
func (tracker *Tracker) Step(frame Frame) StepResult {
	result := StepResult{Frame: tracker.frameIndex}
	logger := tracker.logger.With().Int("frame", tracker.frameIndex).Logger()
	table, nextID, warnings, err := tracker.advance(frame, logger)
	result.Warnings = warnings
	tracker.frameIndex++
	if err != nil {
		logger.Warn().Err(err).Msg("frame skipped")
		result.Skipped = true
		result.SkipReason = err
		result.Tracks = collectActive(tracker.tracks)
		return result
	}
	tracker.tracks = table
	tracker.nextID = nextID
	tracker.lastImage = frame.Image
	result.Tracks = collectActive(tracker.tracks)
	return result
}

// advance computes next state of the track table on a copy of it
func (tracker *Tracker) advance(frame Frame, logger zerolog.Logger) (map[int64]*Track, int64, []error, error) {
	cfg := &tracker.cfg
	warnings := make([]error, 0)
	nextID := tracker.nextID
	table := make(map[int64]*Track, len(tracker.tracks))
	for id, track := range tracker.tracks {
		table[id] = track.Clone()
	}

	detections := make([]Detection, 0, len(frame.Detections))
	for i, det := range frame.Detections {
		if err := det.Validate(); err != nil {
			err = errors.Wrapf(err, "detection #%d", i)
			logger.Debug().Err(err).Msg("detection dropped")
			warnings = append(warnings, err)
			continue
		}
		detections = append(detections, det)
	}
	if len(detections) == 0 {
		logger.Debug().Msg("no detections, tracks are aging")
		warnings = append(warnings, ErrAssociationEmpty)
	}

	// 1. Camera motion compensation
	if cfg.DoAlign && tracker.aligner != nil {
		previous := frame.Previous
		if previous == nil {
			previous = tracker.lastImage
		}
		if previous != nil && frame.Image != nil && len(table) > 0 {
			transform, err := tracker.aligner.Align(previous, frame.Image)
			if err != nil {
				logger.Warn().Err(err).Msg("alignment failed, identity transform is used")
				warnings = append(warnings, err)
				transform = Identity()
			}
			if !transform.IsIdentity() {
				for _, track := range table {
					track.warp(transform, cfg.AlignCenterOnly)
				}
			}
		}
	}

	ids := sortedIDs(table)

	// 2. Motion prediction (anchor for matching only)
	for _, id := range ids {
		track := table[id]
		track.predictedBBox = track.currentBBox
		if tracker.motion == nil {
			continue
		}
		predicted, err := tracker.motion.Predict(track.history)
		if err != nil {
			return nil, 0, warnings, errors.Wrapf(err, "track %d", id)
		}
		track.predictedBBox = predicted
	}

	// 3. Association
	active := make([]*Track, 0, len(ids))
	inactive := make([]*Track, 0, len(ids))
	for _, id := range ids {
		switch table[id].state {
		case TrackActive:
			active = append(active, table[id])
		case TrackInactive:
			inactive = append(inactive, table[id])
		}
	}
	association := tracker.associator.Associate(active, detections)

	// 4. Commit matches
	live := make([]Rectangle, 0, len(active))
	for _, track := range active {
		detIdx, ok := association.Matched[track.id]
		if !ok {
			continue
		}
		track.Update(detections[detIdx])
		live = append(live, track.currentBBox)
	}
	for _, track := range active {
		if _, ok := association.Regressable[track.id]; ok && !track.publicDetections {
			live = append(live, track.predictedBBox)
		}
	}
	leftover, covered := tracker.associator.SuppressCovered(association.UnmatchedDetections, detections, live)
	if covered > 0 {
		logger.Debug().Int("count", covered).Msg("detections covered by live tracks")
	}

	// 5. Re-identification
	reactivated := make(map[int64]struct{})
	if cfg.DoReID && len(leftover) > 0 {
		matches, issues := tracker.reid.Reidentify(inactive, detections, leftover)
		for _, issue := range issues {
			logger.Debug().Err(issue).Msg("re-identification unavailable")
		}
		warnings = append(warnings, issues...)
		used := make(map[int]struct{}, len(matches))
		for _, match := range matches {
			track := table[match.TrackID]
			track.Reactivate(detections[match.Detection])
			reactivated[match.TrackID] = struct{}{}
			used[match.Detection] = struct{}{}
			logger.Debug().Int64("track", match.TrackID).Float64("similarity", match.Similarity).Float64("iou", match.IoU).Msg("track re-identified")
		}
		rest := make([]int, 0, len(leftover))
		for _, idx := range leftover {
			if _, ok := used[idx]; !ok {
				rest = append(rest, idx)
			}
		}
		leftover = rest
	}

	// 6. Spawn new tracks, the most confident detections first
	maxFeatures := 0
	if cfg.DoReID {
		maxFeatures = cfg.MaxFeaturesNum
	}
	for _, idx := range leftover {
		track := NewTrack(nextID, detections[idx], maxFeatures, cfg.historyLen(), cfg.PublicDetections)
		track.Activate()
		table[nextID] = track
		logger.Debug().Int64("track", nextID).Msg("track spawned")
		nextID++
	}

	// 7. Unmatched tracks either live on predicted box or become inactive
	for _, id := range association.Unmatched {
		track := table[id]
		if _, ok := association.Regressable[id]; ok && !track.publicDetections {
			track.selfRegress(cfg.RegressionScoreDecay)
			continue
		}
		track.Deactivate()
	}
	for _, id := range ids {
		if _, ok := reactivated[id]; ok {
			continue
		}
		table[id].Age()
	}

	// 8. Patience
	for _, id := range ids {
		track := table[id]
		if track.state == TrackInactive && track.framesInactive > cfg.InactivePatience {
			track.Kill()
			delete(table, id)
			logger.Debug().Int64("track", id).Msg("track removed")
		}
	}
	return table, nextID, warnings, nil
}

// GetActiveTracks returns active tracks sorted by identifier
func (tracker *Tracker) GetActiveTracks() []TrackOutput {
	return collectActive(tracker.tracks)
}

// GetTracks returns copies of all tracks (active and inactive) sorted by identifier
func (tracker *Tracker) GetTracks() []*Track {
	ids := sortedIDs(tracker.tracks)
	out := make([]*Track, 0, len(ids))
	for _, id := range ids {
		out = append(out, tracker.tracks[id].Clone())
	}
	return out
}

// GetTrack returns copy of the track with given identifier
func (tracker *Tracker) GetTrack(id int64) (*Track, bool) {
	track, ok := tracker.tracks[id]
	if !ok {
		return nil, false
	}
	return track.Clone(), true
}

func sortedIDs(table map[int64]*Track) []int64 {
	ids := make([]int64, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func collectActive(table map[int64]*Track) []TrackOutput {
	out := make([]TrackOutput, 0, len(table))
	for _, id := range sortedIDs(table) {
		track := table[id]
		if track.state != TrackActive {
			continue
		}
		out = append(out, TrackOutput{
			ID:    track.id,
			BBox:  track.currentBBox,
			Score: track.score,
		})
	}
	return out
}
