package mot

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// WarpMode is the class of transform estimated between consecutive frames
type WarpMode uint16

const (
	// WarpTranslation estimates shift only
	WarpTranslation WarpMode = iota
	// WarpEuclidean estimates rotation and shift
	WarpEuclidean
	// WarpAffine estimates full 2x3 affine transform
	WarpAffine
	// WarpHomography estimates 3x3 perspective transform
	WarpHomography
)

func (mode WarpMode) String() string {
	switch mode {
	case WarpTranslation:
		return "translation"
	case WarpEuclidean:
		return "euclidean"
	case WarpAffine:
		return "affine"
	case WarpHomography:
		return "homography"
	default:
		return fmt.Sprintf("WarpMode(%d)", uint16(mode))
	}
}

// numParams returns number of warp parameters being optimized
func (mode WarpMode) numParams() int {
	switch mode {
	case WarpTranslation:
		return 2
	case WarpEuclidean:
		return 3
	case WarpAffine:
		return 6
	default:
		return 8
	}
}

// ParseWarpMode parses warp mode name. Names are case-insensitive and may carry
// OpenCV-like prefixes, e.g. "cv2.MOTION_EUCLIDEAN" or "MOTION_AFFINE".
func ParseWarpMode(s string) (WarpMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "cv2.")
	name = strings.TrimPrefix(name, "motion_")
	switch name {
	case "translation":
		return WarpTranslation, nil
	case "euclidean":
		return WarpEuclidean, nil
	case "affine":
		return WarpAffine, nil
	case "homography":
		return WarpHomography, nil
	}
	return 0, errors.Wrapf(ErrConfig, "unknown warp_mode %q", s)
}

func (mode WarpMode) MarshalText() ([]byte, error) {
	return []byte(mode.String()), nil
}

func (mode *WarpMode) UnmarshalText(text []byte) error {
	parsed, err := ParseWarpMode(string(text))
	if err != nil {
		return err
	}
	*mode = parsed
	return nil
}

// MatchingAlgorithm is for algorithm type for matching detections to tracks
type MatchingAlgorithm uint16

const (
	// MatchingAlgorithmGreedy takes pairs in descending affinity order, each side used once
	MatchingAlgorithmGreedy MatchingAlgorithm = iota
	// MatchingAlgorithmHungarian uses the Hungarian algorithm (Kuhn-Munkres) for optimal assignment
	MatchingAlgorithmHungarian
)

func (algorithm MatchingAlgorithm) String() string {
	switch algorithm {
	case MatchingAlgorithmGreedy:
		return "greedy"
	case MatchingAlgorithmHungarian:
		return "hungarian"
	default:
		return fmt.Sprintf("MatchingAlgorithm(%d)", uint16(algorithm))
	}
}

func (algorithm MatchingAlgorithm) MarshalText() ([]byte, error) {
	return []byte(algorithm.String()), nil
}

func (algorithm *MatchingAlgorithm) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "greedy":
		*algorithm = MatchingAlgorithmGreedy
	case "hungarian":
		*algorithm = MatchingAlgorithmHungarian
	default:
		return errors.Wrapf(ErrConfig, "unknown matching_algorithm %q", string(text))
	}
	return nil
}

// SimilarityMetric is how appearance features are compared
type SimilarityMetric uint16

const (
	// SimilarityCosine is cosine of the angle between feature vectors
	SimilarityCosine SimilarityMetric = iota
	// SimilarityEuclidean maps Euclidean distance d into 1/(1+d)
	SimilarityEuclidean
)

func (metric SimilarityMetric) String() string {
	switch metric {
	case SimilarityCosine:
		return "cosine"
	case SimilarityEuclidean:
		return "euclidean"
	default:
		return fmt.Sprintf("SimilarityMetric(%d)", uint16(metric))
	}
}

func (metric SimilarityMetric) MarshalText() ([]byte, error) {
	return []byte(metric.String()), nil
}

func (metric *SimilarityMetric) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "cosine":
		*metric = SimilarityCosine
	case "euclidean":
		*metric = SimilarityEuclidean
	default:
		return errors.Wrapf(ErrConfig, "unknown reid_metric %q", string(text))
	}
	return nil
}

// MotionKind selects motion predictor implementation
type MotionKind uint16

const (
	// MotionLinear extrapolates mean velocity over the history window
	MotionLinear MotionKind = iota
	// MotionKalman replays the history window through Kalman filter
	MotionKalman
)

func (kind MotionKind) String() string {
	switch kind {
	case MotionLinear:
		return "linear"
	case MotionKalman:
		return "kalman"
	default:
		return fmt.Sprintf("MotionKind(%d)", uint16(kind))
	}
}

func (kind MotionKind) MarshalText() ([]byte, error) {
	return []byte(kind.String()), nil
}

func (kind *MotionKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "linear":
		*kind = MotionLinear
	case "kalman":
		*kind = MotionKalman
	default:
		return errors.Wrapf(ErrConfig, "unknown motion model kind %q", string(text))
	}
	return nil
}

// MotionModelConfig holds constant-velocity model options
type MotionModelConfig struct {
	Enabled    bool       `json:"enabled"`
	NSteps     int        `json:"n_steps"`
	CenterOnly bool       `json:"center_only"`
	Kind       MotionKind `json:"kind"`
}

// Config is the tracker configuration
type Config struct {
	// Minimum detection confidence to participate in matching
	DetectionPersonThresh float64 `json:"detection_person_thresh"`
	// Minimum track confidence for its predicted box to participate in matching
	RegressionPersonThresh float64 `json:"regression_person_thresh"`
	// IoU threshold for suppressing duplicate detections
	DetectionNMSThresh float64 `json:"detection_nms_thresh"`
	// IoU threshold for suppressing duplicate predicted track boxes
	RegressionNMSThresh float64 `json:"regression_nms_thresh"`
	// If true, tracks require a fresh detection each frame. Otherwise tracks may live on predicted box alone
	PublicDetections bool `json:"public_detections"`
	// Max consecutive inactive frames before a track is destroyed
	InactivePatience int `json:"inactive_patience"`

	DoReID           bool             `json:"do_reid"`
	MaxFeaturesNum   int              `json:"max_features_num"`
	ReIDSimThreshold float64          `json:"reid_sim_threshold"`
	ReIDIoUThreshold float64          `json:"reid_iou_threshold"`
	ReIDMetric       SimilarityMetric `json:"reid_metric"`

	MotionModel MotionModelConfig `json:"motion_model_cfg"`

	DoAlign            bool     `json:"do_align"`
	WarpMode           WarpMode `json:"warp_mode"`
	NumberOfIterations int      `json:"number_of_iterations"`
	TerminationEps     float64  `json:"termination_eps"`
	// Frames wider than this are downscaled before alignment. Zero means full resolution
	AlignMaxWidth int `json:"align_max_width"`
	// Move only box centers when compensating camera motion
	AlignCenterOnly bool `json:"align_center_only"`

	// Minimum IoU between predicted track box and detection to be matched
	MatchIoUThreshold float64           `json:"match_iou_threshold"`
	MatchingAlgorithm MatchingAlgorithm `json:"matching_algorithm"`
	// Factor applied to score of self-regressing track each frame. 1.0 keeps score as is
	RegressionScoreDecay float64 `json:"regression_score_decay"`
}

// DefaultConfig returns configuration with the reference tracktor values.
// Note: with private detections and score decay 1.0 a track of an object which left the scene keeps
// self-regressing and stays active. Set regression_score_decay below 1 or public_detections to age such tracks.
func DefaultConfig() Config {
	return Config{
		DetectionPersonThresh:  0.5,
		RegressionPersonThresh: 0.5,
		DetectionNMSThresh:     0.3,
		RegressionNMSThresh:    0.6,
		PublicDetections:       false,
		InactivePatience:       10,
		DoReID:                 true,
		MaxFeaturesNum:         10,
		ReIDSimThreshold:       0.5,
		ReIDIoUThreshold:       0.2,
		ReIDMetric:             SimilarityCosine,
		MotionModel: MotionModelConfig{
			Enabled:    false,
			NSteps:     1,
			CenterOnly: true,
			Kind:       MotionLinear,
		},
		DoAlign:              false,
		WarpMode:             WarpEuclidean,
		NumberOfIterations:   100,
		TerminationEps:       0.00001,
		AlignMaxWidth:        0,
		AlignCenterOnly:      false,
		MatchIoUThreshold:    0.3,
		MatchingAlgorithm:    MatchingAlgorithmGreedy,
		RegressionScoreDecay: 1.0,
	}
}

// historyLen is number of boxes kept per track for motion prediction
func (cfg *Config) historyLen() int {
	if cfg.MotionModel.NSteps < 1 {
		return 2
	}
	return cfg.MotionModel.NSteps + 1
}

func checkUnit(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return errors.Wrapf(ErrConfig, "%s must be in [0, 1], got %v", name, v)
	}
	return nil
}

// Validate checks configuration for malformed or contradictory values
func (cfg *Config) Validate() error {
	units := []struct {
		name  string
		value float64
	}{
		{"detection_person_thresh", cfg.DetectionPersonThresh},
		{"regression_person_thresh", cfg.RegressionPersonThresh},
		{"detection_nms_thresh", cfg.DetectionNMSThresh},
		{"regression_nms_thresh", cfg.RegressionNMSThresh},
		{"reid_iou_threshold", cfg.ReIDIoUThreshold},
		{"match_iou_threshold", cfg.MatchIoUThreshold},
	}
	for _, u := range units {
		if err := checkUnit(u.name, u.value); err != nil {
			return err
		}
	}
	if cfg.InactivePatience < 0 {
		return errors.Wrapf(ErrConfig, "inactive_patience must be non-negative, got %d", cfg.InactivePatience)
	}
	if math.IsNaN(cfg.ReIDSimThreshold) || math.IsInf(cfg.ReIDSimThreshold, 0) || cfg.ReIDSimThreshold < 0 {
		return errors.Wrapf(ErrConfig, "reid_sim_threshold must be finite and non-negative, got %v", cfg.ReIDSimThreshold)
	}
	if cfg.MaxFeaturesNum < 0 {
		return errors.Wrapf(ErrConfig, "max_features_num must be non-negative, got %d", cfg.MaxFeaturesNum)
	}
	if cfg.DoReID && cfg.MaxFeaturesNum == 0 {
		return errors.Wrap(ErrConfig, "max_features_num must be positive when do_reid is enabled")
	}
	if cfg.ReIDMetric > SimilarityEuclidean {
		return errors.Wrapf(ErrConfig, "unknown reid_metric %d", cfg.ReIDMetric)
	}
	if cfg.MotionModel.Enabled && cfg.MotionModel.NSteps < 1 {
		return errors.Wrapf(ErrConfig, "motion_model_cfg.n_steps must be positive, got %d", cfg.MotionModel.NSteps)
	}
	if cfg.MotionModel.Kind > MotionKalman {
		return errors.Wrapf(ErrConfig, "unknown motion model kind %d", cfg.MotionModel.Kind)
	}
	if cfg.WarpMode > WarpHomography {
		return errors.Wrapf(ErrConfig, "unknown warp_mode %d", cfg.WarpMode)
	}
	if cfg.DoAlign && cfg.NumberOfIterations < 1 {
		return errors.Wrapf(ErrConfig, "number_of_iterations must be positive, got %d", cfg.NumberOfIterations)
	}
	if math.IsNaN(cfg.TerminationEps) || cfg.TerminationEps < 0 {
		return errors.Wrapf(ErrConfig, "termination_eps must be non-negative, got %v", cfg.TerminationEps)
	}
	if cfg.AlignMaxWidth < 0 {
		return errors.Wrapf(ErrConfig, "align_max_width must be non-negative, got %d", cfg.AlignMaxWidth)
	}
	if cfg.MatchingAlgorithm > MatchingAlgorithmHungarian {
		return errors.Wrapf(ErrConfig, "unknown matching_algorithm %d", cfg.MatchingAlgorithm)
	}
	if math.IsNaN(cfg.RegressionScoreDecay) || cfg.RegressionScoreDecay <= 0 || cfg.RegressionScoreDecay > 1 {
		return errors.Wrapf(ErrConfig, "regression_score_decay must be in (0, 1], got %v", cfg.RegressionScoreDecay)
	}
	return nil
}

// LoadConfig reads JSON configuration file. Keys absent in the file keep DefaultConfig values
func LoadConfig(path string) (Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Config{}, errors.Wrapf(ErrConfig, "config file must have .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, errors.Wrap(err, "can't stat config file")
	}
	const maxFileSize = 1 << 20
	if fileInfo.Size() > maxFileSize {
		return Config{}, errors.Wrapf(ErrConfig, "config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, errors.Wrap(err, "can't read config file")
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		if errors.Is(err, ErrConfig) {
			return Config{}, err
		}
		return Config{}, errors.Wrapf(ErrConfig, "can't parse config JSON: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
