package mot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.historyLen())
}

func TestParseWarpMode(t *testing.T) {
	cases := map[string]WarpMode{
		"translation":            WarpTranslation,
		"Euclidean":              WarpEuclidean,
		"cv2.MOTION_AFFINE":      WarpAffine,
		"MOTION_HOMOGRAPHY":      WarpHomography,
		" motion_euclidean ":     WarpEuclidean,
		"cv2.motion_translation": WarpTranslation,
	}
	for s, want := range cases {
		got, err := ParseWarpMode(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}
	_, err := ParseWarpMode("perspective")
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"negative threshold", func(cfg *Config) { cfg.DetectionPersonThresh = -0.1 }},
		{"threshold above one", func(cfg *Config) { cfg.RegressionNMSThresh = 1.5 }},
		{"negative patience", func(cfg *Config) { cfg.InactivePatience = -1 }},
		{"empty gallery with reid", func(cfg *Config) { cfg.MaxFeaturesNum = 0 }},
		{"negative sim threshold", func(cfg *Config) { cfg.ReIDSimThreshold = -1 }},
		{"no motion steps", func(cfg *Config) { cfg.MotionModel.Enabled = true; cfg.MotionModel.NSteps = 0 }},
		{"unknown warp mode", func(cfg *Config) { cfg.WarpMode = WarpMode(42) }},
		{"no iterations", func(cfg *Config) { cfg.DoAlign = true; cfg.NumberOfIterations = 0 }},
		{"negative eps", func(cfg *Config) { cfg.TerminationEps = -1 }},
		{"zero decay", func(cfg *Config) { cfg.RegressionScoreDecay = 0 }},
		{"unknown matching", func(cfg *Config) { cfg.MatchingAlgorithm = MatchingAlgorithm(5) }},
	}
	for _, c := range cases {
		cfg := DefaultConfig()
		c.mutate(&cfg)
		err := cfg.Validate()
		assert.True(t, errors.Is(err, ErrConfig), "%s: expected ErrConfig, got %v", c.name, err)
		_, err = NewTracker(cfg)
		assert.Error(t, err, c.name)
	}

	// center_only without enabled motion model is fine
	cfg := DefaultConfig()
	cfg.MotionModel.Enabled = false
	cfg.MotionModel.CenterOnly = true
	cfg.MotionModel.NSteps = 0
	assert.NoError(t, cfg.Validate())

	// zero gallery is fine when reid is disabled
	cfg = DefaultConfig()
	cfg.DoReID = false
	cfg.MaxFeaturesNum = 0
	assert.NoError(t, cfg.Validate())
}

func TestConfigJSON(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarpMode = WarpAffine
	cfg.MatchingAlgorithm = MatchingAlgorithmHungarian
	cfg.MotionModel.Kind = MotionKalman
	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "affine", raw["warp_mode"])
	assert.Equal(t, "hungarian", raw["matching_algorithm"])
	assert.Equal(t, "cosine", raw["reid_metric"])
	motion, ok := raw["motion_model_cfg"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "kalman", motion["kind"])
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, "tracker.json", `{
		"detection_person_thresh": 0.6,
		"inactive_patience": 3,
		"warp_mode": "cv2.MOTION_EUCLIDEAN",
		"do_align": true,
		"motion_model_cfg": {"enabled": true, "n_steps": 5, "center_only": false}
	}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.DetectionPersonThresh)
	assert.Equal(t, 3, cfg.InactivePatience)
	assert.Equal(t, WarpEuclidean, cfg.WarpMode)
	assert.True(t, cfg.DoAlign)
	assert.True(t, cfg.MotionModel.Enabled)
	assert.Equal(t, 5, cfg.MotionModel.NSteps)
	assert.False(t, cfg.MotionModel.CenterOnly)
	assert.Equal(t, 6, cfg.historyLen())
	// Absent keys keep defaults
	assert.Equal(t, 0.3, cfg.DetectionNMSThresh)
	assert.Equal(t, 10, cfg.MaxFeaturesNum)
	assert.True(t, cfg.DoReID)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "tracker.yaml", `{}`))
	assert.True(t, errors.Is(err, ErrConfig))

	_, err = LoadConfig(writeConfig(t, "bad.json", `{"warp_mode": "MOTION_SPIRAL"}`))
	assert.True(t, errors.Is(err, ErrConfig))

	_, err = LoadConfig(writeConfig(t, "broken.json", `{"inactive_patience": `))
	assert.True(t, errors.Is(err, ErrConfig))

	_, err = LoadConfig(writeConfig(t, "invalid.json", `{"do_reid": true, "max_features_num": 0}`))
	assert.True(t, errors.Is(err, ErrConfig))

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
