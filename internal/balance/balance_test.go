package balance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelsim/internal/game"
)

func TestDefaultLoads(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Version)

	mid, err := cfg.AccessTier(game.AccessPlaylist, "mid")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, mid.ReachMultiplier, 1e-9)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	raw := strings.Replace(string(defaultYAML), "quality_weight:", "qualty_weight:", 1)
	_, err := Load(strings.NewReader(raw))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		errPath string
	}{
		{"decay rate above one", "monthly_decay_rate: 0.85", "monthly_decay_rate: 1.2", "decay.monthly_decay_rate"},
		{"inverted variance", "variance_max: 1.1", "variance_max: 0.5", "streaming.variance_max"},
		{"non monotonic budget curve", "luxury: { ratio: 2.5, multiplier: 1.25 }", "luxury: { ratio: 2.5, multiplier: 1.05 }", "budget_quality.luxury.multiplier"},
		{"unsorted ladder", "{ name: mid, threshold: 30, reach_multiplier: 0.8 }", "{ name: mid, threshold: 5, reach_multiplier: 0.8 }", "access_tiers.playlist[2].threshold"},
		{"missing version", `version: "2025.3"`, `version: ""`, "version"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := strings.Replace(string(defaultYAML), tc.from, tc.to, 1)
			require.NotEqual(t, string(defaultYAML), raw, "fixture replacement did not apply")
			_, err := Load(strings.NewReader(raw))
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.Contains(t, err.Error(), tc.errPath)
		})
	}
}

func TestTierForReputation(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.TierForReputation(game.AccessPlaylist, 0).Name)
	assert.Equal(t, "niche", cfg.TierForReputation(game.AccessPlaylist, 10).Name)
	assert.Equal(t, "mid", cfg.TierForReputation(game.AccessPlaylist, 59).Name)
	assert.Equal(t, "flagship", cfg.TierForReputation(game.AccessPlaylist, 100).Name)
	assert.Equal(t, "theaters", cfg.TierForReputation(game.AccessVenue, 20).Name)
}

func TestScaleFactor(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.InDelta(t, 1.0, cfg.ScaleFactor(1), 1e-9)
	assert.InDelta(t, 1.0, cfg.ScaleFactor(2), 1e-9)
	assert.InDelta(t, 0.95, cfg.ScaleFactor(4), 1e-9)
	assert.InDelta(t, 0.85, cfg.ScaleFactor(12), 1e-9)
}

func TestLookupMisses(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	_, err = cfg.Producer("mythic")
	assert.True(t, IsConfigError(err))
	_, err = cfg.AccessTier(game.AccessVenue, "stadium")
	assert.True(t, IsConfigError(err))

	salary, ok := cfg.ExecutiveSalary("head_of_ar")
	assert.True(t, ok)
	assert.Equal(t, int64(1200), salary)
	_, ok = cfg.ExecutiveSalary("intern")
	assert.False(t, ok)
}
