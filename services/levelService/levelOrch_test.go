package levelService

import (
	"math"
	"testing"

	"guildXPBot/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exponentialCfg() config.FormulaConfig {
	return config.FormulaConfig{Type: config.FormulaExponential, BaseXP: 100, Growth: 1.5}
}

func anchorCfg() config.FormulaConfig {
	return config.FormulaConfig{
		Type: config.FormulaAnchors,
		Anchors: []config.Anchor{
			{Level: 5, XP: 7500},
			{Level: 10, XP: 60000},
			{Level: 20, XP: 120000},
			{Level: 30, XP: 225000},
			{Level: 50, XP: 375000},
		},
	}
}

func TestNew_RejectsInvalidConfigs(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.FormulaConfig
	}{
		{
			name: "unknown formula type",
			cfg:  config.FormulaConfig{Type: "linear", BaseXP: 100, Growth: 1.5},
		},
		{
			name: "zero base XP",
			cfg:  config.FormulaConfig{Type: config.FormulaExponential, BaseXP: 0, Growth: 1.5},
		},
		{
			name: "growth of exactly 1 never levels",
			cfg:  config.FormulaConfig{Type: config.FormulaExponential, BaseXP: 100, Growth: 1},
		},
		{
			name: "no anchors",
			cfg:  config.FormulaConfig{Type: config.FormulaAnchors},
		},
		{
			name: "anchor levels out of order",
			cfg: config.FormulaConfig{
				Type:    config.FormulaAnchors,
				Anchors: []config.Anchor{{Level: 10, XP: 1000}, {Level: 5, XP: 2000}},
			},
		},
		{
			name: "anchor XP not increasing",
			cfg: config.FormulaConfig{
				Type:    config.FormulaAnchors,
				Anchors: []config.Anchor{{Level: 5, XP: 2000}, {Level: 10, XP: 2000}},
			},
		},
		{
			name: "anchors too close produce a flat threshold",
			cfg: config.FormulaConfig{
				Type:    config.FormulaAnchors,
				Anchors: []config.Anchor{{Level: 5, XP: 1000}, {Level: 100, XP: 1010}},
			},
		},
		{
			name: "base XP so large even level 1 cannot be represented",
			cfg:  config.FormulaConfig{Type: config.FormulaExponential, BaseXP: 1e19, Growth: 1.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestLevel_NegativeXP(t *testing.T) {
	for _, cfg := range []config.FormulaConfig{exponentialCfg(), anchorCfg()} {
		calc, err := New(cfg)
		require.NoError(t, err)

		_, err = calc.Level(-1)
		assert.ErrorIs(t, err, ErrNegativeXP)
	}
}

func TestLevel_ZeroBelowFirstThreshold(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.FormulaConfig
	}{
		{name: "exponential", cfg: exponentialCfg()},
		{name: "anchors", cfg: anchorCfg()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc, err := New(tt.cfg)
			require.NoError(t, err)

			first := calc.XPForLevel(1)
			require.Greater(t, first, int64(0))

			for _, xp := range []int64{0, 1, first - 1} {
				level, err := calc.Level(xp)
				require.NoError(t, err)
				assert.Equal(t, 0, level, "xp=%d", xp)
			}

			level, err := calc.Level(first)
			require.NoError(t, err)
			assert.Equal(t, 1, level)
		})
	}
}

func TestLevel_RoundTripsXPForLevel(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.FormulaConfig
		maxLevel int
	}{
		{name: "exponential", cfg: exponentialCfg(), maxLevel: 30},
		{name: "anchors including extrapolation", cfg: anchorCfg(), maxLevel: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc, err := New(tt.cfg)
			require.NoError(t, err)

			for l := 1; l <= tt.maxLevel; l++ {
				threshold := calc.XPForLevel(l)

				got, err := calc.Level(threshold)
				require.NoError(t, err)
				assert.Equal(t, l, got, "at threshold for level %d (%d XP)", l, threshold)

				got, err = calc.Level(threshold - 1)
				require.NoError(t, err)
				assert.Equal(t, l-1, got, "one XP below threshold for level %d", l)
			}
		})
	}
}

func TestLevel_MonotonicInXP(t *testing.T) {
	for _, cfg := range []config.FormulaConfig{exponentialCfg(), anchorCfg()} {
		calc, err := New(cfg)
		require.NoError(t, err)

		prev := 0
		for xp := int64(0); xp <= 500000; xp += 137 {
			level, err := calc.Level(xp)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, level, prev, "level dropped at xp=%d", xp)
			prev = level
		}
	}
}

func TestXPForLevel_AnchorInterpolation(t *testing.T) {
	calc, err := New(anchorCfg())
	require.NoError(t, err)

	tests := []struct {
		level int
		xp    int64
	}{
		{level: 0, xp: 0},
		{level: 1, xp: 1500},   // 7500/5
		{level: 5, xp: 7500},   // anchor
		{level: 10, xp: 60000}, // anchor
		{level: 15, xp: 90000}, // midway 10..20
		{level: 50, xp: 375000},
		{level: 51, xp: 382500}, // extrapolated at 7500/level
		{level: 60, xp: 450000},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.xp, calc.XPForLevel(tt.level), "level %d", tt.level)
	}
}

func TestXPForLevel_HighLevelsDoNotOverflow(t *testing.T) {
	calc, err := New(exponentialCfg())
	require.NoError(t, err)

	// 100 * 1.5^97 exceeds int64, so the representable cap sits below 97.
	max := calc.MaxLevel()
	require.Greater(t, max, 50)
	require.Less(t, max, 97)

	prev := int64(0)
	for l := 1; l <= max; l++ {
		threshold := calc.XPForLevel(l)
		require.Greater(t, threshold, prev, "threshold at level %d", l)
		prev = threshold
	}

	capThreshold := calc.XPForLevel(max)
	for _, l := range []int{max + 1, 97, 100, 200, 1000} {
		got := calc.XPForLevel(l)
		assert.GreaterOrEqual(t, got, int64(0), "level %d", l)
		assert.Equal(t, capThreshold, got, "level %d clamps to the cap", l)
	}

	level, err := calc.Level(capThreshold)
	require.NoError(t, err)
	assert.Equal(t, max, level)

	level, err = calc.Level(math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, max, level)
}

func TestMaxLevel_Anchors(t *testing.T) {
	calc, err := New(anchorCfg())
	require.NoError(t, err)

	// Extrapolation at 7500 XP per level stays far from int64, so the hard
	// cap applies.
	assert.Equal(t, 1000, calc.MaxLevel())
	assert.Equal(t, int64(375000+7500*950), calc.XPForLevel(1000))
	assert.Equal(t, calc.XPForLevel(1000), calc.XPForLevel(1500))

	level, err := calc.Level(math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, 1000, level)
}

func TestProgress(t *testing.T) {
	calc, err := New(exponentialCfg())
	require.NoError(t, err)

	floor := calc.XPForLevel(3)
	ceil := calc.XPForLevel(4)
	xp := floor + (ceil-floor)/2

	p, err := calc.Progress(xp)
	require.NoError(t, err)

	assert.Equal(t, 3, p.Level)
	assert.Equal(t, xp-floor, p.IntoLevel)
	assert.Equal(t, ceil-floor, p.Needed)
	assert.InDelta(t, 50, p.Percent, 1)
}

func TestProgress_NegativeXP(t *testing.T) {
	calc, err := New(exponentialCfg())
	require.NoError(t, err)

	_, err = calc.Progress(-5)
	assert.ErrorIs(t, err, ErrNegativeXP)
}
