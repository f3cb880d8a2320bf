// Package levelService maps accumulated XP to levels and back under a
// configurable formula. The calculator is pure and safe for concurrent use.
package levelService

import (
	"errors"
	"fmt"
	"math"

	"guildXPBot/config"
)

// ErrNegativeXP is returned when a caller passes a negative XP total.
var ErrNegativeXP = errors.New("levelService: XP must be non-negative")

// hardLevelCap bounds formula evaluation so a corrupt XP value cannot spin
// the exponential curve past float precision.
const hardLevelCap = 1000

// Calculator converts between XP totals and levels. Level(xp) is the largest
// L >= 0 with XPForLevel(L) <= xp, so it is monotonic non-decreasing in xp
// and Level(XPForLevel(L)) == L for every level up to MaxLevel.
type Calculator struct {
	formulaType string
	baseXP      float64
	growth      float64

	// anchor formula: thresholds[l] is the XP required for level l, built by
	// linear interpolation through the configured anchors from (0, 0).
	// Levels past the table extrapolate with slope XP per level.
	thresholds []int64
	slope      int64

	// maxLevel is the highest level whose threshold fits in int64 under this
	// formula, never above hardLevelCap. Levels past it clamp to it.
	maxLevel int
}

// New validates the formula configuration and builds a Calculator.
// Non-positive base, growth <= 1, or a non-monotonic anchor table are
// configuration errors and should be fatal at startup.
func New(cfg config.FormulaConfig) (*Calculator, error) {
	switch cfg.Type {
	case config.FormulaExponential:
		if cfg.BaseXP <= 0 {
			return nil, errors.New("levelService: base_xp must be positive")
		}
		if cfg.Growth <= 1 {
			return nil, errors.New("levelService: growth must be greater than 1")
		}
		c := &Calculator{formulaType: cfg.Type, baseXP: cfg.BaseXP, growth: cfg.Growth}
		c.maxLevel = hardLevelCap
		for l := 1; l <= hardLevelCap; l++ {
			if cfg.BaseXP*math.Pow(cfg.Growth, float64(l)) >= float64(math.MaxInt64) {
				c.maxLevel = l - 1
				break
			}
		}
		if c.maxLevel < 1 {
			return nil, errors.New("levelService: base_xp puts even level 1 past the representable XP range")
		}
		return c, nil

	case config.FormulaAnchors:
		thresholds, slope, err := buildThresholds(cfg.Anchors)
		if err != nil {
			return nil, err
		}
		c := &Calculator{formulaType: cfg.Type, thresholds: thresholds, slope: slope}
		c.maxLevel = hardLevelCap
		lastLevel := len(thresholds) - 1
		if headroom := (math.MaxInt64 - thresholds[lastLevel]) / slope; int64(hardLevelCap-lastLevel) > headroom {
			c.maxLevel = lastLevel + int(headroom)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("levelService: unknown formula type %q", cfg.Type)
	}
}

// MaxLevel returns the highest level this formula can represent without
// overflowing the XP threshold. Callers setting levels directly must stay at
// or below it.
func (c *Calculator) MaxLevel() int {
	return c.maxLevel
}

// buildThresholds interpolates per-level XP requirements through the anchors,
// starting from (level 0, 0 XP). The returned slope extends the curve past
// the last anchor.
func buildThresholds(anchors []config.Anchor) ([]int64, int64, error) {
	if len(anchors) == 0 {
		return nil, 0, errors.New("levelService: anchor formula requires at least one anchor")
	}

	prevLevel, prevXP := 0, int64(0)
	last := anchors[len(anchors)-1]
	thresholds := make([]int64, last.Level+1)

	for _, a := range anchors {
		if a.Level <= prevLevel || a.XP <= prevXP {
			return nil, 0, fmt.Errorf("levelService: anchors must be strictly increasing, got level %d / %d XP", a.Level, a.XP)
		}
		span := int64(a.Level - prevLevel)
		for l := prevLevel + 1; l <= a.Level; l++ {
			t := int64(l - prevLevel)
			thresholds[l] = prevXP + t*(a.XP-prevXP)/span
		}
		prevLevel, prevXP = a.Level, a.XP
	}

	for l := 1; l <= last.Level; l++ {
		if thresholds[l] <= thresholds[l-1] {
			return nil, 0, fmt.Errorf("levelService: anchor spacing produces a flat threshold at level %d", l)
		}
	}

	var slope int64
	if len(anchors) >= 2 {
		prev := anchors[len(anchors)-2]
		slope = (last.XP - prev.XP) / int64(last.Level-prev.Level)
	} else {
		slope = last.XP / int64(last.Level)
	}
	if slope < 1 {
		return nil, 0, errors.New("levelService: last anchor segment is too flat to extrapolate")
	}
	return thresholds, slope, nil
}

// XPForLevel returns the XP threshold at which level begins. Level 0 (and
// below) requires no XP; levels past MaxLevel clamp to MaxLevel's threshold
// so the result always fits in int64.
func (c *Calculator) XPForLevel(level int) int64 {
	if level <= 0 {
		return 0
	}
	if level > c.maxLevel {
		level = c.maxLevel
	}

	if c.formulaType == config.FormulaAnchors {
		if level < len(c.thresholds) {
			return c.thresholds[level]
		}
		lastLevel := len(c.thresholds) - 1
		return c.thresholds[lastLevel] + c.slope*int64(level-lastLevel)
	}

	return int64(c.baseXP * math.Pow(c.growth, float64(level)))
}

// Level returns the level for an XP total: the largest L with
// XPForLevel(L) <= xp. Negative XP is an input error.
func (c *Calculator) Level(xp int64) (int, error) {
	if xp < 0 {
		return 0, ErrNegativeXP
	}

	if c.formulaType == config.FormulaAnchors {
		return c.anchorLevel(xp), nil
	}

	if xp < c.XPForLevel(1) {
		return 0, nil
	}
	// Logarithm gets close; step to the exact bracket to absorb float error.
	level := int(math.Log(float64(xp)/c.baseXP) / math.Log(c.growth))
	if level > c.maxLevel {
		level = c.maxLevel
	}
	for level < c.maxLevel && c.XPForLevel(level+1) <= xp {
		level++
	}
	for level > 0 && c.XPForLevel(level) > xp {
		level--
	}
	return level, nil
}

func (c *Calculator) anchorLevel(xp int64) int {
	lastLevel := len(c.thresholds) - 1
	if xp >= c.thresholds[lastLevel] {
		extra := (xp - c.thresholds[lastLevel]) / c.slope
		if extra >= int64(c.maxLevel-lastLevel) {
			return c.maxLevel
		}
		return lastLevel + int(extra)
	}
	// Binary search for the largest threshold <= xp.
	lo, hi := 0, lastLevel
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.thresholds[mid] <= xp {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// Progress describes where an XP total sits within its current level.
type Progress struct {
	Level     int
	IntoLevel int64
	Needed    int64
	Percent   float64
}

// Progress reports XP earned inside the current level and the amount needed
// for the next, for rank cards and the user endpoint.
func (c *Calculator) Progress(xp int64) (Progress, error) {
	level, err := c.Level(xp)
	if err != nil {
		return Progress{}, err
	}
	floor := c.XPForLevel(level)
	ceil := c.XPForLevel(level + 1)
	p := Progress{
		Level:     level,
		IntoLevel: xp - floor,
		Needed:    ceil - floor,
	}
	if p.Needed > 0 {
		p.Percent = float64(p.IntoLevel) / float64(p.Needed) * 100
	} else {
		p.Percent = 100
	}
	return p, nil
}
