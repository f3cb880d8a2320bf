// Package config loads the bot's guild configuration from a JSON file with
// environment variable overrides. The configuration is loaded once at startup
// and treated as read-only afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// cronParser matches the scheduler's cron.WithSeconds expression format.
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

const (
	FormulaExponential = "exponential"
	FormulaAnchors     = "anchors"
)

// Anchor pins the XP required for a specific level in the anchor formula.
type Anchor struct {
	Level int   `koanf:"level" json:"level"`
	XP    int64 `koanf:"xp" json:"xp"`
}

// FormulaConfig selects and parameterizes the XP-to-level curve.
type FormulaConfig struct {
	Type    string   `koanf:"type" json:"type"`
	BaseXP  float64  `koanf:"base_xp" json:"base_xp"`
	Growth  float64  `koanf:"growth" json:"growth"`
	Anchors []Anchor `koanf:"anchors" json:"anchors"`
}

// RoleReward grants RoleID once a member's level reaches Level.
type RoleReward struct {
	Level  int    `koanf:"level" json:"level"`
	RoleID string `koanf:"role_id" json:"role_id"`
}

// XPSettings holds the accrual ranges and throttles.
type XPSettings struct {
	MessageXPMin             int `koanf:"message_xp_min" json:"message_xp_min"`
	MessageXPMax             int `koanf:"message_xp_max" json:"message_xp_max"`
	MessageCooldownSeconds   int `koanf:"message_cooldown_seconds" json:"message_cooldown_seconds"`
	VoiceXPMin               int `koanf:"voice_xp_min" json:"voice_xp_min"`
	VoiceXPMax               int `koanf:"voice_xp_max" json:"voice_xp_max"`
	VoiceTickIntervalSeconds int `koanf:"voice_tick_interval_seconds" json:"voice_tick_interval_seconds"`
}

// Channels lists the channels where activity earns XP.
type Channels struct {
	MessageWhitelist []string `koanf:"message_whitelist" json:"message_whitelist"`
	VoiceWhitelist   []string `koanf:"voice_whitelist" json:"voice_whitelist"`
}

// Config is the full guild configuration.
type Config struct {
	GuildID                string        `koanf:"guild_id" json:"guild_id"`
	AnnouncementsChannelID string        `koanf:"announcements_channel_id" json:"announcements_channel_id"`
	ModLogChannelID        string        `koanf:"mod_log_channel_id" json:"mod_log_channel_id"`
	XPSettings             XPSettings    `koanf:"xp_settings" json:"xp_settings"`
	Channels               Channels      `koanf:"channels" json:"channels"`
	RoleRewards            []RoleReward  `koanf:"role_rewards" json:"role_rewards"`
	ReplaceLowerRewards    bool          `koanf:"role_rewards_replace_lower" json:"role_rewards_replace_lower"`
	ExemptRoles            []string      `koanf:"exempt_roles" json:"exempt_roles"`
	LevelFormula           FormulaConfig `koanf:"level_formula" json:"level_formula"`
	WeeklyResetCron        string        `koanf:"weekly_reset_cron" json:"weekly_reset_cron"`
	Addr                   string        `koanf:"addr" json:"addr"`
	MaxLeaderboardLimit    int           `koanf:"max_leaderboard_limit" json:"max_leaderboard_limit"`
	CacheTTLSeconds        int           `koanf:"cache_ttl_seconds" json:"cache_ttl_seconds"`
}

// defaults mirror the original deployment's out-of-the-box behavior.
func defaults() *Config {
	return &Config{
		XPSettings: XPSettings{
			MessageXPMin:             15,
			MessageXPMax:             25,
			MessageCooldownSeconds:   15,
			VoiceXPMin:               15,
			VoiceXPMax:               25,
			VoiceTickIntervalSeconds: 60,
		},
		ReplaceLowerRewards: true,
		LevelFormula: FormulaConfig{
			Type:   FormulaExponential,
			BaseXP: 100,
			Growth: 1.5,
		},
		// Monday 00:00, seconds field included per robfig/cron WithSeconds.
		WeeklyResetCron:     "0 0 0 * * 1",
		Addr:                ":8080",
		MaxLeaderboardLimit: 50,
		CacheTTLSeconds:     30,
	}
}

// Load builds a Config by layering defaults, the JSON config file, and
// XPBOT_-prefixed environment variables (low to high precedence). Path ""
// falls back to $CONFIG_PATH, then ./config.json. A missing file is allowed;
// a malformed one is not.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.json"
	}

	k := koanf.New(".")

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	// XPBOT_GUILD_ID -> guild_id, XPBOT_ADDR -> addr, etc.
	envProvider := env.Provider("XPBOT_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "XPBOT_"))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	cfg := defaults()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// GUILD_ID is also honored bare so .env deployments keep working.
	if cfg.GuildID == "" {
		cfg.GuildID = os.Getenv("GUILD_ID")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would produce a broken level curve or
// nonsensical accrual settings. Called at load time; failures are fatal.
func (c *Config) Validate() error {
	if c.GuildID == "" {
		return errors.New("config: guild_id is required")
	}
	xs := c.XPSettings
	if xs.MessageXPMin < 0 || xs.VoiceXPMin < 0 {
		return errors.New("config: XP minimums must be non-negative")
	}
	if xs.MessageXPMin > xs.MessageXPMax {
		return fmt.Errorf("config: message_xp_min %d exceeds message_xp_max %d", xs.MessageXPMin, xs.MessageXPMax)
	}
	if xs.VoiceXPMin > xs.VoiceXPMax {
		return fmt.Errorf("config: voice_xp_min %d exceeds voice_xp_max %d", xs.VoiceXPMin, xs.VoiceXPMax)
	}
	if xs.MessageCooldownSeconds < 0 {
		return errors.New("config: message_cooldown_seconds must be non-negative")
	}
	if xs.VoiceTickIntervalSeconds <= 0 {
		return errors.New("config: voice_tick_interval_seconds must be positive")
	}
	if c.MaxLeaderboardLimit <= 0 {
		return errors.New("config: max_leaderboard_limit must be positive")
	}
	if _, err := cronParser.Parse(c.WeeklyResetCron); err != nil {
		return fmt.Errorf("config: invalid weekly_reset_cron %q: %w", c.WeeklyResetCron, err)
	}

	switch c.LevelFormula.Type {
	case FormulaExponential:
		if c.LevelFormula.BaseXP <= 0 {
			return errors.New("config: level_formula.base_xp must be positive")
		}
		if c.LevelFormula.Growth <= 1 {
			return errors.New("config: level_formula.growth must be greater than 1")
		}
	case FormulaAnchors:
		if len(c.LevelFormula.Anchors) == 0 {
			return errors.New("config: level_formula.anchors must not be empty")
		}
		prevLevel, prevXP := 0, int64(0)
		for _, a := range c.LevelFormula.Anchors {
			if a.Level <= prevLevel {
				return fmt.Errorf("config: anchor levels must be strictly increasing, got level %d after %d", a.Level, prevLevel)
			}
			if a.XP <= prevXP {
				return fmt.Errorf("config: anchor XP must be strictly increasing, got %d after %d", a.XP, prevXP)
			}
			if a.XP-prevXP < int64(a.Level-prevLevel) {
				return fmt.Errorf("config: anchor at level %d is too close to the previous one to keep thresholds strictly increasing", a.Level)
			}
			prevLevel, prevXP = a.Level, a.XP
		}
	default:
		return fmt.Errorf("config: unknown level_formula.type %q", c.LevelFormula.Type)
	}

	seen := map[int]bool{}
	for _, r := range c.RoleRewards {
		if r.Level <= 0 {
			return fmt.Errorf("config: role reward level %d must be positive", r.Level)
		}
		if r.RoleID == "" {
			return fmt.Errorf("config: role reward for level %d is missing role_id", r.Level)
		}
		if seen[r.Level] {
			return fmt.Errorf("config: duplicate role reward for level %d", r.Level)
		}
		seen[r.Level] = true
	}
	return nil
}

// MessageWhitelisted reports whether XP accrues for messages in channelID.
// An empty whitelist tracks every channel.
func (c *Config) MessageWhitelisted(channelID string) bool {
	return whitelisted(c.Channels.MessageWhitelist, channelID)
}

// VoiceWhitelisted reports whether XP accrues for voice presence in channelID.
func (c *Config) VoiceWhitelisted(channelID string) bool {
	return whitelisted(c.Channels.VoiceWhitelist, channelID)
}

func whitelisted(list []string, channelID string) bool {
	if len(list) == 0 {
		return true
	}
	for _, id := range list {
		if id == channelID {
			return true
		}
	}
	return false
}
