package models

import "gorm.io/gorm"

// User is one member's XP record within a guild. Level is a cached
// projection of PermanentXP; readers recompute it from the level formula
// rather than trusting the stored value.
type User struct {
	gorm.Model
	ID              uint   `gorm:"primaryKey"`
	DiscordID       string `gorm:"uniqueIndex:user_guild_idx; size:64"`
	GuildID         string `gorm:"uniqueIndex:user_guild_idx; size:64"`
	Username        *string
	PermanentXP     int64 `gorm:"default:0"`
	WeeklyXP        int64 `gorm:"default:0"`
	Level           int   `gorm:"default:0"`
	MessageCount    int64 `gorm:"default:0"`
	VoiceMinutes    int64 `gorm:"default:0"`
	LastMessageXPAt int64 `gorm:"default:0"`
	LastVoiceXPAt   int64 `gorm:"default:0"`
}
