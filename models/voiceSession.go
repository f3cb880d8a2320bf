package models

import "gorm.io/gorm"

// VoiceSession tracks one member currently connected to a tracked voice
// channel. At most one live row exists per member per guild; the row is
// deleted when they disconnect.
type VoiceSession struct {
	gorm.Model
	ID         uint   `gorm:"primaryKey"`
	DiscordID  string `gorm:"uniqueIndex:voice_user_guild_idx; size:64"`
	GuildID    string `gorm:"uniqueIndex:voice_user_guild_idx; size:64"`
	ChannelID  string `gorm:"size:64"`
	JoinedAt   int64
	LastTickAt int64 `gorm:"default:0"`
}
