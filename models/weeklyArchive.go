package models

import "gorm.io/gorm"

// WeeklyArchive snapshots a guild's weekly standings before each reset.
// Standings is a JSON array of {user_id, weekly_xp} entries.
type WeeklyArchive struct {
	gorm.Model
	ID        uint   `gorm:"primaryKey"`
	GuildID   string `gorm:"index; size:64"`
	WeekStart string `gorm:"size:10"`
	WeekEnd   string `gorm:"size:10"`
	Standings string
}
