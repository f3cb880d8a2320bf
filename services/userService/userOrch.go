// Package userService owns reads and writes of User rows. Every update is a
// single-row read-modify-write scoped by (guild, user); the store's own
// atomicity is the only write discipline this system needs.
package userService

import (
	"encoding/json"
	"fmt"
	"time"

	"guildXPBot/models"

	"gorm.io/gorm"
)

// GetOrCreateUser fetches a member's record, creating a zeroed one on first
// qualifying activity. The second return reports whether a row was created.
func GetOrCreateUser(db *gorm.DB, guildID, discordID string) (*models.User, bool, error) {
	var user models.User
	result := db.FirstOrCreate(&user, models.User{DiscordID: discordID, GuildID: guildID})
	if result.Error != nil {
		return nil, false, fmt.Errorf("fetching or creating user %s: %w", discordID, result.Error)
	}
	return &user, result.RowsAffected == 1, nil
}

// GetUser fetches a member's record without creating one.
func GetUser(db *gorm.DB, guildID, discordID string) (*models.User, error) {
	var user models.User
	err := db.Where("guild_id = ? AND discord_id = ?", guildID, discordID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Leaderboard returns the top users by permanent XP, descending, ties broken
// by Discord ID for a deterministic order.
func Leaderboard(db *gorm.DB, guildID string, limit int) ([]models.User, error) {
	var users []models.User
	err := db.Where("guild_id = ?", guildID).
		Order("permanent_xp desc, discord_id asc").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// WeeklyLeaderboard returns the top users by weekly XP. Members with no
// weekly activity are omitted.
func WeeklyLeaderboard(db *gorm.DB, guildID string, limit int) ([]models.User, error) {
	var users []models.User
	err := db.Where("guild_id = ? AND weekly_xp > 0", guildID).
		Order("weekly_xp desc, discord_id asc").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// Rank returns a member's 1-based position on the permanent leaderboard.
func Rank(db *gorm.DB, guildID string, permanentXP int64) (int64, error) {
	var ahead int64
	err := db.Model(&models.User{}).
		Where("guild_id = ? AND permanent_xp > ?", guildID, permanentXP).
		Count(&ahead).Error
	return ahead + 1, err
}

// WeeklyRank returns a member's 1-based position on the weekly leaderboard.
func WeeklyRank(db *gorm.DB, guildID string, weeklyXP int64) (int64, error) {
	var ahead int64
	err := db.Model(&models.User{}).
		Where("guild_id = ? AND weekly_xp > ?", guildID, weeklyXP).
		Count(&ahead).Error
	return ahead + 1, err
}

// SetXP overwrites a member's permanent XP and cached level.
func SetXP(db *gorm.DB, user *models.User, xp int64, level int) error {
	user.PermanentXP = xp
	user.Level = level
	return db.Save(user).Error
}

// SetWeeklyXP overwrites a member's weekly XP.
func SetWeeklyXP(db *gorm.DB, user *models.User, xp int64) error {
	user.WeeklyXP = xp
	return db.Save(user).Error
}

// SetLevel overwrites a member's permanent XP to the threshold of the given
// level, keeping the derived-level invariant intact instead of letting the
// stored level drift from the XP it should be computed from.
func SetLevel(db *gorm.DB, user *models.User, level int, thresholdXP int64) error {
	user.PermanentXP = thresholdXP
	user.Level = level
	return db.Save(user).Error
}

// ResetUser zeroes all of a member's counters and cooldown stamps.
func ResetUser(db *gorm.DB, user *models.User) error {
	user.PermanentXP = 0
	user.WeeklyXP = 0
	user.Level = 0
	user.MessageCount = 0
	user.VoiceMinutes = 0
	user.LastMessageXPAt = 0
	user.LastVoiceXPAt = 0
	return db.Save(user).Error
}

// weeklyStanding is one archived leaderboard entry.
type weeklyStanding struct {
	UserID   string `json:"user_id"`
	WeeklyXP int64  `json:"weekly_xp"`
}

// ResetWeekly archives the outgoing week's non-zero standings and zeroes
// weekly XP and the per-week activity counters for the whole guild.
// Permanent XP and levels are untouched.
func ResetWeekly(db *gorm.DB, guildID string) error {
	var users []models.User
	err := db.Where("guild_id = ? AND weekly_xp > 0", guildID).
		Order("weekly_xp desc, discord_id asc").
		Find(&users).Error
	if err != nil {
		return fmt.Errorf("loading weekly standings: %w", err)
	}

	if len(users) > 0 {
		standings := make([]weeklyStanding, len(users))
		for i, u := range users {
			standings[i] = weeklyStanding{UserID: u.DiscordID, WeeklyXP: u.WeeklyXP}
		}
		blob, err := json.Marshal(standings)
		if err != nil {
			return fmt.Errorf("encoding weekly archive: %w", err)
		}
		now := time.Now()
		archive := models.WeeklyArchive{
			GuildID:   guildID,
			WeekStart: now.AddDate(0, 0, -7).Format("2006-01-02"),
			WeekEnd:   now.Format("2006-01-02"),
			Standings: string(blob),
		}
		if err := db.Create(&archive).Error; err != nil {
			return fmt.Errorf("writing weekly archive: %w", err)
		}
	}

	return db.Model(&models.User{}).
		Where("guild_id = ?", guildID).
		Updates(map[string]interface{}{
			"weekly_xp":     0,
			"message_count": 0,
			"voice_minutes": 0,
		}).Error
}

// GuildStats aggregates per-guild totals for the stats endpoint.
type GuildStats struct {
	TotalUsers    int64 `json:"total_users"`
	TotalXP       int64 `json:"total_xp"`
	TotalWeeklyXP int64 `json:"total_weekly_xp"`
}

// Stats returns aggregate totals for a guild.
func Stats(db *gorm.DB, guildID string) (*GuildStats, error) {
	var stats GuildStats
	err := db.Model(&models.User{}).
		Where("guild_id = ?", guildID).
		Count(&stats.TotalUsers).Error
	if err != nil {
		return nil, err
	}

	row := db.Model(&models.User{}).
		Where("guild_id = ?", guildID).
		Select("COALESCE(SUM(permanent_xp), 0), COALESCE(SUM(weekly_xp), 0)").
		Row()
	if err := row.Scan(&stats.TotalXP, &stats.TotalWeeklyXP); err != nil {
		return nil, err
	}
	return &stats, nil
}
