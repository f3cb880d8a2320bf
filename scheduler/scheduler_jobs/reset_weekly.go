package scheduler_jobs

import (
	"context"
	"log/slog"

	"guildXPBot/config"
	"guildXPBot/services/leaderboardService"
	"guildXPBot/services/metrics"
	"guildXPBot/services/userService"

	"gorm.io/gorm"
)

// ResetWeekly archives the outgoing week's standings and zeroes weekly XP
// for the configured guild. Permanent XP and levels are left untouched.
func ResetWeekly(db *gorm.DB, cfg *config.Config, boards *leaderboardService.Service) error {
	if err := userService.ResetWeekly(db, cfg.GuildID); err != nil {
		return err
	}
	metrics.WeeklyResets.WithLabelValues("cron").Inc()
	boards.Invalidate(context.Background(), cfg.GuildID)
	slog.Info("weekly leaderboard reset", "guild_id", cfg.GuildID)
	return nil
}
