package scheduler

import (
	"fmt"
	"log/slog"

	"guildXPBot/config"
	"guildXPBot/models"
	"guildXPBot/scheduler/scheduler_jobs"
	"guildXPBot/services/leaderboardService"
	"guildXPBot/services/voiceService"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// SetupCron starts the background jobs: the per-minute voice tick and the
// weekly leaderboard reset.
func SetupCron(s *discordgo.Session, db *gorm.DB, cfg *config.Config, voice *voiceService.Service, boards *leaderboardService.Service) {
	cronService := cron.New(cron.WithSeconds())

	_, err := cronService.AddFunc("0 * * * * *", func() {
		// Every minute: award XP to members still in tracked voice channels.
		err := scheduler_jobs.VoiceTick(s, db, voice)
		if err != nil {
			slog.Error("voice tick", "error", err)
		}
	})
	if err != nil {
		reportCronError(db, err)
	}

	// The expression is validated at config load, so this only fails if the
	// two parsers ever diverge.
	_, err = cronService.AddFunc(cfg.WeeklyResetCron, func() {
		err := scheduler_jobs.ResetWeekly(db, cfg, boards)
		if err != nil {
			slog.Error("weekly reset", "error", err)
		}
	})
	if err != nil {
		reportCronError(db, err)
	}

	cronService.Start()
}

func reportCronError(db *gorm.DB, err error) {
	slog.Error("registering cron job", "error", err)
	db.Create(&models.ErrorLog{
		GuildID: "CRON ERR",
		Message: fmt.Sprintf("%v", err),
	})
}
