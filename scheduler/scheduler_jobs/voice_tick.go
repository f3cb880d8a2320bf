package scheduler_jobs

import (
	"guildXPBot/services/voiceService"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

// VoiceTick runs one pass of voice XP accrual over the active sessions.
func VoiceTick(s *discordgo.Session, db *gorm.DB, voice *voiceService.Service) error {
	return voice.Tick(s, db)
}
