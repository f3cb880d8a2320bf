// Package voiceService tracks who is connected to tracked voice channels and
// feeds the periodic tick that converts presence into XP.
package voiceService

import (
	"fmt"
	"log/slog"
	"time"

	"guildXPBot/config"
	"guildXPBot/models"
	"guildXPBot/services/xpService"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

// Service maintains voice session rows and awards XP on each tick.
type Service struct {
	cfg *config.Config
	xp  *xpService.Service
	now func() time.Time
}

func New(cfg *config.Config, xp *xpService.Service) *Service {
	return &Service{cfg: cfg, xp: xp, now: time.Now}
}

// HandleVoiceStateUpdate keeps the session table in sync with Discord's
// voice state events: join starts a session, leave ends it, and a move to a
// non-tracked channel ends it as well.
func (svc *Service) HandleVoiceStateUpdate(db *gorm.DB, v *discordgo.VoiceStateUpdate) {
	if v.GuildID != svc.cfg.GuildID {
		return
	}

	switch {
	case v.ChannelID == "":
		svc.endSession(db, v.GuildID, v.UserID)
	case svc.cfg.VoiceWhitelisted(v.ChannelID):
		svc.startSession(db, v.GuildID, v.UserID, v.ChannelID)
	default:
		// Moved into a channel that earns nothing.
		svc.endSession(db, v.GuildID, v.UserID)
	}
}

func (svc *Service) startSession(db *gorm.DB, guildID, userID, channelID string) {
	var session models.VoiceSession
	result := db.FirstOrCreate(&session, models.VoiceSession{GuildID: guildID, DiscordID: userID})
	if result.Error != nil {
		slog.Error("starting voice session", "user_id", userID, "error", result.Error)
		return
	}
	session.ChannelID = channelID
	if result.RowsAffected == 1 {
		session.JoinedAt = svc.now().Unix()
	}
	if err := db.Save(&session).Error; err != nil {
		slog.Error("saving voice session", "user_id", userID, "error", err)
	}
}

func (svc *Service) endSession(db *gorm.DB, guildID, userID string) {
	err := db.Unscoped().
		Where("guild_id = ? AND discord_id = ?", guildID, userID).
		Delete(&models.VoiceSession{}).Error
	if err != nil {
		slog.Error("ending voice session", "user_id", userID, "error", err)
	}
}

// Tick awards XP to every member still connected to their tracked channel.
// Sessions whose member has left, moved away, or vanished are cleaned up.
// Runs every minute from cron; the per-user tick interval gating lives in
// the accrual rules.
func (svc *Service) Tick(s *discordgo.Session, db *gorm.DB) error {
	guildID := svc.cfg.GuildID

	var sessions []models.VoiceSession
	if err := db.Where("guild_id = ?", guildID).Find(&sessions).Error; err != nil {
		return fmt.Errorf("loading voice sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil
	}

	connected := map[string]string{}
	if guild, err := s.State.Guild(guildID); err == nil && guild != nil {
		for _, vs := range guild.VoiceStates {
			connected[vs.UserID] = vs.ChannelID
		}
	} else {
		return fmt.Errorf("guild %s not in state cache", guildID)
	}

	for _, session := range sessions {
		channelID, ok := connected[session.DiscordID]
		if !ok || channelID != session.ChannelID {
			svc.endSession(db, guildID, session.DiscordID)
			continue
		}

		member, err := s.State.Member(guildID, session.DiscordID)
		if err != nil || member == nil {
			member, err = s.GuildMember(guildID, session.DiscordID)
		}
		if err != nil || member == nil {
			// Member left the guild; drop the session.
			svc.endSession(db, guildID, session.DiscordID)
			continue
		}

		result, err := svc.xp.AwardVoiceXP(s, db, guildID, member, session.ChannelID)
		if err != nil {
			slog.Error("awarding voice XP", "user_id", session.DiscordID, "error", err)
			continue
		}
		if result != nil {
			now := svc.now().Unix()
			db.Model(&models.VoiceSession{}).
				Where("guild_id = ? AND discord_id = ?", guildID, session.DiscordID).
				Update("last_tick_at", now)
			slog.Debug("voice XP awarded", "user_id", session.DiscordID, "amount", result.XPAwarded)
		}
	}
	return nil
}
