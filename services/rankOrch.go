package services

import (
	"errors"
	"fmt"

	"guildXPBot/services/common"
	"guildXPBot/services/userService"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

// ShowRank replies with a member's XP totals, derived level, progress to the
// next level, and both leaderboard positions.
func (h *Handler) ShowRank(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	guildID := i.GuildID

	target := i.Member.User
	options := i.ApplicationCommandData().Options
	if len(options) > 0 {
		target = options[0].UserValue(s)
	}

	user, err := userService.GetUser(db, guildID, target.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.RespondEphemeral(s, i, fmt.Sprintf("**%s** has no recorded activity yet.", common.GetUsernameFromUser(target)))
			return
		}
		common.SendError(s, i, fmt.Errorf("error fetching user: %v", err), db)
		return
	}

	progress, err := h.Calc.Progress(user.PermanentXP)
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}

	rank, err := userService.Rank(db, guildID, user.PermanentXP)
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}
	weeklyRank, err := userService.WeeklyRank(db, guildID, user.WeeklyXP)
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Rank: %s", common.GetUsernameFromUser(target)),
		Description: fmt.Sprintf("Stats for <@%s>", target.ID),
		Color:       0x5865f2,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "🏆 Total XP & Level",
				Value:  fmt.Sprintf("%d XP • Level %d", user.PermanentXP, progress.Level),
				Inline: true,
			},
			{
				Name:   "📅 Weekly XP",
				Value:  fmt.Sprintf("%d XP", user.WeeklyXP),
				Inline: true,
			},
			{
				Name:   "🏅 Ranks",
				Value:  fmt.Sprintf("All-time #%d • Weekly #%d", rank, weeklyRank),
				Inline: false,
			},
			{
				Name: fmt.Sprintf("📈 Progress to Level %d", progress.Level+1),
				Value: fmt.Sprintf("%d / %d XP (%.1f%%)",
					progress.IntoLevel, progress.Needed, progress.Percent),
				Inline: false,
			},
			{
				Name:   "💬 Activity",
				Value:  fmt.Sprintf("%d messages • %d voice minutes", user.MessageCount, user.VoiceMinutes),
				Inline: false,
			},
		},
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		return
	}
}
