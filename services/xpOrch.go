package services

import (
	"context"
	"fmt"
	"strings"

	"guildXPBot/services/common"
	"guildXPBot/services/metrics"
	"guildXPBot/services/userService"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

// SetXP overwrites a member's total XP. The cached level is recomputed so
// the derived-level invariant holds after the write.
func (h *Handler) SetXP(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	if !common.IsAdmin(s, i) {
		common.RespondEphemeral(s, i, "You are not authorized to use this command.")
		return
	}

	options := i.ApplicationCommandData().Options
	targetUser := options[0].UserValue(s)
	amount := options[1].IntValue()

	if amount < 0 {
		common.RespondEphemeral(s, i, "XP cannot be negative.")
		return
	}

	user, _, err := userService.GetOrCreateUser(db, i.GuildID, targetUser.ID)
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}
	common.UpdateUserUsername(db, user, common.GetUsernameFromUser(targetUser))

	level, err := h.Calc.Level(amount)
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}
	if err := userService.SetXP(db, user, amount, level); err != nil {
		common.SendError(s, i, err, db)
		return
	}
	h.Boards.Invalidate(context.Background(), i.GuildID)

	common.Respond(s, i, fmt.Sprintf("Set **%s**'s total XP to **%d** (level %d).",
		common.GetUsernameFromUser(targetUser), amount, level))
}

// SetWeekly overwrites a member's weekly XP.
func (h *Handler) SetWeekly(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	if !common.IsAdmin(s, i) {
		common.RespondEphemeral(s, i, "You are not authorized to use this command.")
		return
	}

	options := i.ApplicationCommandData().Options
	targetUser := options[0].UserValue(s)
	amount := options[1].IntValue()

	if amount < 0 {
		common.RespondEphemeral(s, i, "XP cannot be negative.")
		return
	}

	user, _, err := userService.GetOrCreateUser(db, i.GuildID, targetUser.ID)
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}
	if err := userService.SetWeeklyXP(db, user, amount); err != nil {
		common.SendError(s, i, err, db)
		return
	}
	h.Boards.Invalidate(context.Background(), i.GuildID)

	common.Respond(s, i, fmt.Sprintf("Set **%s**'s weekly XP to **%d**.",
		common.GetUsernameFromUser(targetUser), amount))
}

// SetLevel moves a member to the given level by setting their XP to the
// level's threshold. Setting the level column alone would let it drift from
// the XP it is derived from.
func (h *Handler) SetLevel(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	if !common.IsAdmin(s, i) {
		common.RespondEphemeral(s, i, "You are not authorized to use this command.")
		return
	}

	options := i.ApplicationCommandData().Options
	targetUser := options[0].UserValue(s)
	level := int(options[1].IntValue())

	if level < 0 {
		common.RespondEphemeral(s, i, "Level cannot be negative.")
		return
	}
	if level > h.Calc.MaxLevel() {
		common.RespondEphemeral(s, i, fmt.Sprintf("Level cannot exceed %d with the current formula.", h.Calc.MaxLevel()))
		return
	}

	user, _, err := userService.GetOrCreateUser(db, i.GuildID, targetUser.ID)
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}

	threshold := h.Calc.XPForLevel(level)
	if err := userService.SetLevel(db, user, level, threshold); err != nil {
		common.SendError(s, i, err, db)
		return
	}
	h.Boards.Invalidate(context.Background(), i.GuildID)

	common.Respond(s, i, fmt.Sprintf("Set **%s** to level **%d** (%d XP).",
		common.GetUsernameFromUser(targetUser), level, threshold))
}

// ResetXP zeroes a single member's XP, level, and activity counters.
func (h *Handler) ResetXP(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	if !common.IsAdmin(s, i) {
		common.RespondEphemeral(s, i, "You are not authorized to use this command.")
		return
	}

	options := i.ApplicationCommandData().Options
	targetUser := options[0].UserValue(s)

	user, err := userService.GetUser(db, i.GuildID, targetUser.ID)
	if err != nil {
		common.RespondEphemeral(s, i, fmt.Sprintf("**%s** has no recorded activity.", common.GetUsernameFromUser(targetUser)))
		return
	}
	if err := userService.ResetUser(db, user); err != nil {
		common.SendError(s, i, err, db)
		return
	}
	h.Boards.Invalidate(context.Background(), i.GuildID)

	common.Respond(s, i, fmt.Sprintf("Reset all XP data for **%s**.", common.GetUsernameFromUser(targetUser)))
}

// ResetWeekly archives and zeroes the weekly leaderboard for the guild.
// Permanent XP and levels are untouched.
func (h *Handler) ResetWeekly(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	if !common.IsAdmin(s, i) {
		common.RespondEphemeral(s, i, "You are not authorized to use this command.")
		return
	}

	if err := userService.ResetWeekly(db, i.GuildID); err != nil {
		common.SendError(s, i, err, db)
		return
	}
	metrics.WeeklyResets.WithLabelValues("command").Inc()
	h.Boards.Invalidate(context.Background(), i.GuildID)

	common.Respond(s, i, "Weekly leaderboard has been archived and reset.")
}

// Purge bulk-deletes the last N messages from the invoking channel.
func (h *Handler) Purge(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	if !common.IsAdmin(s, i) {
		common.RespondEphemeral(s, i, "You are not authorized to use this command.")
		return
	}

	amount := int(i.ApplicationCommandData().Options[0].IntValue())
	if amount <= 0 {
		common.RespondEphemeral(s, i, "Please specify a positive number of messages to delete.")
		return
	}
	if amount > 100 {
		common.RespondEphemeral(s, i, "You can only delete up to 100 messages at once.")
		return
	}

	messages, err := s.ChannelMessages(i.ChannelID, amount, "", "", "")
	if err != nil {
		common.SendError(s, i, fmt.Errorf("error fetching messages: %v", err), db)
		return
	}

	ids := make([]string, len(messages))
	for idx, m := range messages {
		ids[idx] = m.ID
	}
	if err := s.ChannelMessagesBulkDelete(i.ChannelID, ids); err != nil {
		common.SendError(s, i, fmt.Errorf("error deleting messages: %v", err), db)
		return
	}

	common.RespondEphemeral(s, i, fmt.Sprintf("Successfully deleted **%d** messages.", len(ids)))
}

// ShowConfig replies with a summary of the loaded configuration.
func (h *Handler) ShowConfig(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	if !common.IsAdmin(s, i) {
		common.RespondEphemeral(s, i, "You are not authorized to use this command.")
		return
	}

	cfg := h.Cfg
	xs := cfg.XPSettings

	var rewards strings.Builder
	for _, r := range cfg.RoleRewards {
		rewards.WriteString(fmt.Sprintf("• Level %d: <@&%s>\n", r.Level, r.RoleID))
	}
	if rewards.Len() == 0 {
		rewards.WriteString("none")
	}

	embed := &discordgo.MessageEmbed{
		Title: "⚙️ XP Configuration",
		Color: 0x95a5a6,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "XP Settings",
				Value: fmt.Sprintf("Message: %d-%d XP, %ds cooldown\nVoice: %d-%d XP every %ds",
					xs.MessageXPMin, xs.MessageXPMax, xs.MessageCooldownSeconds,
					xs.VoiceXPMin, xs.VoiceXPMax, xs.VoiceTickIntervalSeconds),
			},
			{
				Name: "Channels",
				Value: fmt.Sprintf("Message whitelist: %d\nVoice whitelist: %d",
					len(cfg.Channels.MessageWhitelist), len(cfg.Channels.VoiceWhitelist)),
			},
			{
				Name:  "Level Formula",
				Value: cfg.LevelFormula.Type,
			},
			{
				Name:  "Role Rewards",
				Value: rewards.String(),
			},
			{
				Name:  "Exempt Roles",
				Value: fmt.Sprintf("%d roles", len(cfg.ExemptRoles)),
			},
		},
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}
}
