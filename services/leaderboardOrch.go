package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"guildXPBot/services/common"
	"guildXPBot/services/leaderboardService"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

// ShowLeaderboard replies with the all-time leaderboard.
func (h *Handler) ShowLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	h.showBoard(s, i, db, leaderboardService.BoardPermanent, "🏆 Leaderboard", "XP")
}

// ShowWeeklyLeaderboard replies with this week's leaderboard.
func (h *Handler) ShowWeeklyLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	h.showBoard(s, i, db, leaderboardService.BoardWeekly, "📅 Weekly Leaderboard", "weekly XP")
}

func (h *Handler) showBoard(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB, board, title, unit string) {
	guildID := i.GuildID

	limit := leaderboardService.DefaultLimit
	options := i.ApplicationCommandData().Options
	if len(options) > 0 {
		limit = int(options[0].IntValue())
	}

	entries, err := h.Boards.Top(context.Background(), db, guildID, board, limit)
	if err != nil {
		common.SendError(s, i, fmt.Errorf("error querying leaderboard: %v", err), db)
		return
	}

	if len(entries) == 0 {
		common.Respond(s, i, "No users found on the leaderboard.")
		return
	}

	description := ""
	for _, entry := range entries {
		name := entry.Username
		if name == "" {
			name = common.DisplayName(db, s, guildID, entry.UserID)
		}
		description += fmt.Sprintf("**%d. %s** - %d %s (Level %d)\n",
			entry.Rank, name, entry.XP, unit, entry.Level)
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       0x00ff00,
	}

	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	}

	// The chart is decoration; a render failure still sends the text board.
	if png, chartErr := leaderboardService.RenderChart(title, entries); chartErr == nil {
		data.Files = []*discordgo.File{
			{Name: "leaderboard.png", ContentType: "image/png", Reader: bytes.NewReader(png)},
		}
	} else {
		slog.Warn("rendering leaderboard chart", "error", chartErr)
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		return
	}
}
