package services

import (
	"fmt"

	"guildXPBot/config"
	"guildXPBot/services/leaderboardService"
	"guildXPBot/services/levelService"
	"guildXPBot/services/xpService"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

// Handler dispatches slash commands to their implementations. One instance
// is wired at startup with the loaded config and services.
type Handler struct {
	Cfg    *config.Config
	Calc   *levelService.Calculator
	XP     *xpService.Service
	Boards *leaderboardService.Service
}

func NewHandler(cfg *config.Config, calc *levelService.Calculator, xp *xpService.Service, boards *leaderboardService.Service) *Handler {
	return &Handler{Cfg: cfg, Calc: calc, XP: xp, Boards: boards}
}

func (h *Handler) HandleSlashCommand(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	switch i.ApplicationCommandData().Name {
	case "rank":
		h.ShowRank(s, i, db)
	case "leaderboard":
		h.ShowLeaderboard(s, i, db)
	case "weekly-leaderboard":
		h.ShowWeeklyLeaderboard(s, i, db)
	case "set-xp":
		h.SetXP(s, i, db)
	case "set-weekly":
		h.SetWeekly(s, i, db)
	case "set-level":
		h.SetLevel(s, i, db)
	case "reset-xp":
		h.ResetXP(s, i, db)
	case "reset-weekly":
		h.ResetWeekly(s, i, db)
	case "purge":
		h.Purge(s, i, db)
	case "config":
		h.ShowConfig(s, i, db)
	}
}

func RegisterCommands(s *discordgo.Session) error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "rank",
			Description: "Show your XP, level, and leaderboard positions",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "user",
					Description: "Member to look up (defaults to you)",
					Type:        discordgo.ApplicationCommandOptionUser,
					Required:    false,
				},
			},
		},
		{
			Name:        "leaderboard",
			Description: "Show the top members by total XP",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "limit",
					Description: "Number of entries to show (default 10)",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    false,
				},
			},
		},
		{
			Name:        "weekly-leaderboard",
			Description: "Show the top members by XP earned this week",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "limit",
					Description: "Number of entries to show (default 10)",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    false,
				},
			},
		},
		{
			Name:        "set-xp",
			Description: "🛡 Set a member's total XP - ADMIN ONLY",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "user",
					Description: "Member to update",
					Type:        discordgo.ApplicationCommandOptionUser,
					Required:    true,
				},
				{
					Name:        "amount",
					Description: "New total XP (non-negative)",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
				},
			},
		},
		{
			Name:        "set-weekly",
			Description: "🛡 Set a member's weekly XP - ADMIN ONLY",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "user",
					Description: "Member to update",
					Type:        discordgo.ApplicationCommandOptionUser,
					Required:    true,
				},
				{
					Name:        "amount",
					Description: "New weekly XP (non-negative)",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
				},
			},
		},
		{
			Name:        "set-level",
			Description: "🛡 Set a member's level (XP is set to the level's threshold) - ADMIN ONLY",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "user",
					Description: "Member to update",
					Type:        discordgo.ApplicationCommandOptionUser,
					Required:    true,
				},
				{
					Name:        "level",
					Description: "New level (non-negative)",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
				},
			},
		},
		{
			Name:        "reset-xp",
			Description: "🛡 Reset a member's XP, level, and activity counters - ADMIN ONLY",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "user",
					Description: "Member to reset",
					Type:        discordgo.ApplicationCommandOptionUser,
					Required:    true,
				},
			},
		},
		{
			Name:        "reset-weekly",
			Description: "🛡 Archive and reset the weekly leaderboard - ADMIN ONLY",
		},
		{
			Name:        "purge",
			Description: "🛡 Delete the last N messages from this channel - ADMIN ONLY",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "amount",
					Description: "Messages to delete (1-100)",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
				},
			},
		},
		{
			Name:        "config",
			Description: "🛡 Show the current XP configuration - ADMIN ONLY",
		},
	}

	for _, cmd := range commands {
		_, err := s.ApplicationCommandCreate(s.State.User.ID, "", cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%v' command: %v", cmd.Name, err)
		}
	}

	return nil
}
