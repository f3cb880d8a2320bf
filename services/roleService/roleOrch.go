// Package roleService grants configured reward roles when a member's derived
// level crosses a threshold. Grant failures are reported and skipped, never
// fatal to the XP update that triggered them.
package roleService

import (
	"fmt"
	"log/slog"
	"sort"

	"guildXPBot/config"
	"guildXPBot/models"
	"guildXPBot/services/common"
	"guildXPBot/services/metrics"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

// RoleManager is the slice of the discordgo session the assigner needs.
// *discordgo.Session satisfies it.
type RoleManager interface {
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Service applies the configured role-reward table.
type Service struct {
	cfg     *config.Config
	rewards []config.RoleReward // sorted ascending by level
}

func New(cfg *config.Config) *Service {
	rewards := make([]config.RoleReward, len(cfg.RoleRewards))
	copy(rewards, cfg.RoleRewards)
	sort.Slice(rewards, func(i, j int) bool { return rewards[i].Level < rewards[j].Level })
	return &Service{cfg: cfg, rewards: rewards}
}

// rewardRoleIDs is the set of all configured reward role IDs.
func (svc *Service) rewardRoleIDs() map[string]bool {
	ids := make(map[string]bool, len(svc.rewards))
	for _, r := range svc.rewards {
		ids[r.RoleID] = true
	}
	return ids
}

// EligibleRoles returns the reward roles a member at the given level should
// hold: every threshold <= level, or just the highest one when lower tiers
// are configured to be replaced.
func (svc *Service) EligibleRoles(level int) []config.RoleReward {
	var eligible []config.RoleReward
	for _, r := range svc.rewards {
		if r.Level <= level {
			eligible = append(eligible, r)
		}
	}
	if svc.cfg.ReplaceLowerRewards && len(eligible) > 1 {
		eligible = eligible[len(eligible)-1:]
	}
	return eligible
}

// HandleLevelUp reconciles a member's reward roles after their derived level
// rose from oldLevel to newLevel. Grants every eligible role not already
// held; when lower tiers are replaced, revokes the outgrown ones.
func (svc *Service) HandleLevelUp(rm RoleManager, db *gorm.DB, guildID string, member *discordgo.Member, oldLevel, newLevel int) {
	if member == nil || len(svc.rewards) == 0 {
		return
	}

	held := make(map[string]bool, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = true
	}

	eligible := svc.EligibleRoles(newLevel)
	keep := make(map[string]bool, len(eligible))
	for _, r := range eligible {
		keep[r.RoleID] = true
	}

	for _, r := range eligible {
		if held[r.RoleID] {
			continue
		}
		err := rm.GuildMemberRoleAdd(guildID, member.User.ID, r.RoleID)
		if err != nil {
			metrics.RoleGrants.WithLabelValues("error").Inc()
			svc.reportRoleError(db, guildID, fmt.Errorf("granting role %s to %s: %w", r.RoleID, member.User.ID, err))
			continue
		}
		metrics.RoleGrants.WithLabelValues("granted").Inc()
		svc.announce(rm, member, r, newLevel)
		svc.auditLog(rm, member, "🎖️ Role Granted",
			fmt.Sprintf("<@%s> was granted <@&%s> for reaching level %d", member.User.ID, r.RoleID, newLevel))
	}

	if svc.cfg.ReplaceLowerRewards {
		rewardIDs := svc.rewardRoleIDs()
		for _, id := range member.Roles {
			if !rewardIDs[id] || keep[id] {
				continue
			}
			err := rm.GuildMemberRoleRemove(guildID, member.User.ID, id)
			if err != nil {
				svc.reportRoleError(db, guildID, fmt.Errorf("removing role %s from %s: %w", id, member.User.ID, err))
				continue
			}
			svc.auditLog(rm, member, "🗑️ Role Removed",
				fmt.Sprintf("<@%s> had <@&%s> removed after leveling up to %d", member.User.ID, id, newLevel))
		}
	}

	svc.auditLog(rm, member, "📈 Level Up",
		fmt.Sprintf("<@%s> leveled up from **%d** to **%d**", member.User.ID, oldLevel, newLevel))
}

func (svc *Service) reportRoleError(db *gorm.DB, guildID string, err error) {
	slog.Error("role reward", "guild_id", guildID, "error", err)
	db.Create(&models.ErrorLog{GuildID: guildID, Message: err.Error()})
}

func (svc *Service) announce(rm RoleManager, member *discordgo.Member, reward config.RoleReward, level int) {
	if svc.cfg.AnnouncementsChannelID == "" {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title: "🎉 New Role Unlocked!",
		Description: fmt.Sprintf("Congratulations %s! You've reached **Level %d** and earned <@&%s>!",
			common.GetUsernameFromUser(member.User), level, reward.RoleID),
		Color: 0x2ecc71,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Role", Value: fmt.Sprintf("<@&%s>", reward.RoleID), Inline: true},
			{Name: "Level", Value: fmt.Sprintf("%d", level), Inline: true},
		},
	}
	if _, err := rm.ChannelMessageSendEmbed(svc.cfg.AnnouncementsChannelID, embed); err != nil {
		slog.Error("announcing role grant", "error", err)
	}
}

func (svc *Service) auditLog(rm RoleManager, member *discordgo.Member, title, description string) {
	if svc.cfg.ModLogChannelID == "" {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       0x3498db,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: common.GetUsernameFromUser(member.User), Inline: true},
		},
	}
	if _, err := rm.ChannelMessageSendEmbed(svc.cfg.ModLogChannelID, embed); err != nil {
		slog.Error("writing mod log", "error", err)
	}
}
