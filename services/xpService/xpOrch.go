// Package xpService implements the accrual rules: which activity earns XP,
// how much, and how often. A qualifying event adds a randomized delta to both
// permanent and weekly XP, then routes any level increase to the role
// assigner.
package xpService

import (
	"context"
	"math/rand"
	"time"

	"guildXPBot/config"
	"guildXPBot/services/common"
	"guildXPBot/services/leaderboardService"
	"guildXPBot/services/levelService"
	"guildXPBot/services/metrics"
	"guildXPBot/services/roleService"
	"guildXPBot/services/userService"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

// AwardResult reports what a single accrual event did.
type AwardResult struct {
	XPAwarded int64
	OldLevel  int
	NewLevel  int
	TotalXP   int64
	WeeklyXP  int64
	LeveledUp bool
}

// Service applies the accrual rules for one configured guild.
type Service struct {
	cfg    *config.Config
	calc   *levelService.Calculator
	roles  *roleService.Service
	boards *leaderboardService.Service

	// now is swappable in tests.
	now func() time.Time
}

func New(cfg *config.Config, calc *levelService.Calculator, roles *roleService.Service, boards *leaderboardService.Service) *Service {
	return &Service{cfg: cfg, calc: calc, roles: roles, boards: boards, now: time.Now}
}

// IsExempt reports whether a member earns no XP: bots and members holding
// any configured exempt role.
func (svc *Service) IsExempt(member *discordgo.Member) bool {
	if member == nil || member.User == nil || member.User.Bot {
		return true
	}
	for _, roleID := range member.Roles {
		if common.Contains(svc.cfg.ExemptRoles, roleID) {
			return true
		}
	}
	return false
}

// AwardMessageXP handles one qualifying message. Returns nil without error
// when the event earns nothing: wrong guild, non-whitelisted channel, exempt
// member, or a message inside the cooldown window. A suppressed message does
// not refresh the cooldown stamp.
func (svc *Service) AwardMessageXP(rm roleService.RoleManager, db *gorm.DB, guildID string, member *discordgo.Member, channelID string) (*AwardResult, error) {
	if guildID != svc.cfg.GuildID {
		return nil, nil
	}
	if !svc.cfg.MessageWhitelisted(channelID) {
		return nil, nil
	}
	if svc.IsExempt(member) {
		return nil, nil
	}

	user, _, err := userService.GetOrCreateUser(db, guildID, member.User.ID)
	if err != nil {
		return nil, err
	}

	now := svc.now().Unix()
	if now-user.LastMessageXPAt < int64(svc.cfg.XPSettings.MessageCooldownSeconds) {
		return nil, nil
	}

	amount := svc.roll(svc.cfg.XPSettings.MessageXPMin, svc.cfg.XPSettings.MessageXPMax)
	oldLevel, err := svc.calc.Level(user.PermanentXP)
	if err != nil {
		return nil, err
	}

	user.PermanentXP += amount
	user.WeeklyXP += amount
	user.MessageCount++
	user.LastMessageXPAt = now
	common.UpdateUserUsername(db, user, common.GetUsernameFromUser(member.User))

	newLevel, err := svc.calc.Level(user.PermanentXP)
	if err != nil {
		return nil, err
	}
	user.Level = newLevel

	if err := db.Save(user).Error; err != nil {
		return nil, err
	}
	metrics.XPAwarded.WithLabelValues("message").Add(float64(amount))
	svc.boards.Invalidate(context.Background(), guildID)

	result := &AwardResult{
		XPAwarded: amount,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   user.PermanentXP,
		WeeklyXP:  user.WeeklyXP,
		LeveledUp: newLevel > oldLevel,
	}
	if result.LeveledUp {
		metrics.LevelUps.Inc()
		svc.roles.HandleLevelUp(rm, db, guildID, member, oldLevel, newLevel)
	}
	return result, nil
}

// AwardVoiceXP handles one voice tick for a connected member. Gating mirrors
// the message path but uses the voice whitelist and the tick interval, and
// also accumulates VoiceMinutes from the elapsed time.
func (svc *Service) AwardVoiceXP(rm roleService.RoleManager, db *gorm.DB, guildID string, member *discordgo.Member, channelID string) (*AwardResult, error) {
	if guildID != svc.cfg.GuildID {
		return nil, nil
	}
	if !svc.cfg.VoiceWhitelisted(channelID) {
		return nil, nil
	}
	if svc.IsExempt(member) {
		return nil, nil
	}

	user, _, err := userService.GetOrCreateUser(db, guildID, member.User.ID)
	if err != nil {
		return nil, err
	}

	now := svc.now().Unix()
	interval := int64(svc.cfg.XPSettings.VoiceTickIntervalSeconds)
	if now-user.LastVoiceXPAt < interval {
		return nil, nil
	}

	minutes := int64(1)
	if user.LastVoiceXPAt > 0 {
		if m := (now - user.LastVoiceXPAt) / 60; m > minutes {
			minutes = m
		}
	}

	amount := svc.roll(svc.cfg.XPSettings.VoiceXPMin, svc.cfg.XPSettings.VoiceXPMax)
	oldLevel, err := svc.calc.Level(user.PermanentXP)
	if err != nil {
		return nil, err
	}

	user.PermanentXP += amount
	user.WeeklyXP += amount
	user.VoiceMinutes += minutes
	user.LastVoiceXPAt = now

	newLevel, err := svc.calc.Level(user.PermanentXP)
	if err != nil {
		return nil, err
	}
	user.Level = newLevel

	if err := db.Save(user).Error; err != nil {
		return nil, err
	}
	metrics.XPAwarded.WithLabelValues("voice").Add(float64(amount))
	svc.boards.Invalidate(context.Background(), guildID)

	result := &AwardResult{
		XPAwarded: amount,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   user.PermanentXP,
		WeeklyXP:  user.WeeklyXP,
		LeveledUp: newLevel > oldLevel,
	}
	if result.LeveledUp {
		metrics.LevelUps.Inc()
		svc.roles.HandleLevelUp(rm, db, guildID, member, oldLevel, newLevel)
	}
	return result, nil
}

// roll picks a delta in [min, max].
func (svc *Service) roll(min, max int) int64 {
	if max <= min {
		return int64(min)
	}
	return int64(min + rand.Intn(max-min+1))
}
