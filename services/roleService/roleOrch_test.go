package roleService

import (
	"testing"

	"guildXPBot/config"
	"guildXPBot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeRoleManager struct {
	added   []string
	removed []string
	embeds  []string // channel IDs that received an embed
	failAdd map[string]bool
}

func (f *fakeRoleManager) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	if f.failAdd[roleID] {
		return assert.AnError
	}
	f.added = append(f.added, roleID)
	return nil
}

func (f *fakeRoleManager) GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.removed = append(f.removed, roleID)
	return nil
}

func (f *fakeRoleManager) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.embeds = append(f.embeds, channelID)
	return &discordgo.Message{}, nil
}

func rewardConfig(replaceLower bool) *config.Config {
	return &config.Config{
		GuildID:             "g1",
		ReplaceLowerRewards: replaceLower,
		RoleRewards: []config.RoleReward{
			{Level: 20, RoleID: "gold"},
			{Level: 5, RoleID: "bronze"},
			{Level: 10, RoleID: "silver"},
		},
	}
}

func testMember(roles ...string) *discordgo.Member {
	return &discordgo.Member{
		User:  &discordgo.User{ID: "u1", Username: "tester"},
		Roles: roles,
	}
}

func rolesTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.ErrorLog{}))
	return db
}

func TestEligibleRoles(t *testing.T) {
	tests := []struct {
		name         string
		replaceLower bool
		level        int
		expected     []string
	}{
		{name: "below every threshold", level: 4, expected: nil},
		{name: "stacked at mid level", level: 12, expected: []string{"bronze", "silver"}},
		{name: "stacked at top level", level: 30, expected: []string{"bronze", "silver", "gold"}},
		{name: "replace lower keeps highest only", replaceLower: true, level: 12, expected: []string{"silver"}},
		{name: "replace lower single threshold", replaceLower: true, level: 6, expected: []string{"bronze"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(rewardConfig(tt.replaceLower))
			var got []string
			for _, r := range svc.EligibleRoles(tt.level) {
				got = append(got, r.RoleID)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestHandleLevelUp_GrantsMissingRoles(t *testing.T) {
	svc := New(rewardConfig(false))
	rm := &fakeRoleManager{}

	svc.HandleLevelUp(rm, rolesTestDB(t), "g1", testMember("bronze"), 4, 12)

	// bronze is already held, only silver is granted.
	assert.Equal(t, []string{"silver"}, rm.added)
	assert.Empty(t, rm.removed)
}

func TestHandleLevelUp_ReplaceLowerRevokesOutgrown(t *testing.T) {
	svc := New(rewardConfig(true))
	rm := &fakeRoleManager{}

	svc.HandleLevelUp(rm, rolesTestDB(t), "g1", testMember("bronze", "unrelated"), 4, 12)

	assert.Equal(t, []string{"silver"}, rm.added)
	// Only outgrown reward roles are revoked, never unrelated ones.
	assert.Equal(t, []string{"bronze"}, rm.removed)
}

func TestHandleLevelUp_NoRewardsConfigured(t *testing.T) {
	cfg := rewardConfig(false)
	cfg.RoleRewards = nil
	svc := New(cfg)
	rm := &fakeRoleManager{}

	svc.HandleLevelUp(rm, rolesTestDB(t), "g1", testMember(), 1, 2)

	assert.Empty(t, rm.added)
	assert.Empty(t, rm.removed)
}

func TestHandleLevelUp_GrantFailureIsLoggedNotFatal(t *testing.T) {
	svc := New(rewardConfig(false))
	rm := &fakeRoleManager{failAdd: map[string]bool{"bronze": true}}
	db := rolesTestDB(t)

	svc.HandleLevelUp(rm, db, "g1", testMember(), 4, 12)

	// silver still lands even though bronze failed.
	assert.Equal(t, []string{"silver"}, rm.added)

	var count int64
	require.NoError(t, db.Model(&models.ErrorLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHandleLevelUp_Announces(t *testing.T) {
	cfg := rewardConfig(false)
	cfg.AnnouncementsChannelID = "announce"
	svc := New(cfg)
	rm := &fakeRoleManager{}

	svc.HandleLevelUp(rm, rolesTestDB(t), "g1", testMember(), 4, 6)

	assert.Equal(t, []string{"bronze"}, rm.added)
	assert.Contains(t, rm.embeds, "announce")
}
