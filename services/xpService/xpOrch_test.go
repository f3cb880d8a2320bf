package xpService

import (
	"testing"
	"time"

	"guildXPBot/config"
	"guildXPBot/models"
	"guildXPBot/services/leaderboardService"
	"guildXPBot/services/levelService"
	"guildXPBot/services/roleService"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testGuild = "guild-1"

type fakeRoleManager struct {
	added []string
}

func (f *fakeRoleManager) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.added = append(f.added, roleID)
	return nil
}

func (f *fakeRoleManager) GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	return nil
}

func (f *fakeRoleManager) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{}, nil
}

// testService wires the accrual service with a fixed XP roll (min == max), a
// disabled cache, and a swappable clock.
func testService(t *testing.T, mutate func(*config.Config)) (*Service, *gorm.DB) {
	t.Helper()

	cfg := &config.Config{
		GuildID: testGuild,
		XPSettings: config.XPSettings{
			MessageXPMin:             20,
			MessageXPMax:             20,
			MessageCooldownSeconds:   15,
			VoiceXPMin:               10,
			VoiceXPMax:               10,
			VoiceTickIntervalSeconds: 60,
		},
		LevelFormula:        config.FormulaConfig{Type: config.FormulaExponential, BaseXP: 100, Growth: 1.5},
		MaxLeaderboardLimit: 50,
	}
	if mutate != nil {
		mutate(cfg)
	}

	calc, err := levelService.New(cfg.LevelFormula)
	require.NoError(t, err)
	cache, err := leaderboardService.NewCache("", 0)
	require.NoError(t, err)

	svc := New(cfg, calc, roleService.New(cfg), leaderboardService.New(cfg, calc, cache))

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.ErrorLog{}))

	return svc, db
}

func fixedClock(svc *Service, unix int64) {
	svc.now = func() time.Time { return time.Unix(unix, 0) }
}

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{
		User:  &discordgo.User{ID: id, Username: id},
		Roles: roles,
	}
}

func TestAwardMessageXP_FirstMessage(t *testing.T) {
	svc, db := testService(t, nil)
	fixedClock(svc, 1000)

	result, err := svc.AwardMessageXP(&fakeRoleManager{}, db, testGuild, member("u1"), "chan")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, int64(20), result.XPAwarded)
	assert.Equal(t, int64(20), result.TotalXP)
	assert.Equal(t, int64(20), result.WeeklyXP)
	assert.False(t, result.LeveledUp)

	var user models.User
	require.NoError(t, db.Where("discord_id = ?", "u1").First(&user).Error)
	assert.Equal(t, int64(20), user.PermanentXP)
	assert.Equal(t, int64(20), user.WeeklyXP)
	assert.Equal(t, int64(1), user.MessageCount)
	assert.Equal(t, int64(1000), user.LastMessageXPAt)
	require.NotNil(t, user.Username)
	assert.Equal(t, "u1", *user.Username)
}

func TestAwardMessageXP_CooldownSuppresses(t *testing.T) {
	svc, db := testService(t, nil)
	fixedClock(svc, 1000)

	_, err := svc.AwardMessageXP(&fakeRoleManager{}, db, testGuild, member("u1"), "chan")
	require.NoError(t, err)

	// Five seconds later: inside the 15 second cooldown.
	fixedClock(svc, 1005)
	result, err := svc.AwardMessageXP(&fakeRoleManager{}, db, testGuild, member("u1"), "chan")
	require.NoError(t, err)
	assert.Nil(t, result)

	// The suppressed message must not refresh the stamp, so a message at
	// 1000+15 still qualifies.
	var user models.User
	require.NoError(t, db.Where("discord_id = ?", "u1").First(&user).Error)
	assert.Equal(t, int64(1000), user.LastMessageXPAt)
	assert.Equal(t, int64(20), user.PermanentXP)

	fixedClock(svc, 1015)
	result, err = svc.AwardMessageXP(&fakeRoleManager{}, db, testGuild, member("u1"), "chan")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(40), result.TotalXP)
}

func TestAwardMessageXP_IgnoresOtherGuilds(t *testing.T) {
	svc, db := testService(t, nil)

	result, err := svc.AwardMessageXP(&fakeRoleManager{}, db, "other-guild", member("u1"), "chan")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestAwardMessageXP_WhitelistGates(t *testing.T) {
	svc, db := testService(t, func(cfg *config.Config) {
		cfg.Channels.MessageWhitelist = []string{"tracked"}
	})
	fixedClock(svc, 1000)

	result, err := svc.AwardMessageXP(&fakeRoleManager{}, db, testGuild, member("u1"), "untracked")
	require.NoError(t, err)
	assert.Nil(t, result)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "a non-qualifying message creates no record")

	result, err = svc.AwardMessageXP(&fakeRoleManager{}, db, testGuild, member("u1"), "tracked")
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestAwardMessageXP_Exemptions(t *testing.T) {
	svc, db := testService(t, func(cfg *config.Config) {
		cfg.ExemptRoles = []string{"no-xp"}
	})

	bot := member("bot1")
	bot.User.Bot = true

	tests := []struct {
		name   string
		member *discordgo.Member
	}{
		{name: "bot", member: bot},
		{name: "exempt role", member: member("u1", "no-xp")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.AwardMessageXP(&fakeRoleManager{}, db, testGuild, tt.member, "chan")
			require.NoError(t, err)
			assert.Nil(t, result)
		})
	}
}

func TestAwardMessageXP_LevelUpGrantsRoles(t *testing.T) {
	svc, db := testService(t, func(cfg *config.Config) {
		cfg.RoleRewards = []config.RoleReward{{Level: 1, RoleID: "level-one"}}
	})
	fixedClock(svc, 1000)

	// Seed just below the level 1 threshold of 150 XP.
	require.NoError(t, db.Create(&models.User{
		DiscordID:   "u1",
		GuildID:     testGuild,
		PermanentXP: 140,
	}).Error)

	rm := &fakeRoleManager{}
	result, err := svc.AwardMessageXP(rm, db, testGuild, member("u1"), "chan")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.LeveledUp)
	assert.Equal(t, 0, result.OldLevel)
	assert.Equal(t, 1, result.NewLevel)
	assert.Equal(t, []string{"level-one"}, rm.added)

	var user models.User
	require.NoError(t, db.Where("discord_id = ?", "u1").First(&user).Error)
	assert.Equal(t, 1, user.Level)
}

func TestAwardVoiceXP_IntervalGates(t *testing.T) {
	svc, db := testService(t, nil)
	fixedClock(svc, 1000)

	result, err := svc.AwardVoiceXP(&fakeRoleManager{}, db, testGuild, member("u1"), "voice")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(10), result.XPAwarded)

	// 30 seconds later: inside the 60 second tick interval.
	fixedClock(svc, 1030)
	result, err = svc.AwardVoiceXP(&fakeRoleManager{}, db, testGuild, member("u1"), "voice")
	require.NoError(t, err)
	assert.Nil(t, result)

	fixedClock(svc, 1060)
	result, err = svc.AwardVoiceXP(&fakeRoleManager{}, db, testGuild, member("u1"), "voice")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(20), result.TotalXP)
}

func TestAwardVoiceXP_AccumulatesMinutes(t *testing.T) {
	svc, db := testService(t, nil)

	fixedClock(svc, 1000)
	_, err := svc.AwardVoiceXP(&fakeRoleManager{}, db, testGuild, member("u1"), "voice")
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.Where("discord_id = ?", "u1").First(&user).Error)
	assert.Equal(t, int64(1), user.VoiceMinutes, "first tick counts one minute")

	// A delayed tick credits the elapsed minutes.
	fixedClock(svc, 1000+180)
	_, err = svc.AwardVoiceXP(&fakeRoleManager{}, db, testGuild, member("u1"), "voice")
	require.NoError(t, err)

	require.NoError(t, db.Where("discord_id = ?", "u1").First(&user).Error)
	assert.Equal(t, int64(4), user.VoiceMinutes)
}

func TestAwardVoiceXP_WhitelistGates(t *testing.T) {
	svc, db := testService(t, func(cfg *config.Config) {
		cfg.Channels.VoiceWhitelist = []string{"lounge"}
	})
	fixedClock(svc, 1000)

	result, err := svc.AwardVoiceXP(&fakeRoleManager{}, db, testGuild, member("u1"), "afk")
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = svc.AwardVoiceXP(&fakeRoleManager{}, db, testGuild, member("u1"), "lounge")
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestRoll(t *testing.T) {
	svc, _ := testService(t, nil)

	assert.Equal(t, int64(20), svc.roll(20, 20))

	for i := 0; i < 50; i++ {
		v := svc.roll(5, 9)
		assert.GreaterOrEqual(t, v, int64(5))
		assert.LessOrEqual(t, v, int64(9))
	}
}
