package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"guildXPBot/config"
	"guildXPBot/models"
	"guildXPBot/scheduler"
	"guildXPBot/services"
	"guildXPBot/services/leaderboardService"
	"guildXPBot/services/levelService"
	"guildXPBot/services/roleService"
	"guildXPBot/services/voiceService"
	"guildXPBot/services/xpService"
	"guildXPBot/web"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/xo/dburl"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	db      *gorm.DB
	cfg     *config.Config
	handler *services.Handler
	voice   *voiceService.Service
)

func init() {
	// .env is optional; container deployments inject the environment directly.
	_ = godotenv.Load()

	setupLogging()

	var err error
	db, err = openDatabase()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(&models.User{}, &models.VoiceSession{}, &models.WeeklyArchive{}, &models.ErrorLog{})
	if err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// openDatabase dials the store named by DATABASE_URL. mysql:// and
// sqlite:// URLs are supported; unset falls back to a local sqlite file.
func openDatabase() (*gorm.DB, error) {
	rawURL := os.Getenv("DATABASE_URL")
	if rawURL == "" {
		rawURL = "sqlite:xpbot.db"
	}

	u, err := dburl.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	switch u.Driver {
	case "mysql":
		return gorm.Open(mysql.Open(u.DSN+"?charset=utf8mb4&parseTime=True&loc=Local"), gormCfg)
	case "sqlite3":
		return gorm.Open(sqlite.Open(u.DSN), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", u.Driver)
	}
}

func main() {
	var err error
	cfg, err = config.Load("")
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	calc, err := levelService.New(cfg.LevelFormula)
	if err != nil {
		log.Fatalf("Invalid level formula: %v", err)
	}

	cache, err := leaderboardService.NewCache(os.Getenv("REDIS_URL"), time.Duration(cfg.CacheTTLSeconds)*time.Second)
	if err != nil {
		log.Fatalf("Error connecting to redis: %v", err)
	}

	boards := leaderboardService.New(cfg, calc, cache)
	roles := roleService.New(cfg)
	xp := xpService.New(cfg, calc, roles, boards)
	voice = voiceService.New(cfg, xp)
	handler = services.NewHandler(cfg, calc, xp, boards)

	token := os.Getenv("DISCORD_BOT_TOKEN")
	if token == "" {
		log.Fatalf("DISCORD_BOT_TOKEN not set in environment variables")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Fatalf("Error creating Discord session: %v", err)
	}

	dg.AddHandler(interactionCreate)
	dg.AddHandler(messageCreate)
	dg.AddHandler(voiceStateUpdate)
	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		err := s.UpdateGameStatus(0, "Tracking XP!")
		if err != nil {
			return
		}
	})

	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages | discordgo.IntentsGuildVoiceStates

	err = dg.Open()
	if err != nil {
		log.Fatalf("Error opening Discord session: %v", err)
	}
	defer func() {
		if err := dg.Close(); err != nil {
			slog.Error("closing Discord session", "error", err)
		}
	}()

	err = services.RegisterCommands(dg)
	if err != nil {
		log.Fatalf("Error registering commands: %v", err)
	}

	scheduler.SetupCron(dg, db, cfg, voice, boards)

	addr := cfg.Addr
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	srv := web.NewServer(cfg, db, calc, boards)
	go func() {
		if err := srv.Start(addr); err != nil {
			log.Fatalf("Error starting web service: %v", err)
		}
	}()

	slog.Info("bot is running", "guild_id", cfg.GuildID, "addr", addr)
	select {}
}

func messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot || m.GuildID == "" {
		return
	}

	member := m.Member
	if member == nil {
		return
	}
	// MessageCreate members omit the User field.
	if member.User == nil {
		member.User = m.Author
	}

	result, err := handler.XP.AwardMessageXP(s, db, m.GuildID, member, m.ChannelID)
	if err != nil {
		slog.Error("awarding message XP", "user_id", m.Author.ID, "error", err)
		return
	}
	if result != nil && result.LeveledUp {
		slog.Info("level up", "user_id", m.Author.ID, "old", result.OldLevel, "new", result.NewLevel)
	}
}

func voiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	voice.HandleVoiceStateUpdate(db, v)
}

func interactionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		handler.HandleSlashCommand(s, i, db)
	}
}
