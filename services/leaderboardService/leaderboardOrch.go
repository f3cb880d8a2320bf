// Package leaderboardService queries and renders guild leaderboards for the
// chat commands and the web service.
package leaderboardService

import (
	"context"

	"guildXPBot/config"
	"guildXPBot/services/levelService"
	"guildXPBot/services/userService"

	"gorm.io/gorm"
)

const (
	BoardPermanent = "permanent"
	BoardWeekly    = "weekly"

	DefaultLimit = 10
)

// Entry is one leaderboard row. Level is recomputed from permanent XP at
// query time, never read from the stored column.
type Entry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	XP       int64  `json:"xp"`
	Level    int    `json:"level"`
}

// Service answers leaderboard queries, consulting the cache first.
type Service struct {
	cfg   *config.Config
	calc  *levelService.Calculator
	cache *Cache
}

func New(cfg *config.Config, calc *levelService.Calculator, cache *Cache) *Service {
	return &Service{cfg: cfg, calc: calc, cache: cache}
}

// Cache exposes the underlying cache for purges after admin writes.
func (svc *Service) Cache() *Cache {
	return svc.cache
}

// ClampLimit bounds a caller-supplied limit to [1, max_leaderboard_limit].
// Non-positive values fall back to the default page size.
func (svc *Service) ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > svc.cfg.MaxLeaderboardLimit {
		return svc.cfg.MaxLeaderboardLimit
	}
	return limit
}

// Top returns the top-limit entries for the requested board, ordered by XP
// descending with Discord ID as the deterministic tie-break.
func (svc *Service) Top(ctx context.Context, db *gorm.DB, guildID, board string, limit int) ([]Entry, error) {
	limit = svc.ClampLimit(limit)

	if cached := svc.cache.Get(ctx, guildID, board, limit); cached != nil {
		return cached, nil
	}

	var entries []Entry
	switch board {
	case BoardWeekly:
		users, err := userService.WeeklyLeaderboard(db, guildID, limit)
		if err != nil {
			return nil, err
		}
		entries = make([]Entry, len(users))
		for i, u := range users {
			level, lerr := svc.calc.Level(u.PermanentXP)
			if lerr != nil {
				level = 0
			}
			entries[i] = Entry{
				Rank:     i + 1,
				UserID:   u.DiscordID,
				Username: username(u.Username),
				XP:       u.WeeklyXP,
				Level:    level,
			}
		}
	default:
		users, err := userService.Leaderboard(db, guildID, limit)
		if err != nil {
			return nil, err
		}
		entries = make([]Entry, len(users))
		for i, u := range users {
			level, lerr := svc.calc.Level(u.PermanentXP)
			if lerr != nil {
				level = 0
			}
			entries[i] = Entry{
				Rank:     i + 1,
				UserID:   u.DiscordID,
				Username: username(u.Username),
				XP:       u.PermanentXP,
				Level:    level,
			}
		}
	}

	svc.cache.Set(ctx, guildID, board, limit, entries)
	return entries, nil
}

// Invalidate drops cached pages for the guild after a write.
func (svc *Service) Invalidate(ctx context.Context, guildID string) {
	svc.cache.Purge(ctx, guildID)
}

func username(name *string) string {
	if name == nil {
		return ""
	}
	return *name
}
