package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"guildXPBot/services/leaderboardService"
	"guildXPBot/services/userService"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Health reports liveness.
func (srv *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "xpbot-web",
	})
}

type boardResponse struct {
	Leaderboard  []leaderboardService.Entry `json:"leaderboard"`
	TotalEntries int                        `json:"total_entries"`
	GuildID      string                     `json:"guild_id"`
}

func (srv *Server) limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return leaderboardService.DefaultLimit
	}
	return limit
}

// GetLeaderboard returns the top users by permanent XP.
func (srv *Server) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	srv.board(w, r, leaderboardService.BoardPermanent)
}

// GetWeeklyBoard returns the top users by weekly XP.
func (srv *Server) GetWeeklyBoard(w http.ResponseWriter, r *http.Request) {
	srv.board(w, r, leaderboardService.BoardWeekly)
}

func (srv *Server) board(w http.ResponseWriter, r *http.Request, board string) {
	entries, err := srv.boards.Top(r.Context(), srv.db, srv.cfg.GuildID, board, srv.limitParam(r))
	if err != nil {
		slog.Error("querying leaderboard", "board", board, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, boardResponse{
		Leaderboard:  entries,
		TotalEntries: len(entries),
		GuildID:      srv.cfg.GuildID,
	})
}

type userResponse struct {
	UserID        string  `json:"user_id"`
	PermanentXP   int64   `json:"permanent_xp"`
	WeeklyXP      int64   `json:"weekly_xp"`
	Level         int     `json:"level"`
	PermanentRank int64   `json:"permanent_rank"`
	WeeklyRank    int64   `json:"weekly_rank"`
	XPIntoLevel   int64   `json:"xp_into_level"`
	XPNeeded      int64   `json:"xp_needed"`
	Percent       float64 `json:"progress_percentage"`
}

// GetUser returns one member's stats, 404 when they have no record.
func (srv *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	user, err := userService.GetUser(srv.db, srv.cfg.GuildID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("fetching user", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	progress, err := srv.calc.Progress(user.PermanentXP)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	rank, err := userService.Rank(srv.db, srv.cfg.GuildID, user.PermanentXP)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	weeklyRank, err := userService.WeeklyRank(srv.db, srv.cfg.GuildID, user.WeeklyXP)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		UserID:        user.DiscordID,
		PermanentXP:   user.PermanentXP,
		WeeklyXP:      user.WeeklyXP,
		Level:         progress.Level,
		PermanentRank: rank,
		WeeklyRank:    weeklyRank,
		XPIntoLevel:   progress.IntoLevel,
		XPNeeded:      progress.Needed,
		Percent:       progress.Percent,
	})
}

// GetStats returns aggregate guild totals.
func (srv *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := userService.Stats(srv.db, srv.cfg.GuildID)
	if err != nil {
		slog.Error("querying stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_users":     stats.TotalUsers,
		"total_xp":        stats.TotalXP,
		"total_weekly_xp": stats.TotalWeeklyXP,
		"guild_id":        srv.cfg.GuildID,
	})
}

// GetConfig returns a sanitized configuration summary: ranges and counts,
// no channel or role IDs and no secrets.
func (srv *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := srv.cfg
	xs := cfg.XPSettings
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"xp_settings": map[string]int{
			"message_xp_min":              xs.MessageXPMin,
			"message_xp_max":              xs.MessageXPMax,
			"message_cooldown_seconds":    xs.MessageCooldownSeconds,
			"voice_xp_min":                xs.VoiceXPMin,
			"voice_xp_max":                xs.VoiceXPMax,
			"voice_tick_interval_seconds": xs.VoiceTickIntervalSeconds,
		},
		"channels": map[string]int{
			"message_whitelist_count": len(cfg.Channels.MessageWhitelist),
			"voice_whitelist_count":   len(cfg.Channels.VoiceWhitelist),
		},
		"level_formula_type": cfg.LevelFormula.Type,
		"role_rewards_count": len(cfg.RoleRewards),
		"exempt_roles_count": len(cfg.ExemptRoles),
	})
}
