// Package web exposes the read-only REST API mirroring the leaderboard and
// user-stat queries, plus health and metrics endpoints.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"guildXPBot/config"
	"guildXPBot/services/leaderboardService"
	"guildXPBot/services/levelService"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Server serves the HTTP API. It only reads from the store; all writes go
// through the bot's event handlers.
type Server struct {
	cfg    *config.Config
	db     *gorm.DB
	calc   *levelService.Calculator
	boards *leaderboardService.Service
}

func NewServer(cfg *config.Config, db *gorm.DB, calc *levelService.Calculator, boards *leaderboardService.Service) *Server {
	return &Server{cfg: cfg, db: db, calc: calc, boards: boards}
}

// Router builds the chi router with all routes mounted.
func (srv *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/", srv.Health)
	r.Get("/leaderboard", srv.GetLeaderboard)
	r.Get("/weeklyboard", srv.GetWeeklyBoard)
	r.Get("/user/{id}", srv.GetUser)
	r.Get("/stats", srv.GetStats)
	r.Get("/config", srv.GetConfig)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Start runs the HTTP server. Blocks; intended to run in its own goroutine.
func (srv *Server) Start(addr string) error {
	slog.Info("web service listening", "addr", addr)
	return http.ListenAndServe(addr, srv.Router())
}
