// Package metrics registers the bot's prometheus collectors. The web service
// exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// XPAwarded counts XP granted, labeled by accrual source.
	XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xpbot_xp_awarded_total",
		Help: "Total XP awarded to members.",
	}, []string{"source"})

	// LevelUps counts derived-level increases.
	LevelUps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xpbot_level_ups_total",
		Help: "Total level-up events.",
	})

	// RoleGrants counts reward roles granted, labeled by outcome.
	RoleGrants = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xpbot_role_grants_total",
		Help: "Reward role grant attempts.",
	}, []string{"outcome"})

	// LeaderboardCache counts cache lookups, labeled hit or miss.
	LeaderboardCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xpbot_leaderboard_cache_total",
		Help: "Leaderboard cache lookups.",
	}, []string{"result"})

	// WeeklyResets counts weekly reset runs, labeled by trigger.
	WeeklyResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xpbot_weekly_resets_total",
		Help: "Weekly XP reset runs.",
	}, []string{"trigger"})
)
