package controllers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/mxforum/mxforum/store"
	"github.com/mxforum/mxforum/utils"
)

const statsCacheKey = "cache:stats"

// StatsController provides forum-wide totals.
type StatsController struct {
	count func(ctx context.Context) (store.Stats, error)
	cache *utils.Cache
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(count func(ctx context.Context) (store.Stats, error), cache *utils.Cache) *StatsController {
	return &StatsController{count: count, cache: cache}
}

// GetStats returns aggregate statistics for the forum. The cache TTL bounds staleness.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var cached store.Stats
	if s.cache.GetJSON(ctx.Request.Context(), statsCacheKey, &cached) {
		utils.Success(ctx, cached)
		return
	}
	stats, err := s.count(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	s.cache.SetJSON(ctx.Request.Context(), statsCacheKey, stats)
	utils.Success(ctx, stats)
}
