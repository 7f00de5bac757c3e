package routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mxforum/mxforum/config"
	"github.com/mxforum/mxforum/controllers"
	"github.com/mxforum/mxforum/middleware"
	"github.com/mxforum/mxforum/store"
	"github.com/mxforum/mxforum/utils"
)

const cacheTTL = 10 * time.Minute

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, rc *redis.Client, reg *prometheus.Registry) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// request log goes to its own rolling file at the application level
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		utils.Sugar.Warnf("gin logger unavailable, using default recovery: %v", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.NewMetricsBuilder(reg).Build())

	r.Static("/media", cfg.MediaRoot)
	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	cache := utils.NewCache(rc, cacheTTL)
	media := controllers.Media{
		Root:     cfg.MediaRoot,
		SiteURL:  cfg.SiteURL,
		MaxBytes: int64(cfg.MaxUploadMB) << 20,
	}
	users := store.NewUsers(db)
	authController := controllers.NewAuthController(users)
	questionController := controllers.NewQuestionController(store.NewDiscussion(db), users, cache, media)
	groupController := controllers.NewGroupController(store.NewGroups(db), cache, media)
	statsController := controllers.NewStatsController(func(ctx context.Context) (store.Stats, error) {
		return store.CountStats(ctx, db)
	}, cache)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(limiter.Handler())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/github/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/github/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public listings
	api.GET("/questions", questionController.ListQuestions)
	api.GET("/groups", groupController.ListGroups)
	api.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), limiter.Handler())
	protected.POST("/questions", questionController.CreateQuestion)
	protected.GET("/questions/:id", questionController.GetQuestion)
	protected.GET("/questions/:id/answers", questionController.ListAnswers)
	protected.POST("/questions/:id/answers", questionController.CreateAnswer)
	protected.GET("/answers/:id/replies", questionController.ListReplies)
	protected.POST("/answers/:id/replies", questionController.CreateReply)

	protected.POST("/groups", groupController.CreateGroup)
	protected.GET("/groups/:id", groupController.GetGroup)
	protected.POST("/groups/:id/members", groupController.Apply)
	protected.GET("/groups/:id/members", groupController.ListApplications)
	protected.PATCH("/members/:id", groupController.Decide)
	protected.GET("/groups/:id/posts", groupController.ListPosts)
	protected.POST("/groups/:id/posts", groupController.CreatePost)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, utils.CodeNotFound, "route not found")
	})

	return r
}
