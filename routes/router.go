package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hasanat/tracker/config"
	"github.com/hasanat/tracker/controllers"
	"github.com/hasanat/tracker/middleware"
	"github.com/hasanat/tracker/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps *Dependencies) *gin.Engine {
	// Load config and set Gin mode from configuration
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
	r.Use(middleware.RequestID())
	// Access log goes to its own rolling file when gin.log_path is set
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			accessLog = gl
		}
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
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

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	prayerController := controllers.NewPrayerController(deps.Prayers, deps.Clock)
	timingsController := controllers.NewTimingsController(deps.DB, deps.Timings, deps.TimingsReader, deps.Clock)
	fastingController := controllers.NewFastingController(deps.Fasting, deps.Clock)
	pointsController := controllers.NewPointsController(deps.DB, deps.Ledger, deps.Clock)
	adminController := controllers.NewAdminController(deps.Sweeper, deps.Ledger, deps.Clock)
	pushController := controllers.NewPushController(deps.DB)
	settingsController := controllers.NewSettingsController(deps.DB)

	api := r.Group("/api/v1")
	api.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.EnsureUser(deps.DB), middleware.RateLimitMiddleware())

	protected.POST("/prayers/:date/:prayer/mark", middleware.ActionRateLimit("mark_prayer"), prayerController.Mark)
	protected.GET("/prayers/:date", prayerController.List)
	protected.POST("/timings", timingsController.Save)
	protected.GET("/timings/:date", timingsController.Get)
	protected.POST("/fasting/:date", middleware.ActionRateLimit("set_fasting"), fastingController.Set)
	protected.POST("/fasting/:date/break", middleware.ActionRateLimit("break_fast"), fastingController.Break)
	protected.GET("/points", pointsController.Totals)
	protected.GET("/points/ledger", pointsController.Ledger)
	protected.POST("/push-tokens", pushController.Register)
	protected.GET("/settings", settingsController.Get)
	protected.PUT("/settings", settingsController.Update)

	admin := protected.Group("/admin")
	admin.Use(middleware.AdminRequired())
	admin.POST("/sweep", adminController.Sweep)
	admin.POST("/reconcile/:userId", adminController.Reconcile)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
