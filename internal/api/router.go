package api

import (
	"time"

	"nutrition-advisor/internal/api/handlers/health"
	recommendationHandler "nutrition-advisor/internal/api/handlers/recommendation"
	"nutrition-advisor/internal/api/middleware"
	"nutrition-advisor/internal/core/callback"
	"nutrition-advisor/internal/core/recommendation"
	"nutrition-advisor/internal/infrastructure/config"
	"nutrition-advisor/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies 路由需要的服務，Callbacks 可為 nil
type Dependencies struct {
	Recommender *recommendation.Service
	Callbacks   *callback.Dispatcher
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", cfg.Auth.Header, "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// 避免介面持有型別化的 nil
	var submitter recommendationHandler.CallbackSubmitter
	var queue health.QueueStatus
	if deps.Callbacks != nil {
		submitter = deps.Callbacks
		queue = deps.Callbacks
	}

	healthHandler := health.NewHandler(deps.Recommender, queue, cfg.App.Version)
	recHandler := recommendationHandler.NewHandler(deps.Recommender, submitter)

	// 公開路由
	router.GET("/", recHandler.Root)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 需要金鑰的路由
	protected := router.Group("/")
	protected.Use(middleware.APIKeyAuth(cfg.Auth.Header, cfg.Auth.APIKey))
	{
		protected.POST("/predict", recHandler.Predict)
		protected.POST("/debug", recHandler.Debug)
		protected.POST("/normalize", recHandler.Normalize)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("provider_available", deps.Recommender.Available()),
		zap.Bool("callbacks_enabled", deps.Callbacks != nil),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.MaxBodyBytes),
	)

	return router
}
