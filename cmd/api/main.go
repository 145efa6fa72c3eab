package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutrition-advisor/internal/api"
	"nutrition-advisor/internal/core/ai/groq"
	"nutrition-advisor/internal/core/ai/provider"
	"nutrition-advisor/internal/core/callback"
	"nutrition-advisor/internal/core/recommendation"
	"nutrition-advisor/internal/core/reference"
	"nutrition-advisor/internal/core/reference/cache"
	"nutrition-advisor/internal/infrastructure/config"
	"nutrition-advisor/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("model", cfg.LLM.Model),
		zap.String("llm_key", common.MaskSecret(cfg.LLM.APIKey)),
		zap.Bool("llm_enabled", cfg.LLM.Enabled()),
		zap.Bool("reference_enabled", cfg.Reference.Enabled),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	// 模型客戶端：未設定金鑰時改用規則引擎
	var client provider.ChatCompleter
	if cfg.LLM.Enabled() {
		groqClient, err := groq.NewClient(provider.Config{
			APIKey:           cfg.LLM.APIKey,
			BaseURL:          cfg.LLM.BaseURL,
			Model:            cfg.LLM.Model,
			Timeout:          cfg.LLM.Timeout,
			MaxResponseChars: cfg.LLM.MaxResponseChars,
		})
		if err != nil {
			common.LogWarn("LLM client unavailable, rule engine only", zap.Error(err))
		} else {
			client = groqClient
		}
	} else {
		common.LogWarn("GROQ_API_KEY not set, rule engine only")
	}

	// 添加物參考資料與快取
	var lookup recommendation.ReferenceLookup
	var store cache.Store
	if cfg.Reference.Enabled {
		store, err = cache.NewStore(cfg.Cache)
		if err != nil {
			common.LogWarn("Reference cache unavailable, continuing without cache",
				zap.String("backend", cfg.Cache.Backend),
				zap.Error(err),
			)
			store = nil
		}
		lookup = reference.NewSource(cfg.Reference, store)
	}

	recommender := recommendation.NewService(client, lookup, cfg.LLM.MaxTokens, cfg.LLM.Temperature)
	dispatcher := callback.NewDispatcher(cfg.Callback)

	router := api.SetupRouter(cfg, api.Dependencies{
		Recommender: recommender,
		Callbacks:   dispatcher,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("provider_available", recommender.Available()),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	// 送完佇列中的回呼再離開
	if err := dispatcher.Close(ctx); err != nil {
		common.LogWarn("Pending callbacks abandoned", zap.Error(err))
	}
	if store != nil {
		if err := store.Close(); err != nil {
			common.LogWarn("Failed to close reference cache", zap.Error(err))
		}
	}

	common.LogInfo("Server exited")
}
