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

	"sygl/internal/api"
	"sygl/internal/auth"
	"sygl/internal/cache"
	"sygl/internal/config"
	"sygl/internal/llm"
	"sygl/internal/model"
	"sygl/internal/service"
	"sygl/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	if err := run(); err != nil {
		logrus.WithError(err).Error("服务器启动失败")
		os.Exit(1)
	}
}

func run() error {
	// 初始化配置
	cfg, err := config.ParseConfig()
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		return fmt.Errorf("initialise repository: %w", err)
	}

	store, err := storage.NewStorage(cfg)
	if err != nil {
		return fmt.Errorf("initialise storage: %w", err)
	}

	dispatcher, err := newDispatcher(cfg)
	if err != nil {
		return err
	}

	creditsCache, closeCache, err := newCreditsCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, time.Duration(cfg.JWTExpirationMinutes)*time.Minute)
	if err != nil {
		return fmt.Errorf("initialise jwt: %w", err)
	}
	authSvc, err := service.NewAuthService(repo, tokens, auth.Hasher{}, cfg.SignupTier)
	if err != nil {
		return fmt.Errorf("initialise auth service: %w", err)
	}

	providerTimeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second
	handler, err := api.NewHTTPHandler(cfg, tokens, store, api.Services{
		Auth:       authSvc,
		Generation: service.NewGenerationService(repo, dispatcher, store, creditsCache, providerTimeout),
		Credits:    service.NewCreditsService(repo, creditsCache),
		History:    service.NewHistoryService(repo),
	})
	if err != nil {
		return fmt.Errorf("initialise http handler: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	serverHost := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
	httpServer := &http.Server{
		Addr:              serverHost,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// 生成接口需等待上游返回
		WriteTimeout: providerTimeout + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("host", serverHost).Info("服务器启动")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("服务器关闭中")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), providerTimeout+10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newDispatcher 构建两个服务商适配器，缺少密钥时启动失败
func newDispatcher(cfg config.Config) (*llm.Dispatcher, error) {
	client := llm.NewHTTPClient(time.Duration(cfg.ProviderTimeoutSeconds) * time.Second)

	gemini, err := llm.NewGeminiAdapter(llm.GeminiConfig{
		APIKey:             cfg.GeminiAPIKey,
		BaseURL:            cfg.GeminiBaseURL,
		TextModel:          cfg.GeminiTextModel,
		ImageModel:         cfg.GeminiImageModel,
		PlaceholderBaseURL: cfg.PlaceholderBaseURL,
	}, client)
	if err != nil {
		return nil, err
	}
	ideogram, err := llm.NewIdeogramAdapter(llm.IdeogramConfig{
		APIKey:   cfg.IdeogramAPIKey,
		Endpoint: cfg.IdeogramBaseURL,
		Model:    cfg.IdeogramModel,
	}, client)
	if err != nil {
		return nil, err
	}
	return llm.NewDispatcher(gemini, ideogram)
}

// newCreditsCache 未配置 Redis 时退化为空缓存
func newCreditsCache(ctx context.Context, cfg config.Config) (cache.CreditsCache, func(), error) {
	rdb, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if rdb == nil {
		logrus.Info("redis not configured, credits cache disabled")
		return cache.NoopCache{}, func() {}, nil
	}
	ttl := time.Duration(cfg.CreditsCacheTTLSeconds) * time.Second
	return cache.NewRedisCreditsCache(rdb, ttl), func() { _ = rdb.Close() }, nil
}
