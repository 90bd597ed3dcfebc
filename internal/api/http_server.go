package api

import (
	"errors"
	"net/http"
	"time"

	"sygl/internal/auth"
	"sygl/internal/config"
	"sygl/internal/service"
	"sygl/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// requestTimeout 普通读写接口的数据库超时
const requestTimeout = 5 * time.Second

// Services 汇总处理器依赖的服务层
type Services struct {
	Auth       *service.AuthService
	Generation *service.GenerationService
	Credits    *service.CreditsService
	History    *service.HistoryService
}

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg               config.Config
	storage           storage.Storage
	storagePublicBase string
	authManager       *auth.Manager

	// 服务层
	authService       *service.AuthService
	generationService *service.GenerationService
	creditsService    *service.CreditsService
	historyService    *service.HistoryService
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, authManager *auth.Manager, store storage.Storage, svc Services) (*HTTPHandler, error) {
	if authManager == nil {
		return nil, errors.New("auth manager is required")
	}
	if svc.Auth == nil || svc.Generation == nil || svc.Credits == nil || svc.History == nil {
		return nil, errors.New("all services are required")
	}
	return &HTTPHandler{
		cfg:               cfg,
		storage:           store,
		storagePublicBase: normalisePublicBase(cfg.StoragePublicBaseURL),
		authManager:       authManager,
		authService:       svc.Auth,
		generationService: svc.Generation,
		creditsService:    svc.Credits,
		historyService:    svc.History,
	}, nil
}

// Router 构建完整的 gin 路由
func (h *HTTPHandler) Router() *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(LoggingMiddleware())
	r.Use(CORSMiddleware())
	r.Use(RecoveryMiddleware())

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	apiGroup.GET("/pricing", h.Pricing)

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.GET("/me", h.AuthMiddleware(), h.Me)

	protected := apiGroup.Group("")
	protected.Use(h.AuthMiddleware())
	protected.POST("/generate", h.Generate)
	protected.GET("/user/credits", h.GetCredits)
	protected.GET("/generations", h.ListGenerations)
	protected.GET("/generations/:id", h.GetGeneration)

	h.mountFiles(r)

	r.NoRoute(func(c *gin.Context) {
		NotFound(c, ErrCodeNotFound, "route not found")
	})
	return r
}

// Health 存活检查
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
