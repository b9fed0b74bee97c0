package routers

import (
	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"

	"github.com/haierkeys/lww-note-sync/internal/app"
	"github.com/haierkeys/lww-note-sync/internal/middleware"
	"github.com/haierkeys/lww-note-sync/internal/routers/api_router"
	"github.com/haierkeys/lww-note-sync/pkg/limiter"
)

// NewRouter 创建同步服务的 HTTP 路由
func NewRouter(appContainer *app.App, uni *ut.UniversalTranslator) *gin.Engine {
	cfg := appContainer.Config()
	lg := appContainer.Logger()

	methodLimiters := limiter.NewMethodLimiter().AddBuckets(cfg.GetLimiterRules()...)

	r := gin.New()

	api := r.Group("/api")
	{
		api.Use(middleware.AppInfo(app.Name, appContainer.Version().Version))
		api.Use(middleware.TraceMiddleware(cfg.Tracer.Enabled, cfg.Tracer.Header))
		api.Use(middleware.RateLimiter(methodLimiters))
		api.Use(middleware.ContextTimeout(cfg.GetContextTimeout()))
		api.Use(middleware.Cors())
		api.Use(middleware.LangWithTranslator(uni))
		api.Use(middleware.AccessLogWithLogger(lg))
		api.Use(middleware.RecoveryWithLogger(lg))

		noteHandler := api_router.NewNoteHandler(appContainer)
		healthHandler := api_router.NewHealthHandler(appContainer)

		api.GET("/health", healthHandler.Check)
		api.POST("/notes/sync", noteHandler.Sync)
		api.DELETE("/notes/:id", noteHandler.Delete)

		// 浏览器跨域预检
		api.OPTIONS("/*path", func(c *gin.Context) {})
	}

	r.Use(middleware.Cors())
	r.NoRoute(middleware.NoFound())

	return r
}
