package api_router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haierkeys/lww-note-sync/internal/app"
	"github.com/haierkeys/lww-note-sync/internal/dto"
	pkgapp "github.com/haierkeys/lww-note-sync/pkg/app"
	"github.com/haierkeys/lww-note-sync/pkg/code"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	*Handler
}

// NewHealthHandler 创建健康检查处理器实例
func NewHealthHandler(a *app.App) *HealthHandler {
	return &HealthHandler{Handler: NewHandler(a)}
}

// Check 健康检查接口，客户端的连通性探测使用
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /api/health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	if h.App.IsShuttingDown() {
		response.ToResponse(code.ErrorServerBusy)
		return
	}

	response.ToRaw(http.StatusOK, dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UnixMilli(),
	})
}

// Stats 服务端副本规模，挂在私有路由上
func (h *HealthHandler) Stats(c *gin.Context) {
	stats := h.App.ReplicaService.Stats()
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(gin.H{
		"version":   h.App.Version(),
		"uptime":    time.Since(h.App.StartedAt()).Seconds(),
		"replica":   stats,
		"persisted": h.App.DB != nil,
	}))
}
