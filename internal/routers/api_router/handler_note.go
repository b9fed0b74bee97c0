package api_router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haierkeys/lww-note-sync/internal/app"
	"github.com/haierkeys/lww-note-sync/internal/dto"
	"github.com/haierkeys/lww-note-sync/internal/middleware"
	pkgapp "github.com/haierkeys/lww-note-sync/pkg/app"
	"github.com/haierkeys/lww-note-sync/pkg/code"
	apperrors "github.com/haierkeys/lww-note-sync/pkg/errors"
	"github.com/haierkeys/lww-note-sync/pkg/logger"
)

// NoteHandler 笔记同步 API 路由处理器
type NoteHandler struct {
	*Handler
}

// NewNoteHandler 创建 NoteHandler 实例
func NewNoteHandler(a *app.App) *NoteHandler {
	return &NoteHandler{Handler: NewHandler(a)}
}

// Sync 合并客户端上传的完整笔记列表
// @Summary 同步笔记
// @Description 以最后写入者胜出的规则合并客户端笔记，返回服务端全部笔记与已删除 ID
// @Tags 笔记
// @Accept json
// @Produce json
// @Param params body dto.SyncRequest true "客户端当前全部笔记"
// @Success 200 {object} dto.SyncResponse
// @Router /api/notes/sync [post]
func (h *NoteHandler) Sync(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.SyncRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("NoteHandler.Sync.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	notes, err := params.ToDomain()
	if err != nil {
		h.App.Logger().Error("NoteHandler.Sync.ToDomain err", zap.Error(err))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(err.Error()))
		return
	}

	ctx := c.Request.Context()

	snap, err := h.App.ReplicaService.Sync(ctx, notes)
	if err != nil {
		h.logError(ctx, "NoteHandler.Sync", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToRaw(http.StatusOK, dto.NewSyncResponse(snap))
}

// Delete 删除笔记，未知或已删除的 ID 同样返回 204
// @Summary 删除笔记
// @Tags 笔记
// @Param id path string true "笔记 ID"
// @Success 204
// @Router /api/notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.NoteDeleteRequest{ID: strings.TrimSpace(c.Param("id"))}

	if params.ID == "" {
		response.ToResponse(code.ErrorInvalidParams.WithDetails("id is required"))
		return
	}

	ctx := c.Request.Context()

	if err := h.App.ReplicaService.Delete(ctx, params.ID); err != nil {
		h.App.Logger().Error("NoteHandler.Delete err",
			zap.String(logger.FieldNoteID, params.ID),
			zap.String(logger.FieldTraceID, middleware.GetTraceID(ctx)),
			zap.Error(err))
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToNoContent()
}
