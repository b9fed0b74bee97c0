package code

import "net/http"

var (
	Success = NewSuss(1, lang{en: "Success", zh_cn: "成功"})

	ErrorInvalidParams    = NewError(401, http.StatusBadRequest, lang{en: "Invalid params", zh_cn: "参数错误"})
	ErrorNotFoundAPI      = NewError(404, http.StatusNotFound, lang{en: "API not found", zh_cn: "接口不存在"})
	ErrorTooManyRequests  = NewError(429, http.StatusTooManyRequests, lang{en: "Too many requests", zh_cn: "请求过多"})
	ErrorServerInternal   = NewError(500, http.StatusInternalServerError, lang{en: "Internal server error", zh_cn: "服务器内部错误"})
	ErrorServerBusy       = NewError(503, http.StatusServiceUnavailable, lang{en: "Server busy, try again later", zh_cn: "服务繁忙，请稍后重试"})
	ErrorNoteNotFound     = NewError(505, http.StatusNotFound, lang{en: "Note not found", zh_cn: "笔记不存在"})
	ErrorNoteInvalid      = NewError(506, http.StatusBadRequest, lang{en: "Note title and content are required", zh_cn: "笔记标题和内容不能为空"})
	ErrorReplicaPersist   = NewError(507, http.StatusInternalServerError, lang{en: "Failed to persist replica state", zh_cn: "副本状态保存失败"})
	ErrorReplicaWriteBusy = NewError(508, http.StatusServiceUnavailable, lang{en: "Replica write queue is full", zh_cn: "副本写队列已满"})
)
