// Package dto 定义同步协议的数据传输对象（请求参数和响应结构体）
package dto

import (
	"github.com/jinzhu/copier"

	"github.com/haierkeys/lww-note-sync/internal/domain"
)

// NoteDTO 笔记数据传输对象，时间均为毫秒时间戳
type NoteDTO struct {
	ID           string `json:"id" binding:"required,max=64"` // 与副本表 note_id 列宽一致
	Title        string `json:"title"`
	Content      string `json:"content"`
	CreatedAt    int64  `json:"createdAt" binding:"gte=0"`
	LastModified int64  `json:"lastModified" binding:"gte=0,gtefield=CreatedAt"`
}

// SyncRequest 客户端上传的完整笔记列表，缺省时视为空列表
type SyncRequest struct {
	Notes []NoteDTO `json:"notes" binding:"omitempty,dive"`
}

// ToDomain 转换为领域对象
func (r *SyncRequest) ToDomain() ([]domain.Note, error) {
	notes := make([]domain.Note, 0, len(r.Notes))
	if len(r.Notes) == 0 {
		return notes, nil
	}
	if err := copier.Copy(&notes, &r.Notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// SyncResponse 合并后服务端的全部笔记与墓碑
type SyncResponse struct {
	Notes      []domain.Note `json:"notes"`
	DeletedIDs []string      `json:"deletedIds"`
}

// NewSyncResponse 保证空集合输出为 [] 而不是 null
func NewSyncResponse(snap domain.Snapshot) SyncResponse {
	resp := SyncResponse{Notes: snap.Notes, DeletedIDs: snap.DeletedIDs}
	if resp.Notes == nil {
		resp.Notes = []domain.Note{}
	}
	if resp.DeletedIDs == nil {
		resp.DeletedIDs = []string{}
	}
	return resp
}

// NoteDeleteRequest 删除笔记的路径参数
type NoteDeleteRequest struct {
	ID string `uri:"id" json:"id" binding:"required"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}
