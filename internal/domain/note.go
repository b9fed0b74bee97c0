// Package domain 定义领域模型和接口
package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/haierkeys/lww-note-sync/pkg/util"
)

// noteIDSuffixLen 随机后缀长度
const noteIDSuffixLen = 9

// Note 笔记领域模型
// 时间字段均为 Unix 毫秒时间戳
type Note struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	CreatedAt    int64  `json:"createdAt"`
	LastModified int64  `json:"lastModified"`
}

// Validate 校验笔记字段
func (n Note) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return &ValidationError{Field: "id"}
	}
	if strings.TrimSpace(n.Title) == "" {
		return &ValidationError{Field: "title"}
	}
	if strings.TrimSpace(n.Content) == "" {
		return &ValidationError{Field: "content"}
	}
	if n.LastModified < n.CreatedAt {
		return &ValidationError{Field: "lastModified", Reason: "before createdAt"}
	}
	return nil
}

// NewerThan 判断 n 是否比 other 更新
func (n Note) NewerThan(other Note) bool {
	return n.LastModified > other.LastModified
}

// NewNoteID 生成笔记 ID：<毫秒时间戳>-<9 位 base36 随机串>
func NewNoteID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + util.RandomBase36(noteIDSuffixLen)
}

// SortByLastModified 按 lastModified 降序排序，相同时间保持原有顺序
func SortByLastModified(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].LastModified > notes[j].LastModified
	})
}
