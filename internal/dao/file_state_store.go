package dao

import (
	"context"
	"os"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"github.com/haierkeys/lww-note-sync/internal/domain"
	"github.com/haierkeys/lww-note-sync/pkg/fileurl"
)

// FileStateStore 将副本状态保存为单个 JSON 文件
// 写入使用临时文件加重命名，不会出现半截文件
type FileStateStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStateStore 创建文件存储
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// Path 状态文件路径
func (s *FileStateStore) Path() string {
	return s.path
}

// Load 读取状态文件，文件不存在时 ok 为 false
func (s *FileStateStore) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Snapshot{}, false, nil
		}
		return domain.Snapshot{}, false, errors.Wrap(err, "read state file")
	}

	var snap domain.Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, false, errors.Wrapf(err, "decode state file %s", s.path)
	}
	return snap, true, nil
}

// Save 覆盖写入状态文件
func (s *FileStateStore) Save(ctx context.Context, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if snap.Notes == nil {
		snap.Notes = []domain.Note{}
	}
	if snap.DeletedIDs == nil {
		snap.DeletedIDs = []string{}
	}

	data, err := sonic.ConfigStd.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode state")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Wrap(fileurl.WriteFileAtomic(s.path, data, 0o644), "write state file")
}
