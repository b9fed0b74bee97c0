// Package store 客户端副本：存活笔记、本地墓碑与编辑保护
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/haierkeys/lww-note-sync/internal/domain"
	"github.com/haierkeys/lww-note-sync/internal/merge"
	"github.com/haierkeys/lww-note-sync/pkg/logger"
)

// Option 配置 Store
type Option func(*Store)

// WithClock 替换时间来源，测试中使用
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

type noteInput struct {
	Title   string `validate:"required"`
	Content string `validate:"required"`
}

// Store 客户端副本
// 所有修改先写入持久化存储再替换内存状态，保存失败时内存不变
type Store struct {
	mu       sync.Mutex
	state    *domain.ReplicaState
	persist  domain.StateStore
	validate *validator.Validate
	clock    func() time.Time
	logger   *zap.Logger

	editing string
	editOn  bool
	pending *domain.Snapshot
}

// Open 从 persist 加载状态，未保存过时为空副本
func Open(ctx context.Context, persist domain.StateStore, opts ...Option) (*Store, error) {
	s := &Store{
		state:    domain.NewReplicaState(),
		persist:  persist,
		validate: validator.New(),
		clock:    time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	snap, ok, err := persist.Load(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		s.state = domain.NewReplicaStateFromSnapshot(snap)
	}

	s.logger.Debug("note store opened",
		zap.Int(logger.FieldNotes, s.state.Len()),
		zap.Int(logger.FieldTombstones, s.state.TombstoneCount()))

	return s, nil
}

func (s *Store) check(title, content string) (string, string, error) {
	in := noteInput{Title: strings.TrimSpace(title), Content: strings.TrimSpace(content)}
	if err := s.validate.Struct(in); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return "", "", &domain.ValidationError{Field: strings.ToLower(errs[0].Field())}
		}
		return "", "", err
	}
	return in.Title, in.Content, nil
}

// commit 保存 next 并替换当前状态，调用方持有 mu
func (s *Store) commit(ctx context.Context, next *domain.ReplicaState) error {
	if err := s.persist.Save(ctx, next.Snapshot()); err != nil {
		return err
	}
	s.state = next
	return nil
}

// Create 新建笔记，createdAt 与 lastModified 相同
func (s *Store) Create(ctx context.Context, title, content string) (domain.Note, error) {
	title, content, err := s.check(title, content)
	if err != nil {
		return domain.Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	ms := now.UnixMilli()
	n := domain.Note{
		ID:           domain.NewNoteID(now),
		Title:        title,
		Content:      content,
		CreatedAt:    ms,
		LastModified: ms,
	}

	next := s.state.Clone()
	next.Put(n)
	if err := s.commit(ctx, next); err != nil {
		return domain.Note{}, err
	}

	s.logger.Debug("note created", zap.String(logger.FieldNoteID, n.ID))
	return n, nil
}

// Update 修改笔记标题与内容
// lastModified 严格递增，即使时钟回拨或同一毫秒内多次修改
func (s *Store) Update(ctx context.Context, id, title, content string) (domain.Note, error) {
	title, content, err := s.check(title, content)
	if err != nil {
		return domain.Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.state.Get(id)
	if !ok {
		return domain.Note{}, &domain.NotFoundError{ID: id}
	}

	n.Title = title
	n.Content = content
	n.LastModified = max(s.clock().UnixMilli(), n.LastModified+1)

	next := s.state.Clone()
	next.Put(n)
	if err := s.commit(ctx, next); err != nil {
		return domain.Note{}, err
	}

	s.logger.Debug("note updated", zap.String(logger.FieldNoteID, id))
	return n, nil
}

// Delete 删除笔记并记录墓碑
// 删除正在编辑的笔记会结束编辑并执行排队的合并
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Get(id); !ok {
		return &domain.NotFoundError{ID: id}
	}

	next := s.state.Clone()
	next.Remove(id)
	next.AddTombstone(id)
	if err := s.commit(ctx, next); err != nil {
		return err
	}

	s.logger.Debug("note deleted", zap.String(logger.FieldNoteID, id))

	if s.editOn && s.editing == id {
		if _, err := s.closeEditLocked(ctx); err != nil {
			s.logger.Warn("drain deferred merge failed", zap.Error(err))
		}
	}
	return nil
}

// Get 获取单条笔记
func (s *Store) Get(id string) (domain.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Get(id)
}

// List 按 lastModified 降序返回笔记，相同时间按插入顺序
func (s *Store) List() []domain.Note {
	s.mu.Lock()
	notes := s.state.Notes()
	s.mu.Unlock()

	domain.SortByLastModified(notes)
	return notes
}

// Snapshot 当前状态的值拷贝
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// Tombstones 尚未被回收的本地墓碑
func (s *Store) Tombstones() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Tombstones()
}

// BeginEdit 打开编辑，期间所有合并都会延后
func (s *Store) BeginEdit(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Get(id); !ok {
		return &domain.NotFoundError{ID: id}
	}
	s.editing = id
	s.editOn = true

	s.logger.Debug("edit opened", zap.String(logger.FieldNoteID, id))
	return nil
}

// EndEdit 关闭编辑，如有排队的快照立即合并
func (s *Store) EndEdit(ctx context.Context) (merge.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeEditLocked(ctx)
}

func (s *Store) closeEditLocked(ctx context.Context) (merge.Result, error) {
	if !s.editOn {
		return merge.Result{}, nil
	}
	s.logger.Debug("edit closed", zap.String(logger.FieldNoteID, s.editing))
	s.editOn = false
	s.editing = ""

	if s.pending == nil {
		return merge.Result{}, nil
	}
	peer := *s.pending
	s.pending = nil
	return s.mergeLocked(ctx, peer)
}

// Editing 返回当前正在编辑的笔记
func (s *Store) Editing() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing, s.editOn
}

// Merge 合并服务端快照
// 编辑期间返回 domain.ErrMergeDeferred，快照排队等待 EndEdit
func (s *Store) Merge(ctx context.Context, peer domain.Snapshot) (merge.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editOn {
		p := peer
		s.pending = &p
		s.logger.Debug("merge deferred", zap.String(logger.FieldNoteID, s.editing))
		return merge.Result{}, domain.ErrMergeDeferred
	}
	return s.mergeLocked(ctx, peer)
}

func (s *Store) mergeLocked(ctx context.Context, peer domain.Snapshot) (merge.Result, error) {
	next := s.state.Clone()
	res := merge.ApplySnapshot(next, peer, merge.Options{CollectTombstones: true})
	if !res.Changed() {
		return res, nil
	}
	if err := s.commit(ctx, next); err != nil {
		return merge.Result{}, err
	}

	s.logger.Debug("merged peer snapshot",
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("removed", res.Removed),
		zap.Int("suppressed", res.Suppressed),
		zap.Int("tombstonesPurged", res.TombstonesPurged))
	return res, nil
}
