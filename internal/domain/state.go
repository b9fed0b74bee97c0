package domain

import (
	"context"
	"sort"
)

// Snapshot 副本的值拷贝
// 既是持久化格式，也是 /api/notes/sync 的响应体
type Snapshot struct {
	Notes      []Note   `json:"notes"`
	DeletedIDs []string `json:"deletedIds"`
}

// StateStore 副本状态的持久化接口
type StateStore interface {
	// Load 读取已保存的状态，没有保存过时 ok 为 false
	Load(ctx context.Context) (snap Snapshot, ok bool, err error)
	// Save 覆盖保存完整状态
	Save(ctx context.Context, snap Snapshot) error
}

// ReplicaState 一个副本持有的笔记映射与墓碑集合
// 非并发安全，由调用方串行化访问
type ReplicaState struct {
	notes      map[string]*Note
	order      []string
	tombstones map[string]struct{}
}

// NewReplicaState 创建空副本
func NewReplicaState() *ReplicaState {
	return &ReplicaState{
		notes:      make(map[string]*Note),
		tombstones: make(map[string]struct{}),
	}
}

// NewReplicaStateFromSnapshot 从快照恢复副本
// 同时出现在 notes 与 deletedIds 中的 ID 以墓碑为准
func NewReplicaStateFromSnapshot(snap Snapshot) *ReplicaState {
	s := NewReplicaState()
	for _, id := range snap.DeletedIDs {
		s.AddTombstone(id)
	}
	for _, n := range snap.Notes {
		if s.HasTombstone(n.ID) {
			continue
		}
		s.Put(n)
	}
	return s
}

// Get 获取笔记副本
func (s *ReplicaState) Get(id string) (Note, bool) {
	n, ok := s.notes[id]
	if !ok {
		return Note{}, false
	}
	return *n, true
}

// Put 插入或覆盖笔记，覆盖时保留原插入位置
func (s *ReplicaState) Put(n Note) {
	if cur, ok := s.notes[n.ID]; ok {
		*cur = n
		return
	}
	c := n
	s.notes[n.ID] = &c
	s.order = append(s.order, n.ID)
}

// Remove 从存活映射中移除笔记，返回是否存在
func (s *ReplicaState) Remove(id string) bool {
	if _, ok := s.notes[id]; !ok {
		return false
	}
	delete(s.notes, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Notes 按插入顺序返回所有存活笔记的拷贝
func (s *ReplicaState) Notes() []Note {
	out := make([]Note, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.notes[id])
	}
	return out
}

// IDs 返回存活笔记 ID 集合
func (s *ReplicaState) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.notes))
	for id := range s.notes {
		ids[id] = struct{}{}
	}
	return ids
}

// Len 存活笔记数量
func (s *ReplicaState) Len() int {
	return len(s.notes)
}

// AddTombstone 添加墓碑，返回是否为新增
func (s *ReplicaState) AddTombstone(id string) bool {
	if _, ok := s.tombstones[id]; ok {
		return false
	}
	s.tombstones[id] = struct{}{}
	return true
}

// RemoveTombstone 移除墓碑，返回是否存在
func (s *ReplicaState) RemoveTombstone(id string) bool {
	if _, ok := s.tombstones[id]; !ok {
		return false
	}
	delete(s.tombstones, id)
	return true
}

// HasTombstone 判断 id 是否已被删除
func (s *ReplicaState) HasTombstone(id string) bool {
	_, ok := s.tombstones[id]
	return ok
}

// Tombstones 返回排序后的墓碑 ID 列表
func (s *ReplicaState) Tombstones() []string {
	out := make([]string, 0, len(s.tombstones))
	for id := range s.tombstones {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// TombstoneCount 墓碑数量
func (s *ReplicaState) TombstoneCount() int {
	return len(s.tombstones)
}

// Snapshot 生成当前状态的值拷贝
func (s *ReplicaState) Snapshot() Snapshot {
	return Snapshot{
		Notes:      s.Notes(),
		DeletedIDs: s.Tombstones(),
	}
}

// Clone 深拷贝副本
func (s *ReplicaState) Clone() *ReplicaState {
	c := NewReplicaState()
	for _, id := range s.order {
		c.Put(*s.notes[id])
	}
	for id := range s.tombstones {
		c.tombstones[id] = struct{}{}
	}
	return c
}

// Equal 判断两个副本的笔记与墓碑是否一致，不比较插入顺序
func (s *ReplicaState) Equal(o *ReplicaState) bool {
	if len(s.notes) != len(o.notes) || len(s.tombstones) != len(o.tombstones) {
		return false
	}
	for id, n := range s.notes {
		on, ok := o.notes[id]
		if !ok || *on != *n {
			return false
		}
	}
	for id := range s.tombstones {
		if _, ok := o.tombstones[id]; !ok {
			return false
		}
	}
	return true
}
