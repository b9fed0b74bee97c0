// Package merge 以最后写入者胜出和墓碑优先的规则合并副本与对端快照
//
// Apply 依次执行：
//  1. 并入对端墓碑
//  2. 删除所有被墓碑标记的存活笔记
//  3. 可选：回收对端存活笔记中不存在的墓碑
//  4. 逐条处理对端笔记：有墓碑跳过，未知插入，严格更新时覆盖
//
// 结果由调用方持久化。
package merge

import (
	"github.com/haierkeys/lww-note-sync/internal/domain"
)

// Options 合并选项
type Options struct {
	// CollectTombstones 开启后，对端存活笔记中不存在的墓碑会被回收
	// 客户端开启；服务端关闭，单个客户端的快照不能代表所有副本都已删除
	CollectTombstones bool
}

// Result 一次合并的统计，墓碑计数为净变化
type Result struct {
	Inserted         int
	Updated          int
	Kept             int
	Suppressed       int
	Removed          int
	TombstonesAdded  int
	TombstonesPurged int
}

// Changed 本次合并是否修改了状态
func (r Result) Changed() bool {
	return r.Inserted+r.Updated+r.Removed+r.TombstonesAdded+r.TombstonesPurged > 0
}

// Add 累加另一份统计
func (r Result) Add(o Result) Result {
	return Result{
		Inserted:         r.Inserted + o.Inserted,
		Updated:          r.Updated + o.Updated,
		Kept:             r.Kept + o.Kept,
		Suppressed:       r.Suppressed + o.Suppressed,
		Removed:          r.Removed + o.Removed,
		TombstonesAdded:  r.TombstonesAdded + o.TombstonesAdded,
		TombstonesPurged: r.TombstonesPurged + o.TombstonesPurged,
	}
}

// Apply 将对端快照合并进 state，state 被原地修改
// 对同一快照重复调用结果不变
func Apply(state *domain.ReplicaState, peerNotes []domain.Note, peerTombstones []string, opts Options) Result {
	var res Result

	added := make(map[string]struct{})
	for _, id := range peerTombstones {
		if state.AddTombstone(id) {
			added[id] = struct{}{}
			res.TombstonesAdded++
		}
	}

	for _, id := range state.Tombstones() {
		if state.Remove(id) {
			res.Removed++
		}
	}

	if opts.CollectTombstones {
		peerIDs := make(map[string]struct{}, len(peerNotes))
		for _, p := range peerNotes {
			peerIDs[p.ID] = struct{}{}
		}
		for _, id := range state.Tombstones() {
			if _, ok := peerIDs[id]; !ok {
				state.RemoveTombstone(id)
				// 本轮刚并入又被回收，墓碑集合没有变化
				if _, ok := added[id]; ok {
					res.TombstonesAdded--
					continue
				}
				res.TombstonesPurged++
			}
		}
	}

	for _, p := range peerNotes {
		if state.HasTombstone(p.ID) {
			res.Suppressed++
			continue
		}
		local, ok := state.Get(p.ID)
		switch {
		case !ok:
			state.Put(p)
			res.Inserted++
		case p.NewerThan(local):
			state.Put(p)
			res.Updated++
		default:
			res.Kept++
		}
	}

	return res
}

// ApplySnapshot 合并完整快照
func ApplySnapshot(state *domain.ReplicaState, peer domain.Snapshot, opts Options) Result {
	return Apply(state, peer.Notes, peer.DeletedIDs, opts)
}
