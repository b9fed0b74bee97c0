package dao

import (
	"context"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/haierkeys/lww-note-sync/internal/domain"
	"github.com/haierkeys/lww-note-sync/internal/model"
)

const saveBatchSize = 200

// DBStateStore 使用 gorm 将副本状态保存到数据库
// 多个副本可共用一个数据库，以 replica 区分
type DBStateStore struct {
	db      *gorm.DB
	replica string
}

// NewDBStateStore 创建数据库存储
func NewDBStateStore(db *gorm.DB, replica string) *DBStateStore {
	return &DBStateStore{db: db, replica: replica}
}

// Load 读取副本状态，未保存过时 ok 为 false
func (s *DBStateStore) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	db := s.db.WithContext(ctx)

	var meta model.ReplicaMeta
	err := db.Where("replica = ?", s.replica).Take(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, errors.Wrap(err, "load replica meta")
	}

	var rows []model.ReplicaNote
	if err := db.Where("replica = ?", s.replica).Order("position asc").Find(&rows).Error; err != nil {
		return domain.Snapshot{}, false, errors.Wrap(err, "load replica notes")
	}

	var tombstones []model.ReplicaTombstone
	if err := db.Where("replica = ?", s.replica).Order("note_id asc").Find(&tombstones).Error; err != nil {
		return domain.Snapshot{}, false, errors.Wrap(err, "load replica tombstones")
	}

	snap := domain.Snapshot{
		Notes:      make([]domain.Note, 0, len(rows)),
		DeletedIDs: make([]string, 0, len(tombstones)),
	}
	if err := copier.Copy(&snap.Notes, &rows); err != nil {
		return domain.Snapshot{}, false, errors.Wrap(err, "convert replica notes")
	}
	for _, t := range tombstones {
		snap.DeletedIDs = append(snap.DeletedIDs, t.NoteID)
	}
	return snap, true, nil
}

// Save 在一个事务中替换副本的全部状态
func (s *DBStateStore) Save(ctx context.Context, snap domain.Snapshot) error {
	rows := make([]model.ReplicaNote, 0, len(snap.Notes))
	if err := copier.Copy(&rows, &snap.Notes); err != nil {
		return errors.Wrap(err, "convert replica notes")
	}
	for i := range rows {
		rows[i].Replica = s.replica
		rows[i].Position = i
	}

	tombstones := make([]model.ReplicaTombstone, 0, len(snap.DeletedIDs))
	for _, id := range snap.DeletedIDs {
		tombstones = append(tombstones, model.ReplicaTombstone{Replica: s.replica, NoteID: id})
	}

	meta := model.ReplicaMeta{
		Replica: s.replica,
		SavedAt: time.Now().UnixMilli(),
		Notes:   len(rows),
		Deleted: len(tombstones),
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("replica = ?", s.replica).Delete(&model.ReplicaNote{}).Error; err != nil {
			return errors.Wrap(err, "clear replica notes")
		}
		if err := tx.Where("replica = ?", s.replica).Delete(&model.ReplicaTombstone{}).Error; err != nil {
			return errors.Wrap(err, "clear replica tombstones")
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(&rows, saveBatchSize).Error; err != nil {
				return errors.Wrap(err, "save replica notes")
			}
		}
		if len(tombstones) > 0 {
			if err := tx.CreateInBatches(&tombstones, saveBatchSize).Error; err != nil {
				return errors.Wrap(err, "save replica tombstones")
			}
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&meta).Error
	})
}
