package upgrade

import (
	"context"

	"gorm.io/gorm"

	"github.com/haierkeys/lww-note-sync/internal/model"
)

// Builtin 内置升级，按版本顺序
func Builtin() []Migration {
	return []Migration{
		&replicaTablesMigrate{},
		&metaCountsMigrate{},
		&positionCompactMigrate{},
	}
}

// replicaTablesMigrate 创建副本表
type replicaTablesMigrate struct{}

func (replicaTablesMigrate) Version() string     { return "0.1.0" }
func (replicaTablesMigrate) Description() string { return "create replica tables" }
func (replicaTablesMigrate) Up(ctx context.Context, tx *gorm.DB) error {
	return model.AutoMigrate(tx, "")
}

// metaCountsMigrate 回填 ReplicaMeta 的笔记数与墓碑数
type metaCountsMigrate struct{}

func (metaCountsMigrate) Version() string     { return "0.2.0" }
func (metaCountsMigrate) Description() string { return "backfill replica meta counts" }
func (metaCountsMigrate) Up(ctx context.Context, tx *gorm.DB) error {
	if err := model.AutoMigrate(tx, "ReplicaMeta"); err != nil {
		return err
	}
	var metas []model.ReplicaMeta
	if err := tx.Find(&metas).Error; err != nil {
		return err
	}
	for _, m := range metas {
		var notes, deleted int64
		if err := tx.Model(&model.ReplicaNote{}).Where("replica = ?", m.Replica).Count(&notes).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.ReplicaTombstone{}).Where("replica = ?", m.Replica).Count(&deleted).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.ReplicaMeta{}).Where("replica = ?", m.Replica).
			Updates(map[string]any{"notes": notes, "deleted": deleted}).Error; err != nil {
			return err
		}
	}
	return nil
}

// positionCompactMigrate 将每个副本的插入顺序压缩为 0..n-1
type positionCompactMigrate struct{}

func (positionCompactMigrate) Version() string     { return "0.3.0" }
func (positionCompactMigrate) Description() string { return "compact note positions" }
func (positionCompactMigrate) Up(ctx context.Context, tx *gorm.DB) error {
	var replicas []string
	if err := tx.Model(&model.ReplicaNote{}).Distinct("replica").Pluck("replica", &replicas).Error; err != nil {
		return err
	}
	for _, r := range replicas {
		var notes []model.ReplicaNote
		if err := tx.Where("replica = ?", r).Order("position, note_id").Find(&notes).Error; err != nil {
			return err
		}
		for i, n := range notes {
			if n.Position == i {
				continue
			}
			if err := tx.Model(&model.ReplicaNote{}).
				Where("replica = ? AND note_id = ?", r, n.ID).
				Update("position", i).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
