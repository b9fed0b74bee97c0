// Package upgrade 记录并执行副本数据库的版本化升级
package upgrade

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
	"gorm.io/gorm"
)

// SchemaVersion 数据库版本记录表
type SchemaVersion struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Version     string    `gorm:"not null;uniqueIndex;size:64" json:"version"`
	Description string    `gorm:"type:text" json:"description"`
	AppliedAt   time.Time `gorm:"not null" json:"appliedAt"`
}

// Migration 一次升级
type Migration interface {
	Version() string
	Description() string
	Up(ctx context.Context, tx *gorm.DB) error
}

// MigrationManager 升级管理器
type MigrationManager struct {
	db         *gorm.DB
	logger     *zap.Logger
	migrations []Migration
}

// NewMigrationManager 创建升级管理器，migrations 为空时使用内置升级
func NewMigrationManager(db *gorm.DB, logger *zap.Logger, migrations ...Migration) *MigrationManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(migrations) == 0 {
		migrations = Builtin()
	}
	sorted := append([]Migration(nil), migrations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return semver.Compare(canonical(sorted[i].Version()), canonical(sorted[j].Version())) < 0
	})
	return &MigrationManager{db: db, logger: logger, migrations: sorted}
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// Applied 已执行的版本
func (m *MigrationManager) Applied(ctx context.Context) ([]SchemaVersion, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&SchemaVersion{}); err != nil {
		return nil, fmt.Errorf("failed to create schema_version table: %w", err)
	}
	var versions []SchemaVersion
	if err := m.db.WithContext(ctx).Order("id").Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

// Run 执行所有未执行且不高于 running 的升级，返回本次执行数
func (m *MigrationManager) Run(ctx context.Context, running string) (int, error) {
	running = canonical(running)
	if !semver.IsValid(running) {
		return 0, fmt.Errorf("running version %q is not a valid semver", running)
	}

	versions, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[canonical(v.Version)] = true
	}

	executed := 0
	for _, migration := range m.migrations {
		version := canonical(migration.Version())
		if applied[version] {
			continue
		}
		if semver.Compare(version, running) > 0 {
			m.logger.Debug("skip migration newer than running version",
				zap.String("scriptVersion", version),
				zap.String("runningVersion", running))
			continue
		}

		m.logger.Info("applying migration",
			zap.String("scriptVersion", version),
			zap.String("desc", migration.Description()))

		if err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(ctx, tx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			return tx.Create(&SchemaVersion{
				Version:     version,
				Description: migration.Description(),
				AppliedAt:   time.Now(),
			}).Error
		}); err != nil {
			return executed, fmt.Errorf("failed to apply migration %s: %w", version, err)
		}
		executed++
	}

	if executed == 0 {
		m.logger.Debug("database is already up to date", zap.String("runningVersion", running))
	} else {
		m.logger.Info("upgrade completed", zap.Int("migrationsApplied", executed))
	}
	return executed, nil
}
