package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	internalApp "github.com/haierkeys/lww-note-sync/internal/app"
	"github.com/haierkeys/lww-note-sync/internal/config"
	"github.com/haierkeys/lww-note-sync/internal/dao"
	"github.com/haierkeys/lww-note-sync/internal/upgrade"
)

// openDatabase 打开数据库，auto-migrate 开启时执行未完成的升级
func openDatabase(ctx context.Context, c config.DatabaseConfig, lg *zap.Logger, debug bool) (*gorm.DB, error) {
	db, err := dao.NewDBEngine(c, debug)
	if err != nil {
		return nil, err
	}
	if !c.AutoMigrate {
		return db, nil
	}
	if _, err := upgrade.NewMigrationManager(db, lg).Run(ctx, internalApp.Version); err != nil {
		_ = dao.CloseDB(db)
		return nil, fmt.Errorf("upgrade database: %w", err)
	}
	return db, nil
}
