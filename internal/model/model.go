package model

import (
	"gorm.io/gorm"
)

// AutoMigrate 按 key 迁移表结构，空 key 迁移全部
func AutoMigrate(db *gorm.DB, key string) error {
	switch key {
	case "ReplicaNote":
		return db.AutoMigrate(ReplicaNote{})
	case "ReplicaTombstone":
		return db.AutoMigrate(ReplicaTombstone{})
	case "ReplicaMeta":
		return db.AutoMigrate(ReplicaMeta{})
	case "":
		return db.AutoMigrate(ReplicaNote{}, ReplicaTombstone{}, ReplicaMeta{})
	}
	return nil
}
