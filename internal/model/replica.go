package model

// ReplicaNote 副本中的存活笔记
type ReplicaNote struct {
	Replica      string `gorm:"column:replica;primaryKey;size:64"`
	ID           string `gorm:"column:note_id;primaryKey;size:64"`
	Title        string `gorm:"column:title;type:text"`
	Content      string `gorm:"column:content;type:text"`
	CreatedAt    int64  `gorm:"column:created_at;autoCreateTime:false"`
	LastModified int64  `gorm:"column:last_modified;index"`
	Position     int    `gorm:"column:position"` // 插入顺序
}

// ReplicaTombstone 副本中的墓碑
type ReplicaTombstone struct {
	Replica string `gorm:"column:replica;primaryKey;size:64"`
	NoteID  string `gorm:"column:note_id;primaryKey;size:64"`
}

// ReplicaMeta 记录副本是否保存过，用于区分空副本与从未保存
type ReplicaMeta struct {
	Replica string `gorm:"column:replica;primaryKey;size:64"`
	SavedAt int64  `gorm:"column:saved_at"`
	Notes   int    `gorm:"column:notes"`
	Deleted int    `gorm:"column:deleted"`
}
