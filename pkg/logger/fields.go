package logger

// 统一的日志字段命名常量
// 用于确保整个项目中日志字段命名的一致性，便于日志查询和分析
const (
	// FieldTraceID 追踪 ID 字段
	FieldTraceID = "traceId"

	// FieldNoteID 笔记 ID 字段
	FieldNoteID = "noteId"

	// FieldReplica 副本名称字段（client / server）
	FieldReplica = "replica"

	// FieldState 连接状态字段
	FieldState = "state"

	// FieldAction 操作类型字段
	FieldAction = "action"

	// FieldReason 触发原因字段
	FieldReason = "reason"

	// FieldDuration 耗时字段
	FieldDuration = "duration"

	// FieldMethod 方法名称字段
	FieldMethod = "method"

	// FieldNotes 笔记数量字段
	FieldNotes = "notes"

	// FieldTombstones 墓碑数量字段
	FieldTombstones = "tombstones"

	// FieldServerURL 服务端地址字段
	FieldServerURL = "serverUrl"
)
