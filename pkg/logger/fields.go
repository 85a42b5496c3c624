package logger

// Field name constants keep log field naming consistent across the
// project, which makes log queries predictable.
const (
	// FieldTraceID 追踪 ID 字段
	FieldTraceID = "traceId"

	// FieldNoteID 笔记 ID 字段
	FieldNoteID = "noteId"

	// FieldDomain 域名（存储桶）字段
	FieldDomain = "domain"

	// FieldEvent 事件类型字段
	FieldEvent = "event"

	// FieldDuration 耗时字段
	FieldDuration = "duration"

	// FieldMethod 方法名称字段
	FieldMethod = "method"

	// FieldError 错误信息字段
	FieldError = "error"

	// FieldCount 数量字段
	FieldCount = "count"

	// FieldTarget 备份目标字段
	FieldTarget = "target"

	// FieldStore 存储后端字段
	FieldStore = "store"

	// FieldVersion 版本号字段
	FieldVersion = "version"
)
