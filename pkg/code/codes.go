package code

var (
	Success = NewSuss(200, lang{en: "Success", zh_cn: "成功"})
	Failed  = NewError(400, lang{en: "Failed", zh_cn: "失败"})

	ErrorInvalidParams  = NewError(10001, lang{en: "Invalid request parameters", zh_cn: "请求参数错误"})
	ErrorNotFoundAPI    = NewError(10002, lang{en: "API not found", zh_cn: "接口不存在"})
	ErrorTooManyRequests = NewError(10003, lang{en: "Too many requests", zh_cn: "请求过多"})
	ErrorServerInternal = NewError(10004, lang{en: "Internal server error", zh_cn: "服务内部错误"})
	ErrorRequestTimeout = NewError(10005, lang{en: "Request timeout", zh_cn: "请求超时"})
	ErrorNotAuthToken   = NewError(10006, lang{en: "Missing or invalid auth token", zh_cn: "鉴权令牌缺失或无效"})

	ErrorInvalidNote     = NewError(20001, lang{en: "Note domain is required", zh_cn: "笔记所属域名不能为空"})
	ErrorNoteNotFound    = NewError(20002, lang{en: "Note not found", zh_cn: "笔记不存在"})
	ErrorInvalidDomain   = NewError(20003, lang{en: "Domain is required", zh_cn: "域名不能为空"})
	ErrorStorageWrite    = NewError(20004, lang{en: "Storage write failed", zh_cn: "存储写入失败"})
	ErrorStorageConflict = NewError(20005, lang{en: "Storage version conflict", zh_cn: "存储版本冲突"})
	ErrorInvalidStoreType = NewError(20006, lang{en: "Invalid store type", zh_cn: "无效的存储类型"})

	ErrorImportInvalidPayload   = NewError(30001, lang{en: "Import payload is not a recognized export", zh_cn: "导入数据不是可识别的导出格式"})
	ErrorImportFailed           = NewError(30002, lang{en: "Import failed", zh_cn: "导入失败"})
	ErrorEncryptionIncompatible = NewError(30003, lang{en: "Payload contains encrypted notes and no decryption capability is available", zh_cn: "数据包含加密笔记且当前环境无法解密"})

	ErrorInvalidBackupTarget = NewError(40001, lang{en: "Invalid backup target", zh_cn: "无效的备份目标"})
	ErrorBackupFailed        = NewError(40002, lang{en: "Backup failed", zh_cn: "备份失败"})
)
