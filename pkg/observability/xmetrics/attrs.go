package xmetrics

// 账本与锁相关的 span 属性键。
const (
	AttrLockKey  = "lock_key"
	AttrRecordID = "record_id"
	AttrAttempts = "attempts"
)

// String 创建字符串属性。
func String(key, value string) Attr { return Attr{Key: key, Value: value} }

// Int 创建整数属性。
func Int(key string, value int) Attr { return Attr{Key: key, Value: value} }

// Int64 创建 int64 属性。
func Int64(key string, value int64) Attr { return Attr{Key: key, Value: value} }

// LockKey 锁 key 属性。
func LockKey(key string) Attr { return String(AttrLockKey, key) }

// RecordID 账本记录 ID 属性。
func RecordID(id int64) Attr { return Int64(AttrRecordID, id) }

// Attempts 实际尝试次数属性。
func Attempts(n int) Attr { return Int(AttrAttempts, n) }
