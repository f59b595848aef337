package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// IsDuplicateKey 判断是否唯一约束冲突。
// 优先识别 gorm.ErrDuplicatedKey，未开启 TranslateError 时回退到驱动错误文本。
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range duplicateKeyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var duplicateKeyMarkers = []string{
	"unique constraint failed",            // sqlite
	"duplicate key value violates unique", // postgres
	"sqlstate 23505",                      // postgres (pgx)
}

// lockForUpdate 追加 SELECT ... FOR UPDATE；sqlite 不支持行锁，依赖单连接串行写入
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if dbDialectName(db) == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
