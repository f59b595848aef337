package models

import (
	"time"

	"gorm.io/gorm"
)

// Tag 运单标签
type Tag struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"-"`
	Name        string    `gorm:"type:varchar(40);uniqueIndex;not null" json:"name"` // 标签名（封闭集合）
	Instruction string    `gorm:"type:varchar(255);not null" json:"instruction"`     // 处理说明
	CreatedAt   time.Time `json:"-"`
}

// TableName 指定表名
func (Tag) TableName() string {
	return "tags"
}

// BeforeCreate 生成主键
func (t *Tag) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = newID()
	}
	return nil
}
