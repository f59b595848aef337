package models

import "time"

// Location 邮编即主键，无代理 ID
type Location struct {
	ZipCode   uint      `gorm:"primaryKey;autoIncrement:false" json:"zip_code"`
	CreatedAt time.Time `json:"-"`
}

// TableName 指定表名
func (Location) TableName() string {
	return "locations"
}
