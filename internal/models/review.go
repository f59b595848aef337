package models

import (
	"time"

	"gorm.io/gorm"
)

// Review 运单评价（每个运单至多一条）
type Review struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ShipmentID string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"shipment_id"`
	Rating     int       `gorm:"not null" json:"rating"`                     // 1-5
	Comment    string    `gorm:"type:varchar(1000)" json:"comment,omitempty"` // 评价内容
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (Review) TableName() string {
	return "reviews"
}

// BeforeCreate 生成主键
func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = newID()
	}
	return nil
}
