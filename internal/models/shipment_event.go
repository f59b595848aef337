package models

import (
	"time"

	"gorm.io/gorm"
)

// ShipmentEvent 运单事件（只追加，不修改）
type ShipmentEvent struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ShipmentID  string    `gorm:"type:varchar(36);index:idx_shipment_events_timeline,priority:1;not null" json:"shipment_id"`
	Location    uint      `gorm:"not null" json:"location"`                       // 发生地邮编
	Status      string    `gorm:"type:varchar(32);not null" json:"status"`        // 当时的运单状态快照
	Description string    `gorm:"type:varchar(500)" json:"description,omitempty"` // 描述
	CreatedAt   time.Time `gorm:"index:idx_shipment_events_timeline,priority:2" json:"created_at"`
}

// TableName 指定表名
func (ShipmentEvent) TableName() string {
	return "shipment_events"
}

// BeforeCreate 生成主键
func (e *ShipmentEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = newID()
	}
	return nil
}
