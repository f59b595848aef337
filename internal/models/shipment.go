package models

import (
	"time"

	"gorm.io/gorm"
)

// Shipment 运单表
type Shipment struct {
	ID                 string    `gorm:"type:varchar(36);primaryKey" json:"id"`                  // 主键
	Content            string    `gorm:"type:varchar(500);not null" json:"content"`              // 货物描述
	Weight             Weight    `gorm:"type:decimal(8,3);not null" json:"weight"`               // 重量（千克）
	Destination        uint      `gorm:"index;not null" json:"destination"`                      // 目的地邮编
	Status             string    `gorm:"type:varchar(32);index;not null" json:"status"`          // 运单状态
	EstimatedDelivery  time.Time `gorm:"not null" json:"estimated_delivery"`                     // 预计送达（UTC）
	ClientContactEmail string    `gorm:"type:varchar(255);not null" json:"client_contact_email"` // 收件人邮箱
	ClientContactPhone string    `gorm:"type:varchar(32)" json:"client_contact_phone,omitempty"` // 收件人电话
	SellerID           string    `gorm:"type:varchar(36);index;not null" json:"seller_id"`       // 卖家ID
	DeliveryPartnerID  string    `gorm:"type:varchar(36);index;not null" json:"delivery_partner_id"`
	CreatedAt          time.Time `gorm:"index" json:"created_at"` // 创建时间
	UpdatedAt          time.Time `json:"updated_at"`              // 更新时间

	Seller          *Seller          `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	DeliveryPartner *DeliveryPartner `gorm:"foreignKey:DeliveryPartnerID" json:"delivery_partner,omitempty"`
	Tags            []Tag            `gorm:"many2many:shipment_tags;" json:"tags,omitempty"`
	Timeline        []ShipmentEvent  `gorm:"-" json:"timeline,omitempty"` // 最新在前
}

// TableName 指定表名
func (Shipment) TableName() string {
	return "shipments"
}

// BeforeCreate 生成主键
func (s *Shipment) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}

// HasTag 判断是否已打标签
func (s *Shipment) HasTag(name string) bool {
	for _, tag := range s.Tags {
		if tag.Name == name {
			return true
		}
	}
	return false
}
