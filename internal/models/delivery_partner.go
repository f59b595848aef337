package models

import (
	"time"

	"github.com/fastship-next/internal/constants"

	"gorm.io/gorm"
)

// DeliveryPartner 配送员表
// 当前可承接量不落库，每次读取时按活跃运单数实时计算
type DeliveryPartner struct {
	ID                  string    `gorm:"type:varchar(36);primaryKey" json:"id"` // 主键
	Account             `gorm:"embedded"`
	MaxHandlingCapacity int       `gorm:"not null" json:"max_handling_capacity"` // 最大承接量
	CreatedAt           time.Time `gorm:"index" json:"created_at"`               // 创建时间
	UpdatedAt           time.Time `json:"updated_at"`                            // 更新时间

	ServiceableLocations []Location `gorm:"many2many:serviceable_locations;" json:"serviceable_locations,omitempty"` // 可配送邮编
}

// TableName 指定表名
func (DeliveryPartner) TableName() string {
	return "delivery_partners"
}

// BeforeCreate 生成主键
func (p *DeliveryPartner) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	return nil
}

func (p *DeliveryPartner) AccountID() string   { return p.ID }
func (p *DeliveryPartner) AccountRole() string { return constants.RolePartner }
func (p *DeliveryPartner) Profile() *Account   { return &p.Account }

// ZipCodes 返回可配送邮编列表
func (p *DeliveryPartner) ZipCodes() []uint {
	zips := make([]uint, 0, len(p.ServiceableLocations))
	for _, loc := range p.ServiceableLocations {
		zips = append(zips, loc.ZipCode)
	}
	return zips
}
