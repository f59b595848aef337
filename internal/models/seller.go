package models

import (
	"time"

	"github.com/fastship-next/internal/constants"

	"gorm.io/gorm"
)

// Seller 卖家表
type Seller struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"` // 主键
	Account   `gorm:"embedded"`
	Address   string    `gorm:"type:varchar(255)" json:"address,omitempty"` // 发货地址
	ZipCode   uint      `gorm:"index" json:"zip_code,omitempty"`            // 发货邮编
	CreatedAt time.Time `gorm:"index" json:"created_at"`                    // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                 // 更新时间
}

// TableName 指定表名
func (Seller) TableName() string {
	return "sellers"
}

// BeforeCreate 生成主键
func (s *Seller) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}

func (s *Seller) AccountID() string   { return s.ID }
func (s *Seller) AccountRole() string { return constants.RoleSeller }
func (s *Seller) Profile() *Account   { return &s.Account }
