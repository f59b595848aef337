package models

import (
	"github.com/google/uuid"
)

// Account 卖家与配送员共用的账号字段
type Account struct {
	Name          string `gorm:"type:varchar(120);not null" json:"name"`             // 名称
	Email         string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"` // 登录邮箱
	EmailVerified bool   `gorm:"not null;default:false" json:"email_verified"`        // 邮箱是否已验证
	PasswordHash  string `gorm:"type:varchar(255);not null" json:"-"`                 // 密码哈希
}

// Identity 账号主体抽象，卖家与配送员均实现
type Identity interface {
	AccountID() string
	AccountRole() string
	Profile() *Account
}

func newID() string {
	return uuid.NewString()
}
