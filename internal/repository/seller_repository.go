package repository

import (
	"errors"
	"strings"

	"github.com/fastship-next/internal/models"

	"gorm.io/gorm"
)

// SellerRepository 卖家数据访问接口
type SellerRepository interface {
	Create(seller *models.Seller) error
	GetByID(id string) (*models.Seller, error)
	GetByEmail(email string) (*models.Seller, error)
	MarkEmailVerified(id string) error
}

// GormSellerRepository GORM 实现
type GormSellerRepository struct {
	db *gorm.DB
}

// NewSellerRepository 创建卖家仓库
func NewSellerRepository(db *gorm.DB) *GormSellerRepository {
	return &GormSellerRepository{db: db}
}

// Create 创建卖家
func (r *GormSellerRepository) Create(seller *models.Seller) error {
	return r.db.Create(seller).Error
}

// GetByID 根据 ID 获取卖家
func (r *GormSellerRepository) GetByID(id string) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.First(&seller, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &seller, nil
}

// GetByEmail 根据邮箱获取卖家
func (r *GormSellerRepository) GetByEmail(email string) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&seller).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &seller, nil
}

// MarkEmailVerified 标记邮箱已验证
func (r *GormSellerRepository) MarkEmailVerified(id string) error {
	return r.db.Model(&models.Seller{}).Where("id = ?", id).Update("email_verified", true).Error
}
