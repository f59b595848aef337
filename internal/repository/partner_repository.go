package repository

import (
	"errors"
	"strings"

	"github.com/fastship-next/internal/constants"
	"github.com/fastship-next/internal/models"

	"gorm.io/gorm"
)

// PartnerRepository 配送员数据访问接口
type PartnerRepository interface {
	Create(partner *models.DeliveryPartner) error
	GetByID(id string) (*models.DeliveryPartner, error)
	GetByEmail(email string) (*models.DeliveryPartner, error)
	LockByID(id string) (*models.DeliveryPartner, error)
	ListServicing(zipCode uint) ([]models.DeliveryPartner, error)
	Update(partner *models.DeliveryPartner) error
	ReplaceServiceableLocations(partner *models.DeliveryPartner, locations []models.Location) error
	CountActiveShipments(partnerID string) (int64, error)
	MarkEmailVerified(id string) error
	WithTx(tx *gorm.DB) *GormPartnerRepository
}

// GormPartnerRepository GORM 实现
type GormPartnerRepository struct {
	db *gorm.DB
}

// NewPartnerRepository 创建配送员仓库
func NewPartnerRepository(db *gorm.DB) *GormPartnerRepository {
	return &GormPartnerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPartnerRepository) WithTx(tx *gorm.DB) *GormPartnerRepository {
	if tx == nil {
		return r
	}
	return &GormPartnerRepository{db: tx}
}

// Create 创建配送员
func (r *GormPartnerRepository) Create(partner *models.DeliveryPartner) error {
	return r.db.Omit("ServiceableLocations").Create(partner).Error
}

// GetByID 根据 ID 获取配送员（含可配送邮编）
func (r *GormPartnerRepository) GetByID(id string) (*models.DeliveryPartner, error) {
	var partner models.DeliveryPartner
	if err := r.db.Preload("ServiceableLocations").First(&partner, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

// GetByEmail 根据邮箱获取配送员
func (r *GormPartnerRepository) GetByEmail(email string) (*models.DeliveryPartner, error) {
	var partner models.DeliveryPartner
	if err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&partner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

// LockByID 加行锁读取配送员，仅在事务内使用
func (r *GormPartnerRepository) LockByID(id string) (*models.DeliveryPartner, error) {
	var partner models.DeliveryPartner
	if err := lockForUpdate(r.db).First(&partner, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

// ListServicing 查询可配送指定邮编的配送员，按 ID 升序保证分配结果可复现
func (r *GormPartnerRepository) ListServicing(zipCode uint) ([]models.DeliveryPartner, error) {
	var partners []models.DeliveryPartner
	err := r.db.
		Joins("JOIN serviceable_locations sl ON sl.delivery_partner_id = delivery_partners.id").
		Where("sl.location_zip_code = ?", zipCode).
		Order("delivery_partners.id ASC").
		Find(&partners).Error
	if err != nil {
		return nil, err
	}
	return partners, nil
}

// Update 更新配送员基础字段
func (r *GormPartnerRepository) Update(partner *models.DeliveryPartner) error {
	return r.db.Omit("ServiceableLocations").Save(partner).Error
}

// ReplaceServiceableLocations 整体替换可配送邮编（非追加），不清理孤立邮编
func (r *GormPartnerRepository) ReplaceServiceableLocations(partner *models.DeliveryPartner, locations []models.Location) error {
	if err := r.db.Model(partner).Association("ServiceableLocations").Replace(locations); err != nil {
		return err
	}
	partner.ServiceableLocations = locations
	return nil
}

// CountActiveShipments 统计占用承接量的运单（状态不为 delivered）
func (r *GormPartnerRepository) CountActiveShipments(partnerID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Shipment{}).
		Where("delivery_partner_id = ? AND status <> ?", partnerID, constants.ShipmentStatusDelivered).
		Count(&count).Error
	return count, err
}

// MarkEmailVerified 标记邮箱已验证
func (r *GormPartnerRepository) MarkEmailVerified(id string) error {
	return r.db.Model(&models.DeliveryPartner{}).Where("id = ?", id).Update("email_verified", true).Error
}
