package repository

import (
	"errors"

	"github.com/fastship-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShipmentRepository 运单数据访问接口
type ShipmentRepository interface {
	Create(shipment *models.Shipment) error
	GetByID(id string) (*models.Shipment, error)
	GetDetail(id string) (*models.Shipment, error)
	LockByID(id string) (*models.Shipment, error)
	Update(shipment *models.Shipment) error
	List(filter ShipmentListFilter) ([]models.Shipment, int64, error)
	AttachTag(shipment *models.Shipment, tag *models.Tag) error
	DetachTag(shipment *models.Shipment, tag *models.Tag) error
	WithTx(tx *gorm.DB) *GormShipmentRepository
}

// GormShipmentRepository GORM 实现
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewShipmentRepository 创建运单仓库
func NewShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormShipmentRepository) WithTx(tx *gorm.DB) *GormShipmentRepository {
	if tx == nil {
		return r
	}
	return &GormShipmentRepository{db: tx}
}

// Create 创建运单（不级联关联）
func (r *GormShipmentRepository) Create(shipment *models.Shipment) error {
	return r.db.Omit(clause.Associations).Create(shipment).Error
}

// GetByID 根据 ID 获取运单（含标签）
func (r *GormShipmentRepository) GetByID(id string) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.Preload("Tags").First(&shipment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shipment, nil
}

// GetDetail 获取运单及卖家、配送员信息
func (r *GormShipmentRepository) GetDetail(id string) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.
		Preload("Tags").
		Preload("Seller").
		Preload("DeliveryPartner").
		First(&shipment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shipment, nil
}

// LockByID 加行锁读取运单，仅在事务内使用
func (r *GormShipmentRepository) LockByID(id string) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := lockForUpdate(r.db).First(&shipment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shipment, nil
}

// Update 更新运单可变字段
func (r *GormShipmentRepository) Update(shipment *models.Shipment) error {
	return r.db.Model(shipment).Updates(map[string]interface{}{
		"status":             shipment.Status,
		"estimated_delivery": shipment.EstimatedDelivery,
	}).Error
}

// List 分页查询运单
func (r *GormShipmentRepository) List(filter ShipmentListFilter) ([]models.Shipment, int64, error) {
	query := r.db.Model(&models.Shipment{})
	if filter.SellerID != "" {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.DeliveryPartnerID != "" {
		query = query.Where("delivery_partner_id = ?", filter.DeliveryPartnerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Destination != 0 {
		query = query.Where("destination = ?", filter.Destination)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var shipments []models.Shipment
	query = applyPagination(query.Preload("Tags").Order("created_at DESC"), filter.Page, filter.PageSize)
	if err := query.Find(&shipments).Error; err != nil {
		return nil, 0, err
	}
	return shipments, total, nil
}

// AttachTag 为运单打标签
func (r *GormShipmentRepository) AttachTag(shipment *models.Shipment, tag *models.Tag) error {
	return r.db.Model(shipment).Association("Tags").Append(tag)
}

// DetachTag 移除运单标签（仅删除关联，不删除标签）
func (r *GormShipmentRepository) DetachTag(shipment *models.Shipment, tag *models.Tag) error {
	return r.db.Model(shipment).Association("Tags").Delete(tag)
}
