package repository

import (
	"github.com/fastship-next/internal/models"

	"gorm.io/gorm"
)

// ShipmentEventRepository 运单事件数据访问接口（只追加）
type ShipmentEventRepository interface {
	Create(event *models.ShipmentEvent) error
	Latest(shipmentID string) (*models.ShipmentEvent, error)
	ListByShipment(shipmentID string) ([]models.ShipmentEvent, error)
	WithTx(tx *gorm.DB) *GormShipmentEventRepository
}

// GormShipmentEventRepository GORM 实现
type GormShipmentEventRepository struct {
	db *gorm.DB
}

// NewShipmentEventRepository 创建事件仓库
func NewShipmentEventRepository(db *gorm.DB) *GormShipmentEventRepository {
	return &GormShipmentEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormShipmentEventRepository) WithTx(tx *gorm.DB) *GormShipmentEventRepository {
	if tx == nil {
		return r
	}
	return &GormShipmentEventRepository{db: tx}
}

// Create 追加事件
func (r *GormShipmentEventRepository) Create(event *models.ShipmentEvent) error {
	return r.db.Create(event).Error
}

// Latest 获取最近一条事件
func (r *GormShipmentEventRepository) Latest(shipmentID string) (*models.ShipmentEvent, error) {
	var events []models.ShipmentEvent
	result := r.db.Where("shipment_id = ?", shipmentID).
		Order("created_at DESC").
		Limit(1).
		Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 || len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// ListByShipment 时间线：最新在前
func (r *GormShipmentEventRepository) ListByShipment(shipmentID string) ([]models.ShipmentEvent, error) {
	var events []models.ShipmentEvent
	if err := r.db.Where("shipment_id = ?", shipmentID).Order("created_at DESC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
