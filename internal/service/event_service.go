package service

import (
	"strings"
	"time"

	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/repository"

	"gorm.io/gorm"
)

// AppendEventInput 追加事件参数；Location 为 nil 时沿用上一条事件的地点
type AppendEventInput struct {
	Status      string
	Location    *uint
	Description string
}

// EventService 运单事件日志
type EventService struct {
	eventRepo    repository.ShipmentEventRepository
	locationRepo repository.LocationRepository
	now          func() time.Time
}

// NewEventService 创建事件服务
func NewEventService(eventRepo repository.ShipmentEventRepository, locationRepo repository.LocationRepository) *EventService {
	return &EventService{eventRepo: eventRepo, locationRepo: locationRepo, now: time.Now}
}

// Append 在调用方事务内追加事件。
// 创建时间严格递增，保证时间线排序稳定。
func (s *EventService) Append(tx *gorm.DB, shipment *models.Shipment, input AppendEventInput) (*models.ShipmentEvent, error) {
	eventRepo := s.eventRepo.WithTx(tx)
	prev, err := eventRepo.Latest(shipment.ID)
	if err != nil {
		return nil, err
	}

	location := shipment.Destination
	switch {
	case input.Location != nil:
		location = *input.Location
	case prev != nil:
		location = prev.Location
	}
	if _, err := s.locationRepo.WithTx(tx).GetOrCreate(location); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = DescribeStatus(input.Status, location)
	}

	createdAt := s.now().UTC().Truncate(time.Microsecond)
	if prev != nil && !createdAt.After(prev.CreatedAt) {
		createdAt = prev.CreatedAt.UTC().Add(time.Microsecond)
	}

	event := &models.ShipmentEvent{
		ShipmentID:  shipment.ID,
		Location:    location,
		Status:      input.Status,
		Description: description,
		CreatedAt:   createdAt,
	}
	if err := eventRepo.Create(event); err != nil {
		return nil, err
	}
	return event, nil
}

// Timeline 时间线：最新在前
func (s *EventService) Timeline(shipmentID string) ([]models.ShipmentEvent, error) {
	return s.eventRepo.ListByShipment(shipmentID)
}
