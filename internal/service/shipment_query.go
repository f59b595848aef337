package service

import (
	"context"
	"time"

	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/repository"
)

// TrackingEvent 公开追踪事件
type TrackingEvent struct {
	Status      string    `json:"status"`
	Location    uint      `json:"location"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrackingSummary 公开追踪信息（不含联系方式）
type TrackingSummary struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	Destination       uint            `json:"destination"`
	EstimatedDelivery time.Time       `json:"estimated_delivery"`
	PartnerName       string          `json:"delivery_partner"`
	Timeline          []TrackingEvent `json:"timeline"`
}

func trackingKey(shipmentID string) string {
	return "tracking:" + shipmentID
}

// Get 获取运单详情（含标签与时间线）
func (s *ShipmentService) Get(shipmentID string) (*models.Shipment, error) {
	return s.loadDetail(shipmentID)
}

// GetForSeller 卖家查看自己的运单
func (s *ShipmentService) GetForSeller(shipmentID, sellerID string) (*models.Shipment, error) {
	shipment, err := s.loadDetail(shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment.SellerID != sellerID {
		return nil, ErrNotShipmentOwner
	}
	return shipment, nil
}

// GetForPartner 配送员查看分配给自己的运单
func (s *ShipmentService) GetForPartner(shipmentID, partnerID string) (*models.Shipment, error) {
	shipment, err := s.loadDetail(shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment.DeliveryPartnerID != partnerID {
		return nil, ErrNotAssignedPartner
	}
	return shipment, nil
}

// Timeline 运单时间线（最新在前）
func (s *ShipmentService) Timeline(shipmentID string) ([]models.ShipmentEvent, error) {
	shipment, err := s.shipmentRepo.GetByID(shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	return s.events.Timeline(shipmentID)
}

// ListForSeller 卖家运单列表
func (s *ShipmentService) ListForSeller(sellerID string, filter repository.ShipmentListFilter) ([]models.Shipment, int64, error) {
	filter.SellerID = sellerID
	filter.DeliveryPartnerID = ""
	return s.shipmentRepo.List(filter)
}

// ListForPartner 配送员运单列表
func (s *ShipmentService) ListForPartner(partnerID string, filter repository.ShipmentListFilter) ([]models.Shipment, int64, error) {
	filter.DeliveryPartnerID = partnerID
	filter.SellerID = ""
	return s.shipmentRepo.List(filter)
}

// Track 公开追踪，结果短期缓存，状态变更时失效
func (s *ShipmentService) Track(ctx context.Context, shipmentID string) (*TrackingSummary, error) {
	var cached TrackingSummary
	if hit, err := s.cache.GetJSON(ctx, trackingKey(shipmentID), &cached); err != nil {
		logger.Warnw("tracking_cache_read_failed", "shipment_id", shipmentID, "error", err)
	} else if hit {
		return &cached, nil
	}

	shipment, err := s.loadDetail(shipmentID)
	if err != nil {
		return nil, err
	}
	summary := &TrackingSummary{
		ID:                shipment.ID,
		Status:            shipment.Status,
		Destination:       shipment.Destination,
		EstimatedDelivery: shipment.EstimatedDelivery,
		Timeline:          make([]TrackingEvent, 0, len(shipment.Timeline)),
	}
	if shipment.DeliveryPartner != nil {
		summary.PartnerName = shipment.DeliveryPartner.Name
	}
	for _, event := range shipment.Timeline {
		summary.Timeline = append(summary.Timeline, TrackingEvent{
			Status:      event.Status,
			Location:    event.Location,
			Description: event.Description,
			CreatedAt:   event.CreatedAt,
		})
	}
	if err := s.cache.SetJSON(ctx, trackingKey(shipmentID), summary, trackingCacheTTL); err != nil {
		logger.Warnw("tracking_cache_write_failed", "shipment_id", shipmentID, "error", err)
	}
	return summary, nil
}

func (s *ShipmentService) invalidateTracking(ctx context.Context, shipmentID string) {
	if err := s.cache.Del(ctx, trackingKey(shipmentID)); err != nil {
		logger.Warnw("tracking_cache_invalidate_failed", "shipment_id", shipmentID, "error", err)
	}
}
