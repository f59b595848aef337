package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/fastship-next/internal/cache"
	"github.com/fastship-next/internal/config"
	"github.com/fastship-next/internal/constants"
	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/metrics"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const trackingCacheTTL = time.Minute

// ShipmentServiceDeps 运单服务依赖
type ShipmentServiceDeps struct {
	DB           *gorm.DB
	Config       config.ShipmentConfig
	ShipmentRepo repository.ShipmentRepository
	SellerRepo   repository.SellerRepository
	TagRepo      repository.TagRepository
	ReviewRepo   repository.ReviewRepository
	Assigner     *AssignmentEngine
	Events       *EventService
	Codes        VerificationCodeStore
	Tokens       *TokenService
	Dispatcher   NotificationDispatcher
	Cache        *cache.Store
	Metrics      *metrics.Metrics
}

// ShipmentService 运单生命周期
type ShipmentService struct {
	db           *gorm.DB
	cfg          config.ShipmentConfig
	shipmentRepo repository.ShipmentRepository
	sellerRepo   repository.SellerRepository
	tagRepo      repository.TagRepository
	reviewRepo   repository.ReviewRepository
	assigner     *AssignmentEngine
	events       *EventService
	codes        VerificationCodeStore
	tokens       *TokenService
	dispatcher   NotificationDispatcher
	cache        *cache.Store
	metrics      *metrics.Metrics
	generateCode CodeGenerator
	now          func() time.Time
}

// NewShipmentService 创建运单服务
func NewShipmentService(deps ShipmentServiceDeps) *ShipmentService {
	return &ShipmentService{
		db:           deps.DB,
		cfg:          deps.Config,
		shipmentRepo: deps.ShipmentRepo,
		sellerRepo:   deps.SellerRepo,
		tagRepo:      deps.TagRepo,
		reviewRepo:   deps.ReviewRepo,
		assigner:     deps.Assigner,
		events:       deps.Events,
		codes:        deps.Codes,
		tokens:       deps.Tokens,
		dispatcher:   deps.Dispatcher,
		cache:        deps.Cache,
		metrics:      deps.Metrics,
		generateCode: GenerateVerificationCode,
		now:          time.Now,
	}
}

// CreateShipmentInput 创建运单输入
type CreateShipmentInput struct {
	Content            string
	Weight             models.Weight
	Destination        uint
	ClientContactEmail string
	ClientContactPhone string
}

// UpdateShipmentInput 配送员更新输入，nil 字段表示未提交
type UpdateShipmentInput struct {
	Status            *string
	Location          *uint
	Description       *string
	EstimatedDelivery *time.Time
	VerificationCode  *string
}

func (s *ShipmentService) maxWeight() decimal.Decimal {
	if s.cfg.MaxWeightKG <= 0 {
		return decimal.NewFromInt(25)
	}
	return decimal.NewFromFloat(s.cfg.MaxWeightKG)
}

func (s *ShipmentService) validateCreate(input CreateShipmentInput) error {
	// 以落库精度判断，避免极小值舍入为 0
	weight := input.Weight.Rounded()
	if !weight.IsPositive() || weight.GreaterThan(s.maxWeight()) {
		return ErrInvalidWeight
	}
	if input.Destination == 0 {
		return ErrDestinationRequired
	}
	email := strings.TrimSpace(input.ClientContactEmail)
	if email == "" {
		return ErrClientEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidClientEmail
	}
	if strings.TrimSpace(input.Content) == "" {
		return ErrContentRequired
	}
	return nil
}

// Create 创建运单并自动分配配送员；无可用配送员时不落库
func (s *ShipmentService) Create(ctx context.Context, sellerID string, input CreateShipmentInput) (*models.Shipment, error) {
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}
	seller, err := s.sellerRepo.GetByID(sellerID)
	if err != nil {
		return nil, err
	}
	if seller == nil {
		return nil, ErrSellerNotFound
	}

	var (
		shipment *models.Shipment
		partner  *models.DeliveryPartner
		event    *models.ShipmentEvent
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		assigned, err := s.assigner.Assign(tx, input.Destination)
		if err != nil {
			return err
		}
		partner = assigned

		shipment = &models.Shipment{
			Content:            strings.TrimSpace(input.Content),
			Weight:             input.Weight,
			Destination:        input.Destination,
			Status:             constants.ShipmentStatusPlaced,
			EstimatedDelivery:  s.now().UTC().Add(s.cfg.EstimatedDelivery()),
			ClientContactEmail: strings.TrimSpace(input.ClientContactEmail),
			ClientContactPhone: strings.TrimSpace(input.ClientContactPhone),
			SellerID:           seller.ID,
			DeliveryPartnerID:  partner.ID,
		}
		if err := s.shipmentRepo.WithTx(tx).Create(shipment); err != nil {
			return err
		}
		destination := input.Destination
		event, err = s.events.Append(tx, shipment, AppendEventInput{
			Status:      constants.ShipmentStatusPlaced,
			Location:    &destination,
			Description: fmt.Sprintf("assigned to %s", partner.Name),
		})
		return err
	})
	if err != nil {
		if errors.Is(err, ErrPartnerUnavailable) {
			s.metrics.AssignmentFailed()
		}
		return nil, err
	}

	s.metrics.ShipmentCreated()
	s.metrics.Transition(constants.ShipmentStatusPlaced)
	logger.Infow("shipment_created",
		"shipment_id", shipment.ID,
		"seller_id", seller.ID,
		"delivery_partner_id", partner.ID,
		"destination", shipment.Destination,
	)

	buildStatusNotifications(constants.ShipmentStatusPlaced, statusNotice{
		Shipment:    shipment,
		SellerName:  seller.Name,
		PartnerName: partner.Name,
	}).flush(ctx, s.dispatcher, s.metrics, shipment.ID)

	shipment.Seller = seller
	shipment.DeliveryPartner = partner
	shipment.Timeline = []models.ShipmentEvent{*event}
	return shipment, nil
}

// Update 配送员更新运单状态/地点；签收需提交有效验证码
func (s *ShipmentService) Update(ctx context.Context, shipmentID, partnerID string, input UpdateShipmentInput) (*models.Shipment, error) {
	var (
		previous  string
		shipment  *models.Shipment
		code      string
		reviewURL string
	)
	if input.Location != nil && *input.Location == 0 {
		return nil, ErrInvalidZipCode
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		shipmentRepo := s.shipmentRepo.WithTx(tx)
		locked, err := shipmentRepo.LockByID(shipmentID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrShipmentNotFound
		}
		shipment = locked
		previous = shipment.Status

		if isTerminalStatus(shipment.Status) {
			return terminalError(shipment.Status)
		}
		if shipment.DeliveryPartnerID != partnerID {
			return ErrNotAssignedPartner
		}

		target := shipment.Status
		if input.Status != nil {
			target = strings.TrimSpace(*input.Status)
			if err := checkPartnerTransition(shipment.Status, target); err != nil {
				return err
			}
		}
		if target == constants.ShipmentStatusDelivered {
			if input.VerificationCode == nil || strings.TrimSpace(*input.VerificationCode) == "" {
				return ErrVerificationCodeRequired
			}
			if err := checkVerificationCode(ctx, s.codes, shipment.ID, strings.TrimSpace(*input.VerificationCode)); err != nil {
				return err
			}
		}

		statusChanged := target != shipment.Status
		shipment.Status = target
		if input.EstimatedDelivery != nil {
			shipment.EstimatedDelivery = input.EstimatedDelivery.UTC()
		}
		if err := shipmentRepo.Update(shipment); err != nil {
			return err
		}

		if statusChanged || input.Location != nil {
			description := ""
			if input.Description != nil {
				description = *input.Description
			}
			if _, err := s.events.Append(tx, shipment, AppendEventInput{
				Status:      target,
				Location:    input.Location,
				Description: description,
			}); err != nil {
				return err
			}
		}

		if !statusChanged {
			return nil
		}
		switch target {
		case constants.ShipmentStatusOutForDelivery:
			code, err = s.generateCode()
			if err != nil {
				return err
			}
		case constants.ShipmentStatusDelivered:
			_, reviewURL, err = s.tokens.IssueReviewToken(shipment.ID, s.cfg.ReviewTokenTTL())
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTracking(ctx, shipment.ID)
	if code != "" {
		if err := s.codes.Put(ctx, shipment.ID, code, s.cfg.VerificationCodeTTL()); err != nil {
			logger.Errorw("shipment_verification_code_store_failed",
				"shipment_id", shipment.ID,
				"error", err,
			)
		}
	}
	if shipment.Status != previous {
		s.metrics.Transition(shipment.Status)
		logger.Infow("shipment_status_changed",
			"shipment_id", shipment.ID,
			"from", previous,
			"to", shipment.Status,
			"delivery_partner_id", partnerID,
		)
		s.notifyStatus(ctx, shipment, code, reviewURL)
	}
	return s.loadDetail(shipment.ID)
}

// Cancel 卖家取消运单；已终态的运单（含已取消）拒绝再次取消
func (s *ShipmentService) Cancel(ctx context.Context, shipmentID, sellerID string) (*models.Shipment, error) {
	var shipment *models.Shipment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		shipmentRepo := s.shipmentRepo.WithTx(tx)
		locked, err := shipmentRepo.LockByID(shipmentID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrShipmentNotFound
		}
		shipment = locked
		if shipment.SellerID != sellerID {
			return ErrNotShipmentOwner
		}
		if isTerminalStatus(shipment.Status) {
			return terminalError(shipment.Status)
		}
		shipment.Status = constants.ShipmentStatusCancelled
		if err := shipmentRepo.Update(shipment); err != nil {
			return err
		}
		_, err = s.events.Append(tx, shipment, AppendEventInput{Status: constants.ShipmentStatusCancelled})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTracking(ctx, shipment.ID)
	s.metrics.Transition(constants.ShipmentStatusCancelled)
	logger.Infow("shipment_cancelled", "shipment_id", shipment.ID, "seller_id", sellerID)
	s.notifyStatus(ctx, shipment, "", "")
	return s.loadDetail(shipment.ID)
}

func (s *ShipmentService) notifyStatus(ctx context.Context, shipment *models.Shipment, code, reviewURL string) {
	sellerName := ""
	if seller, err := s.sellerRepo.GetByID(shipment.SellerID); err != nil {
		logger.Warnw("shipment_notify_seller_lookup_failed", "shipment_id", shipment.ID, "error", err)
	} else if seller != nil {
		sellerName = seller.Name
	}
	buildStatusNotifications(shipment.Status, statusNotice{
		Shipment:   shipment,
		SellerName: sellerName,
		Code:       code,
		ReviewURL:  reviewURL,
	}).flush(ctx, s.dispatcher, s.metrics, shipment.ID)
}

func (s *ShipmentService) loadDetail(shipmentID string) (*models.Shipment, error) {
	shipment, err := s.shipmentRepo.GetDetail(shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	timeline, err := s.events.Timeline(shipment.ID)
	if err != nil {
		return nil, err
	}
	shipment.Timeline = timeline
	return shipment, nil
}
