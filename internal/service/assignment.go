package service

import (
	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/repository"

	"gorm.io/gorm"
)

// AssignmentEngine 按目的地邮编与剩余承接量选择配送员
type AssignmentEngine struct {
	partnerRepo repository.PartnerRepository
}

// NewAssignmentEngine 创建分配引擎
func NewAssignmentEngine(partnerRepo repository.PartnerRepository) *AssignmentEngine {
	return &AssignmentEngine{partnerRepo: partnerRepo}
}

// Assign 在调用方事务内选择配送员。
// 候选人按 ID 升序逐个加行锁后再统计活跃运单，锁持有到事务结束，
// 并发创建因此在同一配送员上串行化，不会超出最大承接量。
func (e *AssignmentEngine) Assign(tx *gorm.DB, destination uint) (*models.DeliveryPartner, error) {
	repo := e.partnerRepo.WithTx(tx)
	candidates, err := repo.ListServicing(destination)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		partner, err := repo.LockByID(candidate.ID)
		if err != nil {
			return nil, err
		}
		if partner == nil {
			continue
		}
		active, err := repo.CountActiveShipments(partner.ID)
		if err != nil {
			return nil, err
		}
		if int64(partner.MaxHandlingCapacity)-active > 0 {
			return partner, nil
		}
		logger.Debugw("assignment_partner_full",
			"partner_id", partner.ID,
			"max_handling_capacity", partner.MaxHandlingCapacity,
			"active_shipments", active,
		)
	}
	logger.Infow("assignment_partner_unavailable", "destination", destination, "candidates", len(candidates))
	return nil, ErrPartnerUnavailable
}
