package service

import (
	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/repository"

	"gorm.io/gorm"
)

// PartnerProfile 配送员信息及实时承接量
type PartnerProfile struct {
	Partner         *models.DeliveryPartner `json:"partner"`
	ZipCodes        []uint                  `json:"serviceable_zip_codes"`
	ActiveShipments int64                   `json:"active_shipments"`
	CurrentCapacity int64                   `json:"current_handling_capacity"`
}

// UpdatePartnerInput 配送员资料更新，nil 字段保持不变
type UpdatePartnerInput struct {
	Name                *string
	MaxHandlingCapacity *int
	ZipCodes            []uint
	ReplaceZipCodes     bool
}

// PartnerService 配送员目录
type PartnerService struct {
	db           *gorm.DB
	partnerRepo  repository.PartnerRepository
	locationRepo repository.LocationRepository
}

// NewPartnerService 创建配送员服务
func NewPartnerService(db *gorm.DB, partnerRepo repository.PartnerRepository, locationRepo repository.LocationRepository) *PartnerService {
	return &PartnerService{db: db, partnerRepo: partnerRepo, locationRepo: locationRepo}
}

// PartnersServicing 可配送指定邮编的配送员（按 ID 升序）
func (s *PartnerService) PartnersServicing(zipCode uint) ([]models.DeliveryPartner, error) {
	if zipCode == 0 {
		return nil, ErrInvalidZipCode
	}
	return s.partnerRepo.ListServicing(zipCode)
}

// SetServiceableLocations 整体替换可配送邮编，未知邮编按需创建
func (s *PartnerService) SetServiceableLocations(partnerID string, zipCodes []uint) error {
	if err := validateZipCodes(zipCodes); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		partnerRepo := s.partnerRepo.WithTx(tx)
		partner, err := partnerRepo.LockByID(partnerID)
		if err != nil {
			return err
		}
		if partner == nil {
			return ErrPartnerNotFound
		}
		return replaceLocations(tx, partnerRepo, s.locationRepo, partner, zipCodes)
	})
}

// CurrentCapacity 实时承接量：最大承接量减去活跃运单数
func (s *PartnerService) CurrentCapacity(partnerID string) (int64, error) {
	profile, err := s.Profile(partnerID)
	if err != nil {
		return 0, err
	}
	return profile.CurrentCapacity, nil
}

// Profile 获取配送员资料
func (s *PartnerService) Profile(partnerID string) (*PartnerProfile, error) {
	partner, err := s.partnerRepo.GetByID(partnerID)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, ErrPartnerNotFound
	}
	active, err := s.partnerRepo.CountActiveShipments(partner.ID)
	if err != nil {
		return nil, err
	}
	return &PartnerProfile{
		Partner:         partner,
		ZipCodes:        partner.ZipCodes(),
		ActiveShipments: active,
		CurrentCapacity: int64(partner.MaxHandlingCapacity) - active,
	}, nil
}

// Update 更新配送员名称、最大承接量与可配送邮编
func (s *PartnerService) Update(partnerID string, input UpdatePartnerInput) (*PartnerProfile, error) {
	if input.MaxHandlingCapacity != nil && *input.MaxHandlingCapacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if input.Name != nil && *input.Name == "" {
		return nil, ErrNameRequired
	}
	if input.ReplaceZipCodes {
		if err := validateZipCodes(input.ZipCodes); err != nil {
			return nil, err
		}
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		partnerRepo := s.partnerRepo.WithTx(tx)
		partner, err := partnerRepo.LockByID(partnerID)
		if err != nil {
			return err
		}
		if partner == nil {
			return ErrPartnerNotFound
		}
		if input.Name != nil {
			partner.Name = *input.Name
		}
		if input.MaxHandlingCapacity != nil {
			partner.MaxHandlingCapacity = *input.MaxHandlingCapacity
		}
		if err := partnerRepo.Update(partner); err != nil {
			return err
		}
		if input.ReplaceZipCodes {
			return replaceLocations(tx, partnerRepo, s.locationRepo, partner, input.ZipCodes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("partner_profile_updated", "partner_id", partnerID, "replace_zip_codes", input.ReplaceZipCodes)
	return s.Profile(partnerID)
}

func replaceLocations(tx *gorm.DB, partnerRepo repository.PartnerRepository, locationRepo repository.LocationRepository, partner *models.DeliveryPartner, zipCodes []uint) error {
	locations, err := locationRepo.WithTx(tx).EnsureMany(zipCodes)
	if err != nil {
		return err
	}
	return partnerRepo.ReplaceServiceableLocations(partner, locations)
}

func validateZipCodes(zipCodes []uint) error {
	for _, zip := range zipCodes {
		if zip == 0 {
			return ErrInvalidZipCode
		}
	}
	return nil
}
