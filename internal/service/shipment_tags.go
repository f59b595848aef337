package service

import (
	"fmt"
	"strings"

	"github.com/fastship-next/internal/constants"
	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/repository"

	"gorm.io/gorm"
)

func normalizeTagName(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, known := range constants.TagNames {
		if known == normalized {
			return normalized, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTag, name)
}

// AddTag 为运单添加标签；标签不存在时按名称创建
func (s *ShipmentService) AddTag(shipmentID, tagName string) ([]models.Tag, error) {
	name, err := normalizeTagName(tagName)
	if err != nil {
		return nil, err
	}
	var tags []models.Tag
	err = s.db.Transaction(func(tx *gorm.DB) error {
		shipment, err := s.lockWithTags(tx, shipmentID)
		if err != nil {
			return err
		}
		if shipment.HasTag(name) {
			return ErrTagAlreadyAdded
		}
		tag, err := s.getOrCreateTag(tx, name)
		if err != nil {
			return err
		}
		if err := s.shipmentRepo.WithTx(tx).AttachTag(shipment, tag); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrTagAlreadyAdded
			}
			return err
		}
		tags = shipment.Tags
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("shipment_tag_added", "shipment_id", shipmentID, "tag", name)
	return tags, nil
}

// RemoveTag 移除运单标签；未打该标签时返回 NotFound
func (s *ShipmentService) RemoveTag(shipmentID, tagName string) ([]models.Tag, error) {
	name, err := normalizeTagName(tagName)
	if err != nil {
		return nil, err
	}
	var tags []models.Tag
	err = s.db.Transaction(func(tx *gorm.DB) error {
		shipment, err := s.lockWithTags(tx, shipmentID)
		if err != nil {
			return err
		}
		var target *models.Tag
		for i := range shipment.Tags {
			if shipment.Tags[i].Name == name {
				target = &shipment.Tags[i]
				break
			}
		}
		if target == nil {
			return ErrTagNotOnShipment
		}
		removed := *target
		if err := s.shipmentRepo.WithTx(tx).DetachTag(shipment, &removed); err != nil {
			return err
		}
		tags = shipment.Tags
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("shipment_tag_removed", "shipment_id", shipmentID, "tag", name)
	return tags, nil
}

func (s *ShipmentService) lockWithTags(tx *gorm.DB, shipmentID string) (*models.Shipment, error) {
	shipmentRepo := s.shipmentRepo.WithTx(tx)
	locked, err := shipmentRepo.LockByID(shipmentID)
	if err != nil {
		return nil, err
	}
	if locked == nil {
		return nil, ErrShipmentNotFound
	}
	if isTerminalStatus(locked.Status) {
		return nil, terminalError(locked.Status)
	}
	return shipmentRepo.GetByID(shipmentID)
}

func (s *ShipmentService) getOrCreateTag(tx *gorm.DB, name string) (*models.Tag, error) {
	tagRepo := s.tagRepo.WithTx(tx)
	tag, err := tagRepo.GetByName(name)
	if err != nil {
		return nil, err
	}
	if tag != nil {
		return tag, nil
	}
	if err := tagRepo.Create(&models.Tag{Name: name, Instruction: models.DefaultTagInstruction(name)}); err != nil {
		return nil, err
	}
	return tagRepo.GetByName(name)
}
