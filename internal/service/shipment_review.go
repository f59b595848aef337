package service

import (
	"strings"

	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/repository"
)

// SubmitReviewInput 评价提交
type SubmitReviewInput struct {
	Token   string
	Rating  int
	Comment string
}

// SubmitReview 通过评价邀请令牌提交评价，每个运单至多一条
func (s *ShipmentService) SubmitReview(input SubmitReviewInput) (*models.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, ErrInvalidRating
	}
	shipmentID, err := s.tokens.ParseReviewToken(input.Token)
	if err != nil {
		return nil, err
	}
	shipment, err := s.shipmentRepo.GetByID(shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	existing, err := s.reviewRepo.GetByShipmentID(shipment.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrReviewAlreadyExists
	}

	review := &models.Review{
		ShipmentID: shipment.ID,
		Rating:     input.Rating,
		Comment:    strings.TrimSpace(input.Comment),
	}
	if err := s.reviewRepo.Create(review); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrReviewAlreadyExists
		}
		return nil, err
	}
	logger.Infow("shipment_review_submitted", "shipment_id", shipment.ID, "rating", review.Rating)
	return review, nil
}
