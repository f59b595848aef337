package service

import (
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/repository"
)

// LocationService 邮编登记
type LocationService struct {
	repo repository.LocationRepository
}

// NewLocationService 创建邮编服务
func NewLocationService(repo repository.LocationRepository) *LocationService {
	return &LocationService{repo: repo}
}

// GetOrCreate 按邮编幂等获取或创建
func (s *LocationService) GetOrCreate(zipCode uint) (*models.Location, error) {
	if zipCode == 0 {
		return nil, ErrInvalidZipCode
	}
	return s.repo.GetOrCreate(zipCode)
}
