package repository

import (
	"github.com/fastship-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LocationRepository 邮编数据访问接口
type LocationRepository interface {
	GetOrCreate(zipCode uint) (*models.Location, error)
	EnsureMany(zipCodes []uint) ([]models.Location, error)
	WithTx(tx *gorm.DB) *GormLocationRepository
}

// GormLocationRepository GORM 实现
type GormLocationRepository struct {
	db *gorm.DB
}

// NewLocationRepository 创建邮编仓库
func NewLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLocationRepository) WithTx(tx *gorm.DB) *GormLocationRepository {
	if tx == nil {
		return r
	}
	return &GormLocationRepository{db: tx}
}

// GetOrCreate 按邮编幂等创建
func (r *GormLocationRepository) GetOrCreate(zipCode uint) (*models.Location, error) {
	location := models.Location{ZipCode: zipCode}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&location).Error; err != nil {
		return nil, err
	}
	if err := r.db.First(&location, "zip_code = ?", zipCode).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

// EnsureMany 批量幂等创建，按传入顺序去重返回
func (r *GormLocationRepository) EnsureMany(zipCodes []uint) ([]models.Location, error) {
	seen := make(map[uint]struct{}, len(zipCodes))
	locations := make([]models.Location, 0, len(zipCodes))
	for _, zip := range zipCodes {
		if _, ok := seen[zip]; ok {
			continue
		}
		seen[zip] = struct{}{}
		location, err := r.GetOrCreate(zip)
		if err != nil {
			return nil, err
		}
		locations = append(locations, *location)
	}
	return locations, nil
}
