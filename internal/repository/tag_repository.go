package repository

import (
	"errors"

	"github.com/fastship-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository 标签数据访问接口
type TagRepository interface {
	GetByName(name string) (*models.Tag, error)
	Create(tag *models.Tag) error
	WithTx(tx *gorm.DB) *GormTagRepository
}

// GormTagRepository GORM 实现
type GormTagRepository struct {
	db *gorm.DB
}

// NewTagRepository 创建标签仓库
func NewTagRepository(db *gorm.DB) *GormTagRepository {
	return &GormTagRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTagRepository) WithTx(tx *gorm.DB) *GormTagRepository {
	if tx == nil {
		return r
	}
	return &GormTagRepository{db: tx}
}

// GetByName 根据标签名获取
func (r *GormTagRepository) GetByName(name string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.Where("name = ?", name).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tag, nil
}

// Create 创建标签，同名标签已存在时不做处理
func (r *GormTagRepository) Create(tag *models.Tag) error {
	return r.db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(tag).Error
}
