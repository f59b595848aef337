package models

import (
	"errors"
	"fmt"

	"github.com/fastship-next/internal/constants"
	"github.com/fastship-next/internal/logger"

	"gorm.io/gorm"
)

// DefaultTagInstruction 标签默认处理说明
func DefaultTagInstruction(name string) string {
	return fmt.Sprintf("Handle with care: %s", name)
}

// SeedTags 初始化标签目录，已存在的标签保持不变
func SeedTags(db *gorm.DB) error {
	created := 0
	for _, name := range constants.TagNames {
		var existing Tag
		err := db.Where("name = ?", name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		tag := Tag{Name: name, Instruction: DefaultTagInstruction(name)}
		if err := db.Create(&tag).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		created++
	}
	if created > 0 {
		logger.Infow("tag_catalog_seeded", "created", created)
	}
	return nil
}
