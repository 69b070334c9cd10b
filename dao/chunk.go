package dao

import (
	"erp-knowledge-backend/model"

	"gorm.io/gorm"
)

// ReplaceChunks 删除资源的旧分块并批量写入新分块
func ReplaceChunks(resourceID uint, chunks []model.Chunk) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resource_id = ?", resourceID).
			Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.Create(&chunks).Error
	})
}

func GetChunksByResource(resourceID uint) ([]model.Chunk, error) {
	var chunks []model.Chunk
	if err := DB.Where("resource_id = ?", resourceID).
		Order("ordinal ASC").
		Find(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func GetChunksByIDs(ids []uint) ([]model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var chunks []model.Chunk
	if err := DB.Where("id IN ?", ids).
		Find(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func CountChunksByResource(resourceID uint) (int64, error) {
	var count int64
	err := DB.Model(&model.Chunk{}).
		Where("resource_id = ?", resourceID).
		Count(&count).Error
	return count, err
}

func MarkChunksEmbedded(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return DB.Model(&model.Chunk{}).
		Where("id IN ?", ids).
		Update("embedded", true).Error
}

func MarkResourceChunksUnembedded(resourceID uint) error {
	return DB.Model(&model.Chunk{}).
		Where("resource_id = ?", resourceID).
		Update("embedded", false).Error
}

func DeleteChunksByResource(resourceID uint) error {
	return DB.Where("resource_id = ?", resourceID).
		Delete(&model.Chunk{}).Error
}
