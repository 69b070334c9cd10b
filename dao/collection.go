package dao

import (
	"errors"

	"erp-knowledge-backend/model"

	"gorm.io/gorm"
)

func CreateCollection(collection *model.Collection) error {
	return DB.Create(collection).Error
}

func GetCollectionByID(id uint) (*model.Collection, error) {
	var collection model.Collection
	if err := DB.Preload("Glossaries").
		First(&collection, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &collection, nil
}

func GetCollectionsByIDs(ids []uint) ([]model.Collection, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var collections []model.Collection
	if err := DB.Preload("Glossaries").
		Where("id IN ?", ids).
		Find(&collections).Error; err != nil {
		return nil, err
	}
	return collections, nil
}

func ListCollections() ([]model.Collection, error) {
	var collections []model.Collection
	if err := DB.Order("name").Find(&collections).Error; err != nil {
		return nil, err
	}
	return collections, nil
}

func UpdateCollection(id uint, updates map[string]any) error {
	return DB.Model(&model.Collection{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func DeleteCollection(id uint) error {
	return DB.Select("Glossaries").Delete(&model.Collection{ID: id}).Error
}

// FindDefaultCollection 自动索引附件时的兜底集合：
// 取第一个配置了embedding模型的活跃集合
func FindDefaultCollection() (*model.Collection, error) {
	var collection model.Collection
	if err := DB.Where("active = ? AND embedding_model <> ''", true).
		Order("id").
		First(&collection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &collection, nil
}

// GetCollectionResourceIDs 集合内所有资源ID
func GetCollectionResourceIDs(collectionID uint) ([]uint, error) {
	var ids []uint
	err := DB.Table("knowledge_resource_collection").
		Where("collection_id = ?", collectionID).
		Pluck("resource_id", &ids).Error
	return ids, err
}
