package dao

import (
	"errors"
	"time"

	"erp-knowledge-backend/model"

	"gorm.io/gorm"
)

func CreateResource(resource *model.Resource) error {
	return DB.Create(resource).Error
}

func GetResourceByID(id uint) (*model.Resource, error) {
	var resource model.Resource
	if err := DB.Preload("Collections").
		First(&resource, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &resource, nil
}

func GetResourceBySource(sourceModel string, sourceID uint) (*model.Resource, error) {
	var resource model.Resource
	if err := DB.Preload("Collections").
		Where("source_model = ? AND source_id = ?", sourceModel, sourceID).
		First(&resource).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &resource, nil
}

func GetResourcesByIDs(ids []uint) ([]model.Resource, error) {
	var resources []model.Resource
	if err := DB.Preload("Collections").
		Where("id IN ?", ids).
		Find(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

func ListResourcesByOwner(email string) ([]model.Resource, error) {
	var resources []model.Resource
	if err := DB.Preload("Collections").
		Where("owner_email = ?", email).
		Order("created_at DESC").
		Find(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

func DeleteResource(id uint) error {
	if err := DB.Where("resource_id = ?", id).Delete(&model.Chunk{}).Error; err != nil {
		return err
	}
	if err := DB.Where("resource_id = ?", id).Delete(&model.ResourceLog{}).Error; err != nil {
		return err
	}
	return DB.Select("Collections").Delete(&model.Resource{ID: id}).Error
}

// ClaimResources 以单条带守卫的UPDATE原子抢占资源锁：
// 仅未加锁或锁已过期的资源会被更新，返回成功抢到的资源
func ClaimResources(ids []uint, stateFilter model.ResourceState, staleAfter time.Duration) ([]model.Resource, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	now := time.Now()
	threshold := now.Add(-staleAfter)

	tx := DB.Model(&model.Resource{}).
		Where("id IN ?", ids).
		Where("lock_date IS NULL OR lock_date < ?", threshold)
	if stateFilter != "" {
		tx = tx.Where("state = ?", stateFilter)
	}

	if err := tx.Update("lock_date", now).Error; err != nil {
		return nil, err
	}

	var claimed []model.Resource
	if err := DB.Preload("Collections").
		Where("id IN ? AND lock_date = ?", ids, now).
		Find(&claimed).Error; err != nil {
		return nil, err
	}
	return claimed, nil
}

func UnlockResources(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return DB.Model(&model.Resource{}).
		Where("id IN ?", ids).
		Update("lock_date", nil).Error
}

func UpdateResourceState(id uint, state model.ResourceState) error {
	return DB.Model(&model.Resource{}).
		Where("id = ?", id).
		Update("state", state).Error
}

func UpdateResourceStates(ids []uint, state model.ResourceState) error {
	if len(ids) == 0 {
		return nil
	}
	return DB.Model(&model.Resource{}).
		Where("id IN ?", ids).
		Update("state", state).Error
}

func UpdateResource(id uint, updates map[string]any) error {
	return DB.Model(&model.Resource{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// FindPendingResources 查找未处理完且未加锁（或锁过期）并属于至少一个集合的资源
func FindPendingResources(limit int, staleAfter time.Duration) ([]model.Resource, error) {
	threshold := time.Now().Add(-staleAfter)

	var resources []model.Resource
	err := DB.Preload("Collections").
		Where("state <> ?", model.StateReady).
		Where("lock_date IS NULL OR lock_date < ?", threshold).
		Where("id IN (?)", DB.Table("knowledge_resource_collection").Select("resource_id")).
		Order("id").
		Limit(limit).
		Find(&resources).Error
	if err != nil {
		return nil, err
	}
	return resources, nil
}

func ReplaceResourceCollections(resource *model.Resource, collections []model.Collection) error {
	return DB.Model(resource).Association("Collections").Replace(collections)
}

func AddResourceLog(resourceID uint, level, message string) error {
	return DB.Create(&model.ResourceLog{
		ResourceID: resourceID,
		Level:      level,
		Message:    message,
	}).Error
}

func GetResourceLogs(resourceID uint) ([]model.ResourceLog, error) {
	var logs []model.ResourceLog
	if err := DB.Where("resource_id = ?", resourceID).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
