package dao

import (
	"errors"

	"erp-knowledge-backend/model"

	"gorm.io/gorm"
)

func CreateGlossary(glossary *model.Glossary) error {
	return DB.Create(glossary).Error
}

func GetGlossaryByID(id uint) (*model.Glossary, error) {
	var glossary model.Glossary
	if err := DB.Preload("Terms").
		First(&glossary, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &glossary, nil
}

func ListGlossaries() ([]model.Glossary, error) {
	var glossaries []model.Glossary
	if err := DB.Preload("Terms").
		Order("name").
		Find(&glossaries).Error; err != nil {
		return nil, err
	}
	return glossaries, nil
}

func DeleteGlossary(id uint) error {
	if err := DB.Where("glossary_id = ?", id).
		Delete(&model.GlossaryTerm{}).Error; err != nil {
		return err
	}
	return DB.Select("Collections").Delete(&model.Glossary{ID: id}).Error
}

func CreateGlossaryTerm(term *model.GlossaryTerm) error {
	return DB.Create(term).Error
}

func DeleteGlossaryTerm(id uint) error {
	return DB.Delete(&model.GlossaryTerm{}, id).Error
}

// GetGlossariesByCollections 集合关联的活跃术语表（含活跃术语）
func GetGlossariesByCollections(collectionIDs []uint) ([]model.Glossary, error) {
	if len(collectionIDs) == 0 {
		return nil, nil
	}
	var glossaries []model.Glossary
	err := DB.Preload("Terms", "active = ?", true).
		Where("active = ?", true).
		Where("id IN (?)", DB.Table("knowledge_glossary_collection").
			Select("glossary_id").
			Where("collection_id IN ?", collectionIDs)).
		Order("name").
		Find(&glossaries).Error
	if err != nil {
		return nil, err
	}
	return glossaries, nil
}
