package dao

import (
	"errors"

	"erp-knowledge-backend/model"

	"gorm.io/gorm"
)

func CreateAttachment(attachment *model.Attachment) error {
	return DB.Create(attachment).Error
}

func UpdateAttachment(attachment *model.Attachment) error {
	return DB.Save(attachment).Error
}

func GetAttachmentByID(id uint) (*model.Attachment, error) {
	var attachment model.Attachment
	if err := DB.First(&attachment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attachment, nil
}

func ListAttachmentsByOwner(email string) ([]model.Attachment, error) {
	var attachments []model.Attachment
	if err := DB.Where("owner_email = ?", email).
		Order("created_at DESC").
		Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}

func DeleteAttachment(id uint) error {
	return DB.Delete(&model.Attachment{}, id).Error
}

// FindUnindexedAttachments 查找尚未建立资源且mimetype可索引的附件
func FindUnindexedAttachments(limit int) ([]model.Attachment, error) {
	var attachments []model.Attachment
	err := DB.Where("mimetype IN ?", model.IndexableMimetypes).
		Where("id NOT IN (?)", DB.Model(&model.Resource{}).
			Select("source_id").
			Where("source_model = ?", model.SourceModelAttachment)).
		Order("id").
		Limit(limit).
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}
