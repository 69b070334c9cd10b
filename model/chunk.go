package model

import "time"

// Chunk 资源内容的有序分块，chunked阶段批量生成，重新分块时整体替换
// 向量库中以chunk主键作为向量ID，重复嵌入为幂等upsert
type Chunk struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	ResourceID uint   `gorm:"not null;index:idx_resource_ordinal" json:"resource_id"`
	Ordinal    int    `gorm:"not null;index:idx_resource_ordinal" json:"ordinal"`
	Content    string `gorm:"type:text;not null" json:"content"`

	// Embedded 至少一个集合确认写入向量库后置true
	Embedded bool `gorm:"not null;default:false" json:"embedded"`
}

func (Chunk) TableName() string {
	return "knowledge_chunk"
}
