package model

import (
	"fmt"
	"time"
)

// Collection 知识集合，绑定一个embedding模型和一个向量库命名空间
// 同一集合内所有chunk的向量维度必须一致
type Collection struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Name   string `gorm:"not null;uniqueIndex" json:"name"`
	Active bool   `gorm:"not null;default:true" json:"active"`

	EmbeddingModel string `gorm:"not null" json:"embedding_model"`
	EmbeddingDim   int    `gorm:"not null;default:1024" json:"embedding_dim"`

	DefaultChunkSize    int         `gorm:"not null;default:4000" json:"default_chunk_size"`
	DefaultChunkOverlap int         `gorm:"not null;default:200" json:"default_chunk_overlap"`
	DefaultChunker      ChunkerKind `gorm:"not null;default:recursive" json:"default_chunker"`
	DefaultParser       ParserKind  `gorm:"not null;default:default" json:"default_parser"`

	// OCRCorrectionModel 为空时跳过OCR纠错
	OCRCorrectionModel string `json:"ocr_correction_model"`

	Glossaries []Glossary `gorm:"many2many:knowledge_glossary_collection" json:"glossaries,omitempty"`
}

func (Collection) TableName() string {
	return "knowledge_collection"
}

// Namespace 集合在向量库中的命名空间
func (c *Collection) Namespace() string {
	return fmt.Sprintf("kb_%d", c.ID)
}
