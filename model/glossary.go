package model

import "time"

// Glossary 术语表，人工维护的领域词汇，检索时原样注入上下文
type Glossary struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Active      bool   `gorm:"not null;default:true" json:"active"`

	Terms       []GlossaryTerm `gorm:"foreignKey:GlossaryID" json:"terms,omitempty"`
	Collections []Collection   `gorm:"many2many:knowledge_glossary_collection" json:"collections,omitempty"`
}

func (Glossary) TableName() string {
	return "knowledge_glossary"
}

// GlossaryTerm 术语定义，术语在同一术语表内唯一
type GlossaryTerm struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	GlossaryID uint   `gorm:"not null;uniqueIndex:idx_glossary_term" json:"glossary_id"`
	Term       string `gorm:"not null;uniqueIndex:idx_glossary_term" json:"term"`
	Definition string `gorm:"type:text;not null" json:"definition"`
	Active     bool   `gorm:"not null;default:true" json:"active"`
}

func (GlossaryTerm) TableName() string {
	return "knowledge_glossary_term"
}
